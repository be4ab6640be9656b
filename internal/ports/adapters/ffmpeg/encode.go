package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/dkotenko/clipcut/internal/ports"
)

var _ ports.Encoder = (*Adapter)(nil)

// Encode runs ffmpeg with pre-assembled args and verifies the output exists
// and is non-empty. ffmpeg can exit zero after writing a truncated file when
// a filter stalls, so the size check is not optional.
func (a *Adapter) Encode(ctx context.Context, args []string, output string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ports.ErrEncodeFailed, ctx.Err())
		}
		return fmt.Errorf("%w: ffmpeg: %v\n%s", ports.ErrEncodeFailed, err, tail(b, 500))
	}

	fi, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("%w: output missing: %v", ports.ErrEncodeFailed, err)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%w: output is empty: %s", ports.ErrEncodeFailed, output)
	}
	a.log.Debug().Str("output", output).Int64("bytes", fi.Size()).Msg("encode done")
	return nil
}
