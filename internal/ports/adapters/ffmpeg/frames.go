package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/dkotenko/clipcut/internal/ports"
)

// SampleFrames decodes [start, end) at the given rate into JPEGs under dir.
// Frame timestamps are reconstructed as start + i/fps; face tracking is
// tolerance-based, so the fps filter's off-by-a-frame rounding is fine.
func (a *Adapter) SampleFrames(ctx context.Context, in string, start, end time.Duration, fps float64, dir string) ([]ports.Frame, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("sample fps must be > 0, got %v", fps)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	pattern := filepath.Join(dir, "frame_%05d.jpg")
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", in,
		"-vf", fmt.Sprintf("fps=%g", fps),
		"-q:v", "4",
		pattern,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg sample frames: %w\n%s", err, tail(b, 500))
	}

	paths, err := filepath.Glob(filepath.Join(dir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	interval := time.Duration(float64(time.Second) / fps)
	frames := make([]ports.Frame, 0, len(paths))
	for i, p := range paths {
		frames = append(frames, ports.Frame{
			Time: start + time.Duration(i)*interval,
			Path: p,
		})
	}
	a.log.Debug().Int("frames", len(frames)).Str("dir", dir).Msg("sampled frames")
	return frames, nil
}
