package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/dkotenko/clipcut/internal/ports"
)

var (
	silenceStartRE = regexp.MustCompile(`silence_start:\s*(-?[0-9]+(?:\.[0-9]+)?)`)
	silenceEndRE   = regexp.MustCompile(`silence_end:\s*(-?[0-9]+(?:\.[0-9]+)?)`)
)

// ScanSilence runs silencedetect over [start, end) and returns silent spans
// relative to start. Seeking before the input resets the filter's time base,
// so reported timestamps are already clip-local.
func (a *Adapter) ScanSilence(ctx context.Context, in string, start, end time.Duration, noiseFloorDb float64, minSilence time.Duration) ([]ports.SilenceInterval, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", in,
		"-af", fmt.Sprintf("silencedetect=noise=%gdB:d=%s", noiseFloorDb, fmtSeconds(minSilence)),
		"-f", "null",
		"-",
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg silencedetect: %w\n%s", err, tail(b, 500))
	}

	duration := end - start
	intervals := parseSilence(string(b), duration)
	a.log.Debug().Int("intervals", len(intervals)).Dur("span", duration).Msg("silence scan done")
	return intervals, nil
}

// parseSilence pairs silence_start/silence_end log lines. A trailing start
// without a matching end means silence runs to the end of the span.
func parseSilence(output string, duration time.Duration) []ports.SilenceInterval {
	starts := silenceStartRE.FindAllStringSubmatch(output, -1)
	ends := silenceEndRE.FindAllStringSubmatch(output, -1)

	var out []ports.SilenceInterval
	for i, m := range starts {
		s, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if s < 0 {
			s = 0
		}
		e := duration.Seconds()
		if i < len(ends) {
			if v, err := strconv.ParseFloat(ends[i][1], 64); err == nil {
				e = v
			}
		}
		if e <= s {
			continue
		}
		out = append(out, ports.SilenceInterval{
			Start: time.Duration(s * float64(time.Second)),
			End:   time.Duration(e * float64(time.Second)),
		})
	}
	return out
}
