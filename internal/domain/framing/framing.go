// Package framing converts a speaker trajectory into a smoothed, bounded
// sequence of 9:16 crop windows over the source frame.
package framing

import (
	"time"

	"github.com/dkotenko/clipcut/internal/domain/tracking"
)

// TargetAspect is the output width:height ratio.
const TargetAspect = 9.0 / 16.0

// CropWindow is a normalized crop rectangle keyframe. Width and height are
// constant across a clip; only the position moves, which avoids visible zoom
// pumping between keyframes.
type CropWindow struct {
	Time   time.Duration
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// cropSize returns the normalized crop dimensions for the target aspect.
// The crop is full-height with trimmed width, or full-width with trimmed
// height, whichever loses less field of view.
func cropSize(srcW, srcH int) (w, h float64) {
	if srcW <= 0 || srcH <= 0 {
		return 1, 1
	}
	srcAspect := float64(srcW) / float64(srcH)
	if srcAspect >= TargetAspect {
		// Source is wider than 9:16: keep full height.
		return TargetAspect / srcAspect, 1
	}
	// Source is narrower: keep full width.
	return 1, srcAspect / TargetAspect
}

// Static returns the single centered window used when tracking is
// unavailable or produced nothing usable.
func Static(srcW, srcH int, at time.Duration) CropWindow {
	w, h := cropSize(srcW, srcH)
	return CropWindow{Time: at, Left: (1 - w) / 2, Top: (1 - h) / 2, Width: w, Height: h}
}

// Plan smooths the sample trajectory with a centered moving average over
// smoothWindow and emits one keyframe per sample. The render plan builder
// interpolates linearly between keyframes, so the result is sparse and
// independent of the output frame rate.
//
// Edge clamping takes priority over smoothing fidelity: the window never
// leaves [0,1]x[0,1]. A single sample or an all-found=false trajectory
// yields one static centered window for the whole interval.
func Plan(samples []tracking.Sample, srcW, srcH int, smoothWindow time.Duration) []CropWindow {
	start := time.Duration(0)
	if len(samples) > 0 {
		start = samples[0].Time
	}

	if !anyFound(samples) || len(samples) < 2 {
		return []CropWindow{Static(srcW, srcH, start)}
	}

	w, h := cropSize(srcW, srcH)
	half := smoothWindow / 2

	out := make([]CropWindow, 0, len(samples))
	for i, s := range samples {
		sx, sy := smoothedCenter(samples, i, half)
		out = append(out, CropWindow{
			Time:   s.Time,
			Left:   clampOffset(sx-w/2, w),
			Top:    clampOffset(sy-h/2, h),
			Width:  w,
			Height: h,
		})
	}
	return out
}

// smoothedCenter averages sample centers whose time falls within +-half of
// the i-th sample. Held (found=false) samples still participate: they carry
// the last known center, which is exactly the value to stabilize around.
func smoothedCenter(samples []tracking.Sample, i int, half time.Duration) (x, y float64) {
	t := samples[i].Time
	var sumX, sumY float64
	n := 0
	for _, s := range samples {
		d := s.Time - t
		if d < -half || d > half {
			continue
		}
		sumX += s.CenterX
		sumY += s.CenterY
		n++
	}
	if n == 0 {
		return samples[i].CenterX, samples[i].CenterY
	}
	return sumX / float64(n), sumY / float64(n)
}

func clampOffset(off, size float64) float64 {
	if off < 0 {
		return 0
	}
	if off > 1-size {
		return 1 - size
	}
	return off
}

func anyFound(samples []tracking.Sample) bool {
	for _, s := range samples {
		if s.Found {
			return true
		}
	}
	return false
}
