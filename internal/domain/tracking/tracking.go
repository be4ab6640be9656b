// Package tracking produces a per-sample speaker-center trajectory from
// sampled frames. It deliberately avoids multi-object tracking: the largest
// detected face wins, which is robust for a single dominant speaker and
// keeps cost proportional to clip duration, not frame count.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"time"

	"github.com/dkotenko/clipcut/internal/ports"
)

// Sample is the detected (or carried-forward) crop center for one sampled
// frame, in normalized [0,1] coordinates.
type Sample struct {
	Time       time.Duration
	CenterX    float64
	CenterY    float64
	Confidence float64
	Found      bool
}

// nearTie is the relative area margin within which two faces are considered
// similarly sized, making proximity to the previous center the deciding
// factor.
const nearTie = 0.05

// Track runs detection over sampled frames. When a frame yields no face the
// sample holds the last known center (not interpolated) so downstream
// planning degrades to a static crop instead of snapping to frame center.
//
// ErrDetectionUnavailable from the detector aborts tracking entirely; the
// caller falls back to a centered non-tracking crop.
func Track(ctx context.Context, frames []ports.Frame, det ports.FaceDetector) ([]Sample, error) {
	prevX, prevY := 0.5, 0.5

	out := make([]Sample, 0, len(frames))
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := loadImage(f.Path)
		if err != nil {
			out = append(out, held(f.Time, prevX, prevY))
			continue
		}

		boxes, err := det.Detect(img)
		if err != nil {
			if errors.Is(err, ports.ErrDetectionUnavailable) {
				return nil, err
			}
			out = append(out, held(f.Time, prevX, prevY))
			continue
		}

		box, ok := pickSpeaker(boxes, prevX, prevY)
		if !ok {
			out = append(out, held(f.Time, prevX, prevY))
			continue
		}

		cx := clamp01(box.X + box.W/2)
		cy := clamp01(box.Y + box.H/2)
		prevX, prevY = cx, cy
		out = append(out, Sample{Time: f.Time, CenterX: cx, CenterY: cy, Confidence: box.Confidence, Found: true})
	}

	return out, nil
}

// pickSpeaker selects the largest face; faces within nearTie of the largest
// area are disambiguated by distance to the previous sample's center (frame
// center on the first sample).
func pickSpeaker(boxes []ports.FaceBox, prevX, prevY float64) (ports.FaceBox, bool) {
	if len(boxes) == 0 {
		return ports.FaceBox{}, false
	}

	maxArea := 0.0
	for _, b := range boxes {
		if a := b.W * b.H; a > maxArea {
			maxArea = a
		}
	}
	if maxArea <= 0 {
		return ports.FaceBox{}, false
	}

	best := -1
	bestDist := math.Inf(1)
	for i, b := range boxes {
		if b.W*b.H < maxArea*(1-nearTie) {
			continue
		}
		dx := (b.X + b.W/2) - prevX
		dy := (b.Y + b.H/2) - prevY
		if d := dx*dx + dy*dy; d < bestDist {
			bestDist = d
			best = i
		}
	}
	return boxes[best], true
}

func held(t time.Duration, x, y float64) Sample {
	return Sample{Time: t, CenterX: x, CenterY: y, Found: false}
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", path, err)
	}
	return img, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
