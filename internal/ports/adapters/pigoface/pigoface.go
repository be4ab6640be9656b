// Package pigoface wraps the pigo cascade classifier behind the FaceDetector
// port. Detection runs in-process on grayscale pixels, so frame sampling rate
// is the only knob that matters for cost.
package pigoface

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/dkotenko/clipcut/internal/ports"
)

// minQuality filters low-confidence cascade hits. Pigo's Q score is unbounded
// above; values under ~5 are mostly noise on talking-head footage.
const minQuality = 5.0

type Detector struct {
	classifier *pigo.Pigo
}

var _ ports.FaceDetector = (*Detector)(nil)

// New loads and unpacks a binary cascade file. A missing or corrupt cascade
// means detection cannot run at all, which callers treat as a degrade signal
// rather than a fatal error.
func New(cascadePath string) (*Detector, error) {
	b, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("%w: read cascade %s: %v", ports.ErrDetectionUnavailable, cascadePath, err)
	}
	classifier, err := pigo.NewPigo().Unpack(b)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack cascade: %v", ports.ErrDetectionUnavailable, err)
	}
	return &Detector{classifier: classifier}, nil
}

func (d *Detector) Detect(img image.Image) ([]ports.FaceBox, error) {
	src := pigo.ImgToNRGBA(img)
	bounds := src.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	if rows == 0 || cols == 0 {
		return nil, nil
	}
	pixels := pigo.RgbToGrayscale(src)

	params := pigo.CascadeParams{
		MinSize:     minDim(rows, cols) / 10,
		MaxSize:     minDim(rows, cols),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, 0.2)

	var out []ports.FaceBox
	for _, det := range dets {
		if det.Q < minQuality {
			continue
		}
		// Pigo reports center row/col and a square scale in pixels.
		half := float64(det.Scale) / 2
		out = append(out, ports.FaceBox{
			X:          (float64(det.Col) - half) / float64(cols),
			Y:          (float64(det.Row) - half) / float64(rows),
			W:          float64(det.Scale) / float64(cols),
			H:          float64(det.Scale) / float64(rows),
			Confidence: float64(det.Q),
		})
	}
	return out, nil
}

func minDim(a, b int) int {
	if a < b {
		return a
	}
	return b
}
