package ports

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/dkotenko/clipcut/internal/types"
)

// Failure taxonomy shared across adapters. Callers classify with errors.Is.
var (
	// ErrDetectionUnavailable means face detection cannot run at all (cascade
	// model missing, init failure). Recoverable: tracking degrades to a
	// static centered crop.
	ErrDetectionUnavailable = errors.New("face detection unavailable")

	// ErrTranscriptionUnavailable is fatal for AI mode unless the caller
	// supplied a subtitle file instead.
	ErrTranscriptionUnavailable = errors.New("transcription unavailable")

	// ErrRankingUnavailable covers provider failures and malformed responses.
	// Fatal for AI mode; there is no silent fallback to manual mode.
	ErrRankingUnavailable = errors.New("ranking provider unavailable")

	// ErrEncodeFailed marks a per-clip encode failure after the software
	// retry was exhausted. Sibling clips keep going.
	ErrEncodeFailed = errors.New("encode failed")
)

// Frame is one sampled video frame on disk, tagged with its source timestamp.
type Frame struct {
	Time time.Duration
	Path string
}

// SilenceInterval is a sub-noise-floor span in a clip's local time base.
type SilenceInterval struct {
	Start time.Duration
	End   time.Duration
}

// VideoInfo is the subset of container metadata the pipeline needs.
type VideoInfo struct {
	Duration time.Duration
	Width    int
	Height   int
	FPS      float64
}

type VideoTool interface {
	Probe(ctx context.Context, in string) (VideoInfo, error)
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error

	// SampleFrames decodes frames of [start,end) at the given rate into dir
	// and returns them in time order.
	SampleFrames(ctx context.Context, in string, start, end time.Duration, fps float64, dir string) ([]Frame, error)

	// ScanSilence reports silent spans of [start,end) relative to start.
	ScanSilence(ctx context.Context, in string, start, end time.Duration, noiseFloorDb float64, minSilence time.Duration) ([]SilenceInterval, error)
}

// FaceBox is a detected face in normalized [0,1] frame coordinates.
type FaceBox struct {
	X          float64
	Y          float64
	W          float64
	H          float64
	Confidence float64
}

type FaceDetector interface {
	Detect(img image.Image) ([]FaceBox, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// Encoder runs a fully assembled encode invocation. Argument assembly lives
// with the render plan; the encoder only executes and validates the output.
type Encoder interface {
	Encode(ctx context.Context, args []string, output string) error
}

// Ranker proposes clip spans for a transcript. The response is the provider's
// raw text; parsing lives with the selector so a cached response replays
// through the same path.
type Ranker interface {
	Name() string
	FindClips(ctx context.Context, transcript string) (string, error)
}
