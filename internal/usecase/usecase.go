// Package usecase orchestrates the per-clip render path: frame sampling,
// face tracking, silence scanning, plan building and the encode itself.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dkotenko/clipcut/internal/domain/framing"
	"github.com/dkotenko/clipcut/internal/domain/renderplan"
	"github.com/dkotenko/clipcut/internal/domain/silence"
	"github.com/dkotenko/clipcut/internal/domain/subtitles"
	"github.com/dkotenko/clipcut/internal/domain/tracking"
	"github.com/dkotenko/clipcut/internal/ports"
	"github.com/dkotenko/clipcut/internal/types"
)

type Deps struct {
	Video ports.VideoTool
	Enc   ports.Encoder

	// Detector may be nil: every clip then gets a static centered crop.
	Detector ports.FaceDetector

	Log zerolog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	InputVideo string
	Info       ports.VideoInfo
	Proposals  []types.ClipProposal
	Transcript types.Transcript

	OutDir   string
	CacheDir string

	Opts Options
}

// Options are the render knobs, resolved by the caller from config and
// flags before the run starts.
type Options struct {
	RemoveSilence      bool
	NoiseFloorDb       float64
	MinSilence         time.Duration
	MergeGap           time.Duration
	MinKeep            time.Duration
	MaxRemovedFraction float64

	SampleFPS    float64
	SmoothWindow time.Duration

	Speed            float64
	HWAccelAvailable bool
	VAAPIDevice      string
	EncodeTimeout    time.Duration
	Workers          int
}

type Result struct {
	Manifest types.Manifest
	Failed   int
}

// Run renders all proposals. Clip failures are isolated: a failed encode is
// recorded in the manifest and siblings keep going. The returned error covers
// run-level problems only (workspace setup, context cancellation).
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	clipsDir := filepath.Join(in.OutDir, "clips")
	subsDir := filepath.Join(in.OutDir, "subtitles")
	for _, d := range []string{clipsDir, subsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return Result{}, err
		}
	}

	// The burn-in subtitle file keeps source timestamps: burning happens
	// before the speed/cut filters run, while input timestamps are intact.
	burnPath := ""
	if len(in.Transcript.Segments) > 0 {
		burnPath = filepath.Join(in.CacheDir, "burn.srt")
		if err := os.WriteFile(burnPath, []byte(subtitles.Render(in.Transcript)), 0o644); err != nil {
			return Result{}, fmt.Errorf("write burn subtitles: %w", err)
		}
	}

	workers := in.Opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	clips := make([]types.ManifestClip, len(in.Proposals))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, p := range in.Proposals {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			clips[i] = u.renderOne(ctx, in, p, i, clipsDir, subsDir, burnPath)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Manifest: types.Manifest{Input: in.InputVideo, Clips: clips}}
	for _, c := range clips {
		if c.Status != statusOK {
			res.Failed++
		}
	}
	return res, nil
}

const (
	statusOK     = "ok"
	statusFailed = "failed"

	// maxTitleSegment caps the sanitized title inside output filenames.
	maxTitleSegment = 50
)

// SafeSegment lowercases s and collapses anything outside letters and
// digits into single dashes, producing a filesystem-safe name segment.
func SafeSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// clipBaseName is the deterministic output stem for a clip: the index
// prefix keeps ordering stable, the sanitized title keeps files readable.
func clipBaseName(idx int, title string) string {
	base := fmt.Sprintf("clip_%02d", idx+1)
	seg := SafeSegment(title)
	if r := []rune(seg); len(r) > maxTitleSegment {
		seg = strings.Trim(string(r[:maxTitleSegment]), "-")
	}
	if seg == "" {
		return base
	}
	return base + "_" + seg
}

func (u Usecase) renderOne(ctx context.Context, in Input, p types.ClipProposal, idx int, clipsDir, subsDir, burnPath string) types.ManifestClip {
	id := fmt.Sprintf("clip_%02d", idx+1)
	base := clipBaseName(idx, p.Title)
	log := u.d.Log.With().Str("clip", id).Logger()

	mc := types.ManifestClip{
		ID:        id,
		StartSec:  p.Start.Seconds(),
		EndSec:    p.End.Seconds(),
		Title:     p.Title,
		Rationale: p.Rationale,
		File:      filepath.ToSlash(filepath.Join("clips", base+".mp4")),
		Status:    statusFailed,
	}

	var (
		crop []framing.CropWindow
		sil  []ports.SilenceInterval
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		crop, err = u.cropTrajectory(gctx, in, p, id)
		return err
	})
	if in.Opts.RemoveSilence {
		g.Go(func() error {
			raw, err := u.d.Video.ScanSilence(gctx, in.InputVideo, p.Start, p.End, in.Opts.NoiseFloorDb, in.Opts.MinSilence)
			if err != nil {
				return err
			}
			sil = silence.Clamp(silence.Merge(raw, in.Opts.MergeGap), p.Duration())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("clip analysis failed")
		mc.Error = err.Error()
		return mc
	}

	plan := renderplan.Build(renderplan.Params{
		Clip:               p,
		Crop:               crop,
		Silence:            sil,
		SubtitlePath:       burnPath,
		Speed:              in.Opts.Speed,
		HWAccelAvailable:   in.Opts.HWAccelAvailable,
		VAAPIDevice:        in.Opts.VAAPIDevice,
		MinKeep:            in.Opts.MinKeep,
		MaxRemovedFraction: in.Opts.MaxRemovedFraction,
	})
	if plan.SilenceSkipped {
		log.Warn().Msg("silence removal skipped: cut set would drop most of the clip")
	}

	outPath := filepath.Join(clipsDir, base+".mp4")
	encoder, err := u.encodeWithFallback(ctx, plan, in.InputVideo, outPath, in.Opts.EncodeTimeout, log)
	if err != nil {
		mc.Error = err.Error()
		return mc
	}
	mc.Encoder = encoder

	if len(in.Transcript.Segments) > 0 {
		sidecar := subtitles.RenderClipMapped(in.Transcript, p.Start, p.End, plan.TimeMap())
		sidecarPath := filepath.Join(subsDir, base+".srt")
		if err := os.WriteFile(sidecarPath, []byte(sidecar), 0o644); err != nil {
			log.Warn().Err(err).Msg("sidecar subtitles not written")
		} else {
			mc.Subtitles = filepath.ToSlash(filepath.Join("subtitles", base+".srt"))
		}
	}

	mc.Status = statusOK
	log.Info().Float64("start", p.Start.Seconds()).Float64("end", p.End.Seconds()).Str("encoder", encoder).Msg("clip rendered")
	return mc
}

// cropTrajectory samples frames and tracks the speaker. Detection being
// unavailable degrades to a static centered crop rather than failing the
// clip.
func (u Usecase) cropTrajectory(ctx context.Context, in Input, p types.ClipProposal, id string) ([]framing.CropWindow, error) {
	static := []framing.CropWindow{framing.Static(in.Info.Width, in.Info.Height, 0)}
	if u.d.Detector == nil {
		return static, nil
	}

	framesDir := filepath.Join(in.CacheDir, "frames", id)
	frames, err := u.d.Video.SampleFrames(ctx, in.InputVideo, p.Start, p.End, in.Opts.SampleFPS, framesDir)
	if err != nil {
		return nil, fmt.Errorf("sample frames: %w", err)
	}
	defer os.RemoveAll(framesDir)

	samples, err := tracking.Track(ctx, frames, u.d.Detector)
	if err != nil {
		if errors.Is(err, ports.ErrDetectionUnavailable) {
			u.d.Log.Warn().Str("clip", id).Msg("face detection unavailable, using centered crop")
			return static, nil
		}
		return nil, err
	}

	// Samples keep source timestamps: the crop expression is evaluated
	// against the input timeline, which -copyts preserves.
	return framing.Plan(samples, in.Info.Width, in.Info.Height, in.Opts.SmoothWindow), nil
}

// encodeWithFallback tries the planned profile, then retries once in
// software when a hardware encode fails. Returns the name of the profile
// that produced the output.
func (u Usecase) encodeWithFallback(ctx context.Context, plan renderplan.Plan, input, output string, timeout time.Duration, log zerolog.Logger) (string, error) {
	err := u.encodeOnce(ctx, plan, input, output, timeout)
	if err == nil {
		return plan.Profile.Name, nil
	}
	if !plan.Profile.Hardware || ctx.Err() != nil {
		return "", err
	}

	log.Warn().Err(err).Msg("hardware encode failed, retrying in software")
	sw := plan.Fallback()
	if err := u.encodeOnce(ctx, sw, input, output, timeout); err != nil {
		return "", err
	}
	return sw.Profile.Name, nil
}

// encodeOnce runs a single attempt under its own timeout. A hardware
// attempt that hits the deadline must not leave the software retry with an
// expired context.
func (u Usecase) encodeOnce(ctx context.Context, plan renderplan.Plan, input, output string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return u.d.Enc.Encode(ctx, plan.CommandArgs(input, output), output)
}
