// Package pipeline wires adapters to the render orchestrator and owns the
// run lifecycle: transcript resolution, clip ranking with the cuts cache,
// workspace layout and the final manifest.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkotenko/clipcut/internal/config"
	"github.com/dkotenko/clipcut/internal/domain/selection"
	"github.com/dkotenko/clipcut/internal/domain/subtitles"
	"github.com/dkotenko/clipcut/internal/logging"
	"github.com/dkotenko/clipcut/internal/ports"
	"github.com/dkotenko/clipcut/internal/ports/adapters/ffmpeg"
	"github.com/dkotenko/clipcut/internal/ports/adapters/gemini"
	"github.com/dkotenko/clipcut/internal/ports/adapters/ollama"
	"github.com/dkotenko/clipcut/internal/ports/adapters/openai"
	"github.com/dkotenko/clipcut/internal/ports/adapters/pigoface"
	"github.com/dkotenko/clipcut/internal/ports/adapters/whispercpp"
	"github.com/dkotenko/clipcut/internal/types"
	"github.com/dkotenko/clipcut/internal/usecase"
)

const cutsCacheFilename = "cuts.json"

// ManualClip is a user-specified span that bypasses ranking entirely.
type ManualClip struct {
	Start string
	End   string
	Title string
}

type Params struct {
	InputVideo string

	// SRTPath is an explicit subtitle file. Empty means discover one next
	// to the video or transcribe.
	SRTPath string

	// Provider is the ranking provider name; empty in manual mode.
	Provider string
	Model    string

	Manual     *ManualClip
	Transcribe bool

	Cfg config.Config
	Log zerolog.Logger
}

func (p Params) Validate() error {
	if p.InputVideo == "" {
		return errors.New("input video is required")
	}
	if _, err := os.Stat(p.InputVideo); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if p.SRTPath != "" {
		if _, err := os.Stat(p.SRTPath); err != nil {
			return fmt.Errorf("stat subtitles: %w", err)
		}
	}
	if p.Manual == nil && p.Provider == "" {
		return errors.New("no provider selected: use --openai, --gemini, --ollama, set ai.provider in config.toml, or pass --manual")
	}
	return p.Cfg.Validate()
}

type RunInfo struct {
	Manifest     types.Manifest
	ManifestPath string
	OutDir       string
	Failed       int
}

func Run(ctx context.Context, p Params) (RunInfo, error) {
	log := p.Log
	cfg := p.Cfg

	video := ffmpeg.New(log)
	info, err := video.Probe(ctx, p.InputVideo)
	if err != nil {
		return RunInfo{}, fmt.Errorf("probe input: %w", err)
	}
	log.Info().
		Float64("duration", info.Duration.Seconds()).
		Int("width", info.Width).Int("height", info.Height).
		Msg("input probed")

	cacheDir := filepath.Join(".cache", "runs", hash(p.InputVideo))
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return RunInfo{}, err
	}

	srtPath, tr, err := resolveTranscript(ctx, p, video, cacheDir, log)
	if err != nil {
		return RunInfo{}, err
	}

	proposals, err := resolveProposals(ctx, p, tr, srtPath, info.Duration, log)
	if err != nil {
		return RunInfo{}, err
	}
	if len(proposals) == 0 {
		return RunInfo{}, errors.New("no valid clips to process after validation and duration checks")
	}
	for i, c := range proposals {
		log.Info().
			Int("n", i+1).
			Float64("start", c.Start.Seconds()).
			Float64("end", c.End.Seconds()).
			Str("title", c.Title).
			Msg("clip selected")
	}

	runOutDir := buildRunOutDir(cfg.Output.Dir, p.InputVideo, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return RunInfo{}, err
	}

	hw := !cfg.Render.DisableVAAPI && ffmpeg.VAAPIAvailable(cfg.Render.VAAPIDevice)
	if cfg.Render.DisableVAAPI {
		log.Debug().Msg("hardware encoding disabled by config")
	} else if !hw {
		log.Info().Str("device", cfg.Render.VAAPIDevice).Msg("VAAPI device not accessible, encoding in software")
	}

	var detector ports.FaceDetector
	if cfg.Framing.CascadeFile != "" {
		d, err := pigoface.New(cfg.Framing.CascadeFile)
		if err != nil {
			log.Warn().Err(err).Msg("face detection disabled, clips get a centered crop")
		} else {
			detector = d
		}
	}

	uc := usecase.New(usecase.Deps{
		Video:    video,
		Enc:      video,
		Detector: detector,
		Log:      logging.WithComponent(log, "render"),
	})
	res, err := uc.Run(ctx, usecase.Input{
		InputVideo: p.InputVideo,
		Info:       info,
		Proposals:  proposals,
		Transcript: tr,
		OutDir:     runOutDir,
		CacheDir:   cacheDir,
		Opts: usecase.Options{
			RemoveSilence:      cfg.Output.RemoveSilence,
			NoiseFloorDb:       cfg.Silence.NoiseFloorDb,
			MinSilence:         cfg.Silence.MinSilence.Std(),
			MergeGap:           cfg.Silence.MergeGap.Std(),
			MinKeep:            cfg.Silence.MinKeep.Std(),
			MaxRemovedFraction: cfg.Silence.MaxRemovedFraction,
			SampleFPS:          cfg.Framing.SampleFPS,
			SmoothWindow:       cfg.Framing.SmoothWindow.Std(),
			Speed:              cfg.Render.Speed,
			HWAccelAvailable:   hw,
			VAAPIDevice:        cfg.Render.VAAPIDevice,
			EncodeTimeout:      cfg.Render.EncodeTimeout.Std(),
			Workers:            cfg.Render.Workers,
		},
	})
	if err != nil {
		return RunInfo{}, err
	}

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return RunInfo{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return RunInfo{}, err
	}

	return RunInfo{
		Manifest:     res.Manifest,
		ManifestPath: manifestPath,
		OutDir:       runOutDir,
		Failed:       res.Failed,
	}, nil
}

// resolveTranscript finds or produces the subtitle source: explicit path,
// sibling SRT, or whisper.cpp transcription. Manual mode tolerates having no
// transcript at all; ranking does not.
func resolveTranscript(ctx context.Context, p Params, video ports.VideoTool, cacheDir string, log zerolog.Logger) (string, types.Transcript, error) {
	srtPath := p.SRTPath
	if srtPath == "" {
		if existing := findExistingSRT(p.InputVideo); existing != "" {
			log.Info().Str("srt", existing).Msg("found existing subtitles")
			srtPath = existing
		}
	}

	if srtPath == "" && (p.Transcribe || p.Manual == nil) {
		path, err := transcribe(ctx, p, video, cacheDir, log)
		if err != nil {
			return "", types.Transcript{}, err
		}
		srtPath = path
	}

	if srtPath == "" {
		return "", types.Transcript{}, nil
	}

	data, err := os.ReadFile(srtPath)
	if err != nil {
		return "", types.Transcript{}, fmt.Errorf("read subtitles: %w", err)
	}
	tr, err := subtitles.Parse(string(data))
	if err != nil {
		return "", types.Transcript{}, fmt.Errorf("parse %s: %w", srtPath, err)
	}
	return srtPath, tr, nil
}

// transcribe extracts mono 16k audio and runs whisper.cpp, then writes the
// SRT next to the video so later runs pick it up without re-transcribing.
func transcribe(ctx context.Context, p Params, video ports.VideoTool, cacheDir string, log zerolog.Logger) (string, error) {
	log.Info().Msg("no subtitles found, transcribing")

	wav := filepath.Join(cacheDir, "audio.wav")
	if err := video.ExtractAudioMono16k(ctx, p.InputVideo, wav); err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}

	asr := whispercpp.New(p.Cfg.Whisper.Bin, p.Cfg.Whisper.Model)
	tr, err := asr.Transcribe(ctx, wav, cacheDir)
	if err != nil {
		return "", err
	}

	srtPath := strings.TrimSuffix(p.InputVideo, filepath.Ext(p.InputVideo)) + ".srt"
	if err := os.WriteFile(srtPath, []byte(subtitles.Render(tr)), 0o644); err != nil {
		return "", fmt.Errorf("write transcription: %w", err)
	}
	log.Info().Str("srt", srtPath).Msg("transcription saved")
	return srtPath, nil
}

// resolveProposals turns either the manual span or a provider response into
// validated proposals. Provider responses go through the cuts cache first; a
// cached response that no longer parses is regenerated once.
func resolveProposals(ctx context.Context, p Params, tr types.Transcript, srtPath string, videoDuration time.Duration, log zerolog.Logger) ([]types.ClipProposal, error) {
	if p.Manual != nil {
		start, err := selection.ParseTimestamp(p.Manual.Start)
		if err != nil {
			return nil, fmt.Errorf("manual start: %w", err)
		}
		end, err := selection.ParseTimestamp(p.Manual.End)
		if err != nil {
			return nil, fmt.Errorf("manual end: %w", err)
		}
		clip, err := selection.Manual(start, end, p.Manual.Title, videoDuration)
		if err != nil {
			return nil, err
		}
		return []types.ClipProposal{clip}, nil
	}

	if srtPath == "" {
		return nil, fmt.Errorf("%w: ranking requires a transcript", ports.ErrRankingUnavailable)
	}
	srtText, err := os.ReadFile(srtPath)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	ranker, err := newRanker(p.Provider, p.Model)
	if err != nil {
		return nil, err
	}

	raw, err := rankWithCache(ctx, ranker, string(srtText), cutsCachePath(p.InputVideo), log)
	if err != nil {
		return nil, err
	}

	bounds := selection.Bounds{
		Min: time.Duration(p.Cfg.Clip.MinSeconds * float64(time.Second)),
		Max: time.Duration(p.Cfg.Clip.MaxSeconds * float64(time.Second)),
	}
	proposals, rejections := selection.Select(tr, raw, bounds, videoDuration)
	for _, r := range rejections {
		log.Warn().Int("proposal", r.Index+1).Str("title", r.Title).Str("reason", r.Reason).Msg("proposal rejected")
	}
	return proposals, nil
}

// rankWithCache replays the cached provider response when one exists and
// still parses; otherwise it asks the provider and caches the raw text.
func rankWithCache(ctx context.Context, ranker ports.Ranker, transcript, cachePath string, log zerolog.Logger) ([]types.RawProposal, error) {
	if cached, ok := loadCutsCache(cachePath, log); ok {
		raw, err := selection.ParseRankingResponse(cached)
		if err == nil {
			log.Info().Str("cache", cachePath).Msg("using cached cuts")
			return raw, nil
		}
		log.Warn().Err(err).Msg("cached cuts are invalid, regenerating")
	}

	log.Info().Str("provider", ranker.Name()).Msg("analyzing transcript")
	response, err := ranker.FindClips(ctx, transcript)
	if err != nil {
		return nil, err
	}
	raw, err := selection.ParseRankingResponse(response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrRankingUnavailable, err)
	}

	saveCutsCache(cachePath, response, log)
	return raw, nil
}

func newRanker(provider, model string) (ports.Ranker, error) {
	switch provider {
	case "openai":
		return openai.New(os.Getenv("OPENAI_API_KEY"), model), nil
	case "gemini":
		return gemini.New(os.Getenv("GEMINI_API_KEY"), model, os.Getenv("GEMINI_BASE_URL")), nil
	case "ollama":
		return ollama.New(model, os.Getenv("OLLAMA_HOST")), nil
	default:
		return nil, fmt.Errorf("unknown provider %q, expected one of: openai, gemini, ollama", provider)
	}
}

func findExistingSRT(videoPath string) string {
	srtPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".srt"
	if fi, err := os.Stat(srtPath); err == nil && !fi.IsDir() {
		return srtPath
	}
	return ""
}

func cutsCachePath(videoPath string) string {
	dir := filepath.Dir(videoPath)
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, cutsCacheFilename)
}

type cutsCache struct {
	Response string `json:"response"`
}

func loadCutsCache(path string, log zerolog.Logger) (string, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	var c cutsCache
	if err := json.Unmarshal(b, &c); err == nil && c.Response != "" {
		return c.Response, true
	}

	// Older caches stored the provider payload directly.
	t := strings.TrimSpace(string(b))
	if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		if json.Valid([]byte(t)) {
			return t, true
		}
	}

	log.Warn().Str("cache", path).Msg("invalid cuts cache format")
	return "", false
}

func saveCutsCache(path, response string, log zerolog.Logger) {
	b, err := json.MarshalIndent(cutsCache{Response: response}, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		log.Warn().Err(err).Str("cache", path).Msg("cuts cache not written")
		return
	}
	log.Info().Str("cache", path).Msg("saved cuts cache")
}

func buildRunOutDir(outRoot, inputVideo string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputVideo), filepath.Ext(inputVideo))
	name = usecase.SafeSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputVideo, now.UTC().UnixNano())
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, hash(runSeed)[:6]))
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
