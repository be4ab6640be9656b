// Package ffmpeg shells out to ffmpeg/ffprobe for media probing, sampling,
// silence scanning and encoding.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkotenko/clipcut/internal/ports"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
	log     zerolog.Logger
}

var _ ports.VideoTool = (*Adapter)(nil)

func New(logger zerolog.Logger) *Adapter {
	return &Adapter{
		ffmpeg:  "ffmpeg",
		ffprobe: "ffprobe",
		log:     logger.With().Str("component", "ffmpeg").Logger(),
	}
}

func (a *Adapter) Probe(ctx context.Context, in string) (ports.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		in,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return ports.VideoInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, tail(b, 500))
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			Width      int    `json:"width"`
			Height     int    `json:"height"`
			RFrameRate string `json:"r_frame_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return ports.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := ports.VideoInfo{}
	if sec, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(sec * float64(time.Second))
	}
	for _, s := range probe.Streams {
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			info.FPS = parseFrameRate(s.RFrameRate)
			break
		}
	}
	if info.Duration <= 0 {
		return ports.VideoInfo{}, fmt.Errorf("ffprobe reported no duration for %s", in)
	}
	return info, nil
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, tail(b, 500))
	}
	return nil
}

// VAAPIAvailable reports whether the render device exists and is accessible.
func VAAPIAvailable(device string) bool {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// parseFrameRate converts ffprobe's "30000/1001" form.
func parseFrameRate(s string) float64 {
	parts := strings.SplitN(s, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func tail(b []byte, n int) string {
	s := string(b)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
