// Package renderplan composes silence cuts, crop motion, overlays and speed
// adjustment into one declarative encode plan per clip. Plans are immutable
// derived values: the hardware-to-software fallback produces a new plan with
// identical cut/crop/overlay semantics and different encoder parameters.
package renderplan

import (
	"strings"
	"time"

	"github.com/dkotenko/clipcut/internal/domain/framing"
	"github.com/dkotenko/clipcut/internal/domain/silence"
	"github.com/dkotenko/clipcut/internal/ports"
	"github.com/dkotenko/clipcut/internal/types"
)

// DefaultSpeed is the uniform playback factor applied after cuts.
const DefaultSpeed = 1.2

type EncoderProfile struct {
	Name        string
	Hardware    bool
	VAAPIDevice string
	VideoCodec  string
	VideoArgs   []string
	AudioCodec  string
	AudioArgs   []string
}

// Overlays describes the title lines, burned subtitle track and call to
// action drawn onto the output frame. Positions in the filter graph are in
// output canvas coordinates.
type Overlays struct {
	TitleLine1 string
	TitleLine2 string

	// SubtitlePath is a source-time SRT burned before retiming; baked-in
	// text follows the cut and sped frames automatically.
	SubtitlePath string
}

// Plan is the complete declarative description of one clip encode. It is
// owned by the orchestrator for the duration of one encode invocation.
type Plan struct {
	Clip  types.ClipProposal
	Crop  []framing.CropWindow
	Speed float64

	// Cuts are the kept spans in clip-local time, complement of the silence
	// intervals. Empty means the whole clip plays through.
	Cuts []ports.SilenceInterval

	Overlays Overlays
	Profile  EncoderProfile

	// SilenceSkipped reports that the removal guard fired: cutting would
	// have dropped too much of the clip, so silence removal was ignored.
	SilenceSkipped bool
}

type Params struct {
	Clip         types.ClipProposal
	Crop         []framing.CropWindow
	Silence      []ports.SilenceInterval
	SubtitlePath string
	Speed        float64

	HWAccelAvailable bool
	VAAPIDevice      string

	MinKeep            time.Duration
	MaxRemovedFraction float64
}

// Build computes the cut set from silence intervals and selects the encoder
// profile. Cuts are computed on the original timeline before the speed
// factor applies, keeping silence timestamps valid against the un-sped
// source.
func Build(p Params) Plan {
	speed := p.Speed
	if speed <= 0 {
		speed = DefaultSpeed
	}

	clipDur := p.Clip.Duration()
	var cuts []ports.SilenceInterval
	skipped := false

	if len(p.Silence) > 0 && clipDur > 0 {
		keep := silence.Complement(p.Silence, clipDur, p.MinKeep)
		removed := clipDur - silence.Total(keep)
		maxRemoved := p.MaxRemovedFraction
		if maxRemoved <= 0 {
			maxRemoved = 1
		}

		switch {
		case float64(removed)/float64(clipDur) > maxRemoved:
			skipped = true
		case isFullDuration(keep, clipDur):
			// No significant silence; the normal single-span path encodes
			// faster than a one-segment concat.
		default:
			cuts = keep
		}
	}

	line1, line2 := splitTitle(p.Clip.Title)

	profile := softwareProfile()
	if p.HWAccelAvailable {
		profile = vaapiProfile(p.VAAPIDevice)
	}

	return Plan{
		Clip:  p.Clip,
		Crop:  p.Crop,
		Speed: speed,
		Cuts:  cuts,
		Overlays: Overlays{
			TitleLine1:   line1,
			TitleLine2:   line2,
			SubtitlePath: p.SubtitlePath,
		},
		Profile:        profile,
		SilenceSkipped: skipped,
	}
}

// Fallback returns the same plan with software encoder parameters. The cut,
// crop and overlay semantics are untouched, which makes the hardware retry
// safe to issue without recomputing anything.
func (p Plan) Fallback() Plan {
	p.Profile = softwareProfile()
	return p
}

func vaapiProfile(device string) EncoderProfile {
	return EncoderProfile{
		Name:        "vaapi",
		Hardware:    true,
		VAAPIDevice: device,
		VideoCodec:  "h264_vaapi",
		VideoArgs:   []string{"-qp", "23"},
		AudioCodec:  "aac",
		AudioArgs:   []string{"-b:a", "128k"},
	}
}

func softwareProfile() EncoderProfile {
	return EncoderProfile{
		Name:       "software",
		VideoCodec: "libx264",
		VideoArgs:  []string{"-crf", "23", "-preset", "fast"},
		AudioCodec: "aac",
		AudioArgs:  []string{"-b:a", "128k"},
	}
}

// isFullDuration reports a keep set that spans the whole clip within a small
// tolerance, i.e. silence detection found nothing worth cutting.
func isFullDuration(keep []ports.SilenceInterval, dur time.Duration) bool {
	const tolerance = 50 * time.Millisecond
	if len(keep) != 1 {
		return false
	}
	return keep[0].Start <= tolerance && keep[0].End >= dur-tolerance
}

// splitTitle breaks long titles into two roughly even drawtext lines; up to
// four words stay on one line.
func splitTitle(title string) (string, string) {
	words := strings.Fields(title)
	if len(words) <= 4 {
		return strings.Join(words, " "), ""
	}
	mid := (len(words) + 1) / 2
	return strings.Join(words[:mid], " "), strings.Join(words[mid:], " ")
}
