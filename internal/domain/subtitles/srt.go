// Package subtitles parses and renders SRT. The full-timeline form keeps
// source timestamps and feeds the burn-in filter; the clip-local form
// shifts events to offsets from the clip start for standalone sidecar
// files.
package subtitles

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dkotenko/clipcut/internal/types"
)

// wordsPerCue keeps burned-in captions short enough to read on a vertical
// frame at 1.2x speed.
const wordsPerCue = 4

var timeLineRE = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})`)

// Parse converts SRT text into the transcript model. Cue indices are
// optional; malformed blocks are skipped rather than failing the file.
func Parse(text string) (types.Transcript, error) {
	var tr types.Transcript

	blocks := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	for _, block := range blocks {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}

		// Skip a leading numeric index line.
		ti := 0
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
			ti = 1
		}
		if ti >= len(lines) {
			continue
		}

		m := timeLineRE.FindStringSubmatch(lines[ti])
		if m == nil {
			continue
		}
		start := srtSeconds(m[1], m[2], m[3], m[4])
		end := srtSeconds(m[5], m[6], m[7], m[8])
		if end <= start {
			continue
		}

		body := strings.TrimSpace(strings.Join(lines[ti+1:], " "))
		if body == "" {
			continue
		}
		tr.Segments = append(tr.Segments, types.Segment{Start: start, End: end, Text: body})
	}

	if len(tr.Segments) == 0 {
		return types.Transcript{}, fmt.Errorf("no usable SRT cues found")
	}
	return tr, nil
}

// TimeMap remaps a clip-local timestamp onto the final output timeline,
// accounting for removed spans and the speed factor.
type TimeMap func(time.Duration) time.Duration

// RenderClip produces a clip-local SRT for the [start, end) span. Word
// timestamps drive short rolling cues when available; otherwise segment
// text is re-timed and clipped to the span.
func RenderClip(tr types.Transcript, start, end time.Duration) string {
	return RenderClipMapped(tr, start, end, nil)
}

// RenderClipMapped is RenderClip with cue times passed through m, so the
// sidecar stays in sync with a cut and sped-up render. Cues whose span
// collapses under the mapping are dropped.
func RenderClipMapped(tr types.Transcript, start, end time.Duration, m TimeMap) string {
	words := collectWords(tr, start, end, m)
	if len(words) > 0 {
		return renderWordCues(words)
	}
	return renderSegmentCues(tr, start, end, m)
}

// Render produces a full-timeline SRT for the whole transcript, used as the
// auto-transcription sidecar next to the source video.
func Render(tr types.Transcript) string {
	return RenderClip(tr, 0, dur(maxEnd(tr))+time.Second)
}

type timedWord struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

func collectWords(tr types.Transcript, start, end time.Duration, m TimeMap) []timedWord {
	var out []timedWord
	for _, s := range tr.Segments {
		for _, w := range s.Words {
			ws := dur(w.Start)
			we := dur(w.End)
			if we <= start || ws >= end {
				continue
			}
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			if ws < start {
				ws = start
			}
			if we > end {
				we = end
			}
			ws, we = ws-start, we-start
			if m != nil {
				ws, we = m(ws), m(we)
				if we <= ws {
					continue
				}
			}
			out = append(out, timedWord{Start: ws, End: we, Text: text})
		}
	}
	return out
}

func renderWordCues(words []timedWord) string {
	var b strings.Builder
	index := 1
	for i := 0; i < len(words); i += wordsPerCue {
		j := i + wordsPerCue
		if j > len(words) {
			j = len(words)
		}
		chunk := words[i:j]

		parts := make([]string, 0, len(chunk))
		for _, w := range chunk {
			parts = append(parts, w.Text)
		}
		writeCue(&b, index, chunk[0].Start, chunk[len(chunk)-1].End, strings.Join(parts, " "))
		index++
	}
	return b.String()
}

func renderSegmentCues(tr types.Transcript, start, end time.Duration, m TimeMap) string {
	var b strings.Builder
	index := 1
	for _, s := range tr.Segments {
		ss := dur(s.Start)
		se := dur(s.End)
		if se <= start || ss >= end {
			continue
		}
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if ss < start {
			ss = start
		}
		if se > end {
			se = end
		}
		ss, se = ss-start, se-start
		if m != nil {
			ss, se = m(ss), m(se)
			if se <= ss {
				continue
			}
		}
		writeCue(&b, index, ss, se, text)
		index++
	}
	return b.String()
}

func writeCue(b *strings.Builder, index int, start, end time.Duration, text string) {
	fmt.Fprintf(b, "%d\n%s --> %s\n%s\n\n", index, FormatTimestamp(start), FormatTimestamp(end), text)
}

// FormatTimestamp renders the SRT "HH:MM:SS,mmm" form.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms := int(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func srtSeconds(h, m, s, ms string) float64 {
	hi, _ := strconv.Atoi(h)
	mi, _ := strconv.Atoi(m)
	si, _ := strconv.Atoi(s)
	msi, _ := strconv.Atoi(ms)
	return float64(hi)*3600 + float64(mi)*60 + float64(si) + float64(msi)/1000
}

func nonEmptyLines(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func maxEnd(tr types.Transcript) float64 {
	var end float64
	for _, s := range tr.Segments {
		if s.End > end {
			end = s.End
		}
	}
	return end
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
