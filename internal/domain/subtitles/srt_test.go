package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/dkotenko/clipcut/internal/types"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,500
Hello there

2
00:00:03,500 --> 00:00:06,000
and welcome
back

garbage block without timings

3
00:00:06,000 --> 00:00:05,000
inverted times are skipped
`

func TestParse(t *testing.T) {
	t.Parallel()

	tr, err := Parse(sampleSRT)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(tr.Segments), tr.Segments)
	}
	if tr.Segments[0].Start != 1 || tr.Segments[0].End != 3.5 {
		t.Fatalf("bad first segment times: %+v", tr.Segments[0])
	}
	if tr.Segments[1].Text != "and welcome back" {
		t.Fatalf("multiline text not joined: %q", tr.Segments[1].Text)
	}
}

func TestParse_NoIndexLines(t *testing.T) {
	t.Parallel()

	tr, err := Parse("00:00:00,000 --> 00:00:02,000\nno index here\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tr.Segments) != 1 || tr.Segments[0].Text != "no index here" {
		t.Fatalf("unexpected segments: %+v", tr.Segments)
	}
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	if _, err := Parse("not srt at all"); err == nil {
		t.Fatal("expected error for unusable input")
	}
}

func TestRenderClip_ClipLocalTimes(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Segments: []types.Segment{
		{Start: 8, End: 12, Text: "before and inside"},
		{Start: 12, End: 18, Text: "fully inside"},
		{Start: 25, End: 30, Text: "after"},
	}}

	got := RenderClip(tr, 10*time.Second, 20*time.Second)
	if !strings.Contains(got, "00:00:00,000 --> 00:00:02,000") {
		t.Fatalf("first cue not clipped and shifted:\n%s", got)
	}
	if !strings.Contains(got, "00:00:02,000 --> 00:00:08,000") {
		t.Fatalf("second cue not shifted:\n%s", got)
	}
	if strings.Contains(got, "after") {
		t.Fatalf("out-of-range segment leaked into clip:\n%s", got)
	}
}

func TestRenderClip_WordCues(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Segments: []types.Segment{{
		Start: 0, End: 6, Text: "one two three four five six",
		Words: []types.Word{
			{Start: 0, End: 1, Word: "one"},
			{Start: 1, End: 2, Word: "two"},
			{Start: 2, End: 3, Word: "three"},
			{Start: 3, End: 4, Word: "four"},
			{Start: 4, End: 5, Word: "five"},
			{Start: 5, End: 6, Word: "six"},
		},
	}}}

	got := RenderClip(tr, 0, 6*time.Second)
	if !strings.Contains(got, "one two three four") {
		t.Fatalf("expected four-word cue:\n%s", got)
	}
	if !strings.Contains(got, "five six") {
		t.Fatalf("expected trailing cue:\n%s", got)
	}
	if strings.Count(got, "-->") != 2 {
		t.Fatalf("expected 2 cues:\n%s", got)
	}
}

func TestRenderClipMapped_RemapsAndDropsCollapsedCues(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Segments: []types.Segment{
		{Start: 10, End: 12, Text: "kept"},
		{Start: 14, End: 16, Text: "removed"},
		{Start: 17, End: 19, Text: "shifted"},
	}}

	// A map that halves times and collapses anything in [4s, 7s).
	m := func(t time.Duration) time.Duration {
		if t >= 4*time.Second && t < 7*time.Second {
			return 2 * time.Second
		}
		return t / 2
	}

	got := RenderClipMapped(tr, 10*time.Second, 20*time.Second, m)
	if !strings.Contains(got, "00:00:00,000 --> 00:00:01,000") {
		t.Fatalf("first cue not remapped:\n%s", got)
	}
	if strings.Contains(got, "removed") {
		t.Fatalf("collapsed cue should be dropped:\n%s", got)
	}
	if !strings.Contains(got, "00:00:03,500 --> 00:00:04,500") {
		t.Fatalf("late cue not remapped:\n%s", got)
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Segments: []types.Segment{
		{Start: 0.5, End: 2, Text: "first"},
		{Start: 3, End: 4.25, Text: "second"},
	}}

	back, err := Parse(Render(tr))
	if err != nil {
		t.Fatalf("Parse(Render): %v", err)
	}
	if len(back.Segments) != 2 || back.Segments[1].Text != "second" {
		t.Fatalf("round trip mismatch: %+v", back.Segments)
	}
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	if got := FormatTimestamp(3723*time.Second + 42*time.Millisecond); got != "01:02:03,042" {
		t.Fatalf("FormatTimestamp = %q", got)
	}
	if got := FormatTimestamp(-time.Second); got != "00:00:00,000" {
		t.Fatalf("negative duration should clamp to zero, got %q", got)
	}
}
