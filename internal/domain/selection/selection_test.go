package selection

import (
	"errors"
	"testing"
	"time"

	"github.com/dkotenko/clipcut/internal/types"
)

func sec(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }

func bounds() Bounds { return Bounds{Min: 15 * time.Second, Max: 60 * time.Second} }

func transcript() types.Transcript {
	return types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 10, Text: "intro"},
		{Start: 10, End: 30, Text: "the trick"},
		{Start: 30, End: 120, Text: "payoff"},
	}}
}

func TestManual_Valid(t *testing.T) {
	t.Parallel()

	p, err := Manual(sec(5), sec(25), "My Clip", sec(100))
	if err != nil {
		t.Fatalf("Manual: %v", err)
	}
	if p.Start != sec(5) || p.End != sec(25) || p.Title != "My Clip" {
		t.Fatalf("unexpected proposal: %+v", p)
	}
}

func TestManual_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		start, end time.Duration
	}{
		{"start after end", sec(30), sec(10)},
		{"start equals end", sec(10), sec(10)},
		{"end past duration", sec(10), sec(200)},
		{"negative start", sec(-1), sec(10)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Manual(tc.start, tc.end, "x", sec(100)); !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("want ErrInvalidRange, got %v", err)
			}
		})
	}
}

// Three ranked proposals of 20s, 70s and 10s against a [15s, 60s] window:
// the first passes unchanged, the second is trimmed from the end to 60s and
// the third is dropped.
func TestSelect_ClampAndDrop(t *testing.T) {
	t.Parallel()

	raw := []types.RawProposal{
		{StartTime: "00:00:05", EndTime: "00:00:25", Title: "first"},
		{StartTime: "00:01:00", EndTime: "00:02:10", Title: "second"},
		{StartTime: "00:03:00", EndTime: "00:03:10", Title: "third"},
	}

	got, rejected := Select(transcript(), raw, bounds(), sec(600))
	if len(got) != 2 {
		t.Fatalf("expected 2 proposals, got %d: %+v", len(got), got)
	}
	if got[0].Duration() != sec(20) {
		t.Fatalf("first proposal changed: %v", got[0].Duration())
	}
	if got[1].Duration() != sec(60) || got[1].Start != sec(60) {
		t.Fatalf("second proposal not trimmed from the end: %+v", got[1])
	}
	if len(rejected) != 1 || rejected[0].Title != "third" {
		t.Fatalf("expected third dropped, got %+v", rejected)
	}
}

func TestSelect_NoOverlapInOutput(t *testing.T) {
	t.Parallel()

	raw := []types.RawProposal{
		{StartTime: "0:10", EndTime: "0:40", Title: "a", Score: 9},
		{StartTime: "0:20", EndTime: "1:10", Title: "b", Score: 5},
		{StartTime: "2:00", EndTime: "2:30", Title: "c", Score: 7},
	}

	got, _ := Select(transcript(), raw, bounds(), sec(600))
	for i := 0; i < len(got); i++ {
		for j := i + 1; j < len(got); j++ {
			if got[i].Start < got[j].End && got[i].End > got[j].Start {
				t.Fatalf("proposals overlap: %+v / %+v", got[i], got[j])
			}
		}
	}
	// b is lower-ranked than a, so its start is truncated to a's end.
	for _, p := range got {
		if p.Title == "b" && p.Start != sec(40) {
			t.Fatalf("b not truncated to a's end: %+v", p)
		}
	}
}

func TestSelect_TruncationBelowMinDrops(t *testing.T) {
	t.Parallel()

	raw := []types.RawProposal{
		{StartTime: "0:00", EndTime: "0:50", Title: "winner", Score: 9},
		{StartTime: "0:45", EndTime: "1:02", Title: "loser", Score: 1},
	}

	got, rejected := Select(transcript(), raw, bounds(), sec(600))
	if len(got) != 1 || got[0].Title != "winner" {
		t.Fatalf("expected only winner, got %+v", got)
	}
	if len(rejected) != 1 {
		t.Fatalf("expected loser rejected, got %+v", rejected)
	}
}

func TestSelect_DurationBoundsAlwaysHold(t *testing.T) {
	t.Parallel()

	raw := []types.RawProposal{
		{StartTime: "0:00", EndTime: "0:05", Title: "tiny"},
		{StartTime: "0:10", EndTime: "5:00", Title: "huge"},
		{StartTime: "8:00", EndTime: "8:30", Title: "fine"},
	}

	got, _ := Select(transcript(), raw, bounds(), sec(600))
	b := bounds()
	for _, p := range got {
		if p.Duration() < b.Min || p.Duration() > b.Max {
			t.Fatalf("proposal outside bounds: %+v", p)
		}
	}
}

func TestSelect_RationaleFromTranscript(t *testing.T) {
	t.Parallel()

	raw := []types.RawProposal{{StartTime: "0:05", EndTime: "0:35", Title: "x", Reason: "model says so"}}
	got, _ := Select(transcript(), raw, bounds(), sec(600))
	if len(got) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(got))
	}
	if got[0].Rationale != "intro the trick payoff" {
		t.Fatalf("rationale = %q", got[0].Rationale)
	}
}

func TestSelect_Deterministic(t *testing.T) {
	t.Parallel()

	raw := []types.RawProposal{
		{StartTime: "0:10", EndTime: "0:40", Title: "a", Score: 3},
		{StartTime: "0:30", EndTime: "1:10", Title: "b", Score: 3},
		{StartTime: "2:00", EndTime: "2:40", Title: "c"},
	}

	first, _ := Select(transcript(), raw, bounds(), sec(600))
	for i := 0; i < 10; i++ {
		again, _ := Select(transcript(), raw, bounds(), sec(600))
		if len(again) != len(first) {
			t.Fatalf("run %d: length changed", i)
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d: output differs at %d: %+v vs %+v", i, j, first[j], again[j])
			}
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Duration{
		"00:01:30":   90 * time.Second,
		"01:30":      90 * time.Second,
		"90":         90 * time.Second,
		"00:00:05.5": 5500 * time.Millisecond,
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"", "a:b", "1:2:3:4", "-5"} {
		if _, err := ParseTimestamp(in); err == nil {
			t.Fatalf("ParseTimestamp(%q): expected error", in)
		}
	}
}

func TestParseRankingResponse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want int
	}{
		{"bare object", `{"clips":[{"start_time":"0:10","end_time":"0:40","title":"t"}]}`, 1},
		{"fenced", "```json\n{\"clips\":[{\"start_time\":\"0:10\",\"end_time\":\"0:40\",\"title\":\"t\"}]}\n```", 1},
		{"prose wrapped", `Here you go: {"clips":[{"start_time":"0:10","end_time":"0:40","title":"t"}]} enjoy`, 1},
		{"bare list", `[{"start_time":"0:10","end_time":"0:40","title":"t"},{"start_time":"1:00","end_time":"1:30","title":"u"}]`, 2},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRankingResponse(tc.in)
			if err != nil {
				t.Fatalf("ParseRankingResponse: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("got %d proposals, want %d", len(got), tc.want)
			}
		})
	}

	for _, in := range []string{"", "no json here", "{\"clips\":[]}"} {
		if _, err := ParseRankingResponse(in); err == nil {
			t.Fatalf("ParseRankingResponse(%q): expected error", in)
		}
	}
}
