// Package selection turns a transcript plus ranking output into validated,
// non-overlapping clip proposals.
package selection

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dkotenko/clipcut/internal/types"
)

// ErrInvalidRange reports a manual clip whose bounds are unusable.
var ErrInvalidRange = errors.New("invalid clip range")

// Bounds is the allowed clip duration window.
type Bounds struct {
	Min time.Duration
	Max time.Duration
}

// Rejection is a non-fatal per-proposal diagnostic. Processing continues
// with the remaining proposals.
type Rejection struct {
	Index  int
	Title  string
	Reason string
}

// Manual validates one caller-supplied (start, end, title) triple against the
// video duration. Duration bounds do not apply in manual mode.
func Manual(start, end time.Duration, title string, videoDuration time.Duration) (types.ClipProposal, error) {
	if start >= end {
		return types.ClipProposal{}, fmt.Errorf("%w: start %s >= end %s", ErrInvalidRange, start, end)
	}
	if start < 0 || end > videoDuration {
		return types.ClipProposal{}, fmt.Errorf("%w: [%s, %s] outside [0, %s]", ErrInvalidRange, start, end, videoDuration)
	}
	if strings.TrimSpace(title) == "" {
		title = "clip"
	}
	return types.ClipProposal{Start: start, End: end, Title: title}, nil
}

// Select validates ranking-provider proposals against the transcript and
// duration bounds, assembles rationale text from overlapping transcript
// segments, and resolves overlaps deterministically. Given identical inputs
// the output is identical: ordering depends only on provider scores and
// start times, never on wall clock or randomness.
func Select(tr types.Transcript, raw []types.RawProposal, bounds Bounds, videoDuration time.Duration) ([]types.ClipProposal, []Rejection) {
	var (
		proposals  []types.ClipProposal
		rejections []Rejection
	)

	for i, rp := range raw {
		p, reason := validate(tr, rp, bounds, videoDuration)
		if reason != "" {
			rejections = append(rejections, Rejection{Index: i, Title: rp.Title, Reason: reason})
			continue
		}
		proposals = append(proposals, p)
	}

	ranked := rank(proposals)

	// Overlap resolution in rank order: the later-ranked proposal's start is
	// truncated to the earlier one's end; a proposal that shrinks below the
	// minimum duration is dropped.
	var out []types.ClipProposal
	for _, p := range ranked {
		truncated := false
		for _, a := range out {
			if p.Start < a.End && p.End > a.Start {
				if a.End > p.Start {
					p.Start = a.End
					truncated = true
				}
			}
		}
		if p.End <= p.Start || (truncated && p.Duration() < bounds.Min) {
			rejections = append(rejections, Rejection{Title: p.Title, Reason: "overlap truncation left no usable duration"})
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, rejections
}

func validate(tr types.Transcript, rp types.RawProposal, bounds Bounds, videoDuration time.Duration) (types.ClipProposal, string) {
	start, err := ParseTimestamp(rp.StartTime)
	if err != nil {
		return types.ClipProposal{}, fmt.Sprintf("start_time: %v", err)
	}
	end, err := ParseTimestamp(rp.EndTime)
	if err != nil {
		return types.ClipProposal{}, fmt.Sprintf("end_time: %v", err)
	}
	if start >= end {
		return types.ClipProposal{}, fmt.Sprintf("start %s >= end %s", start, end)
	}
	if start < 0 || start >= videoDuration {
		return types.ClipProposal{}, fmt.Sprintf("start %s outside video", start)
	}
	if end > videoDuration {
		end = videoDuration
	}

	// Duration clamping trims from the end, keeping the model's chosen
	// opening hook intact. Too-short proposals cannot be trimmed into range
	// and are dropped.
	if end-start > bounds.Max {
		end = start + bounds.Max
	}
	if end-start < bounds.Min {
		return types.ClipProposal{}, fmt.Sprintf("duration %s below minimum %s", end-start, bounds.Min)
	}

	title := strings.TrimSpace(rp.Title)
	if title == "" {
		title = "clip"
	}

	rationale := assembleRationale(tr, start, end)
	if rationale == "" {
		rationale = strings.TrimSpace(rp.Reason)
	}

	return types.ClipProposal{
		Start:     start,
		End:       end,
		Title:     title,
		Rationale: rationale,
		Score:     rp.Score,
	}, ""
}

// assembleRationale joins the text of transcript segments overlapping the
// proposal's span.
func assembleRationale(tr types.Transcript, start, end time.Duration) string {
	var parts []string
	for _, s := range tr.Segments {
		ss := dur(s.Start)
		se := dur(s.End)
		if se <= start || ss >= end {
			continue
		}
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// rank orders proposals by descending provider score, falling back to start
// time when no proposal carries a score.
func rank(proposals []types.ClipProposal) []types.ClipProposal {
	out := make([]types.ClipProposal, len(proposals))
	copy(out, proposals)

	scored := false
	for _, p := range out {
		if p.Score != 0 {
			scored = true
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if scored && out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Start < out[j].Start
	})
	return out
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
