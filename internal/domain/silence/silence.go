// Package silence classifies and reshapes silent spans of a clip. It never
// touches media; cutting is the render plan builder's job, which keeps
// detection and editing independently testable.
package silence

import (
	"sort"
	"time"

	"github.com/dkotenko/clipcut/internal/ports"
)

// Merge sorts intervals and joins any two separated by a gap shorter than
// mergeGap, preventing micro-cuts on natural speech pauses. Merging an
// already-merged set is a no-op.
func Merge(intervals []ports.SilenceInterval, mergeGap time.Duration) []ports.SilenceInterval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]ports.SilenceInterval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := []ports.SilenceInterval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start <= last.End+mergeGap {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Clamp trims intervals to the clip's local [0, duration) range and drops
// anything that collapses to non-positive length.
func Clamp(intervals []ports.SilenceInterval, duration time.Duration) []ports.SilenceInterval {
	var out []ports.SilenceInterval
	for _, iv := range intervals {
		if iv.Start < 0 {
			iv.Start = 0
		}
		if iv.End > duration {
			iv.End = duration
		}
		if iv.End > iv.Start {
			out = append(out, iv)
		}
	}
	return out
}

// Complement returns the spans of [0, duration) not covered by the given
// sorted, non-overlapping silence intervals. Kept spans shorter than minKeep
// are dropped: a frame or two of residual audio between cuts reads as a
// glitch, not content.
func Complement(intervals []ports.SilenceInterval, duration, minKeep time.Duration) []ports.SilenceInterval {
	var out []ports.SilenceInterval
	cursor := time.Duration(0)
	for _, iv := range intervals {
		if iv.Start > cursor {
			out = append(out, ports.SilenceInterval{Start: cursor, End: iv.Start})
		}
		if iv.End > cursor {
			cursor = iv.End
		}
	}
	if cursor < duration {
		out = append(out, ports.SilenceInterval{Start: cursor, End: duration})
	}

	kept := out[:0]
	for _, iv := range out {
		if iv.End-iv.Start >= minKeep {
			kept = append(kept, iv)
		}
	}
	return kept
}

// Total is the summed length of a set of intervals.
func Total(intervals []ports.SilenceInterval) time.Duration {
	var sum time.Duration
	for _, iv := range intervals {
		sum += iv.End - iv.Start
	}
	return sum
}
