package types

import "time"

type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// RawProposal is one entry of a ranking-provider response before validation.
// Timestamps arrive in whatever string shape the model produced; the selector
// owns parsing and clamping.
type RawProposal struct {
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Title     string  `json:"title"`
	Reason    string  `json:"reason,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// ClipProposal is a validated candidate span. Proposals emitted by one
// selection pass are pairwise non-overlapping.
type ClipProposal struct {
	Start     time.Duration
	End       time.Duration
	Title     string
	Rationale string
	Score     float64
}

func (c ClipProposal) Duration() time.Duration { return c.End - c.Start }

type Manifest struct {
	Input string         `json:"input"`
	Clips []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID        string  `json:"id"`
	StartSec  float64 `json:"start_sec"`
	EndSec    float64 `json:"end_sec"`
	Title     string  `json:"title"`
	Rationale string  `json:"rationale,omitempty"`
	File      string  `json:"file"`
	Subtitles string  `json:"subtitles,omitempty"`
	Encoder   string  `json:"encoder,omitempty"`
	Status    string  `json:"status"`
	Error     string  `json:"error,omitempty"`
}
