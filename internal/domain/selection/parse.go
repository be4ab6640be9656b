package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dkotenko/clipcut/internal/types"
)

// ParseRankingResponse extracts clip proposals from a provider's raw text.
// Providers are prompted for a bare JSON object but routinely wrap it in
// fences or prose, so the first top-level object is located best-effort.
func ParseRankingResponse(raw string) ([]types.RawProposal, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Clips []types.RawProposal `json:"clips"`
	}
	if err := json.Unmarshal([]byte(obj), &wrapped); err == nil && len(wrapped.Clips) > 0 {
		return wrapped.Clips, nil
	}

	// Some models return the list without the {"clips": ...} wrapper.
	var list []types.RawProposal
	if err := json.Unmarshal([]byte(obj), &list); err == nil && len(list) > 0 {
		return list, nil
	}

	return nil, fmt.Errorf("no clips found in ranking response: %s", truncate(raw, 200))
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("empty ranking response")
	}

	// Strip markdown code fences.
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	if start := strings.Index(t, "{"); start >= 0 {
		if end := strings.LastIndex(t, "}"); end > start {
			return t[start : end+1], nil
		}
	}
	if start := strings.Index(t, "["); start >= 0 {
		if end := strings.LastIndex(t, "]"); end > start {
			return t[start : end+1], nil
		}
	}
	return "", fmt.Errorf("could not locate JSON in ranking response: %q", truncate(t, 200))
}

// ParseTimestamp accepts "HH:MM:SS", "MM:SS", optional fractional seconds,
// or a bare seconds value.
func ParseTimestamp(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty timestamp")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("timestamp %q has too many fields", s)
	}

	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("timestamp %q is not parseable", s)
		}
		total = total*60 + v
	}
	return time.Duration(total * float64(time.Second)), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
