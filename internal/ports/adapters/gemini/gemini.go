// Package gemini ranks transcripts through the Google Generative Language
// API. Gemini has no system role on this endpoint, so both prompt parts go
// into one user message.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dkotenko/clipcut/internal/ports"
	"github.com/dkotenko/clipcut/internal/ports/adapters/prompts"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	requestTimeout = 90 * time.Second
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

var _ ports.Ranker = (*Adapter)(nil)

func New(apiKey, model, baseURL string) *Adapter {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

func (a *Adapter) Name() string { return "gemini" }

func (a *Adapter) FindClips(ctx context.Context, transcript string) (string, error) {
	if a.key == "" {
		return "", fmt.Errorf("%w: gemini requires GEMINI_API_KEY to be set", ports.ErrRankingUnavailable)
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompts.Combined(transcript)}}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.baseURL, a.model)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.key)

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: gemini timeout after %s (model=%s)", ports.ErrRankingUnavailable, requestTimeout, a.model)
		}
		return "", fmt.Errorf("%w: gemini: %v", ports.ErrRankingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("%w: gemini status %d and read body failed: %v", ports.ErrRankingUnavailable, resp.StatusCode, readErr)
		}
		return "", fmt.Errorf("%w: gemini status %d: %s", ports.ErrRankingUnavailable, resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("%w: decode gemini response: %v", ports.ErrRankingUnavailable, err)
	}
	if len(raw.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", ports.ErrRankingUnavailable)
	}

	var b strings.Builder
	for _, p := range raw.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", fmt.Errorf("%w: gemini returned an empty response", ports.ErrRankingUnavailable)
	}
	return content, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;&]+)`)
	googKeyRE     = regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{30,}\b`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = googKeyRE.ReplaceAllString(out, "[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
