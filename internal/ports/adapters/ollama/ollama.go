// Package ollama ranks transcripts through a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkotenko/clipcut/internal/ports"
	"github.com/dkotenko/clipcut/internal/ports/adapters/prompts"
)

const (
	defaultBaseURL = "http://localhost:11434"
	requestTimeout = 5 * time.Minute
)

type Adapter struct {
	model   string
	baseURL string
	client  *http.Client
}

var _ ports.Ranker = (*Adapter)(nil)

func New(model, baseURL string) *Adapter {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (a *Adapter) Name() string { return "ollama" }

func (a *Adapter) FindClips(ctx context.Context, transcript string) (string, error) {
	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]string{
			{"role": "system", "content": prompts.System},
			{"role": "user", "content": prompts.User(transcript)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", a.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: ollama timeout after %s (model=%s)", ports.ErrRankingUnavailable, requestTimeout, a.model)
		}
		return "", fmt.Errorf("%w: ollama at %s: %v", ports.ErrRankingUnavailable, a.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama status %d: %s", ports.ErrRankingUnavailable, resp.StatusCode, truncate(string(rb), 400))
	}

	var raw struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("%w: decode ollama response: %v", ports.ErrRankingUnavailable, err)
	}

	content := strings.TrimSpace(raw.Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: ollama returned an empty response", ports.ErrRankingUnavailable)
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
