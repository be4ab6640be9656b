package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkotenko/clipcut/internal/ports"
)

func TestFindClips(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "llama3" || body.Stream {
			t.Errorf("model=%q stream=%v", body.Model, body.Stream)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("unexpected messages %+v", body.Messages)
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"{\"clips\":[]}"}}`))
	}))
	defer srv.Close()

	a := New("llama3", srv.URL)
	got, err := a.FindClips(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"clips":[]}` {
		t.Fatalf("got %q", got)
	}
}

func TestFindClips_ServerDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	a := New("llama3", srv.URL)
	_, err := a.FindClips(context.Background(), "x")
	if !errors.Is(err, ports.ErrRankingUnavailable) {
		t.Fatalf("expected ErrRankingUnavailable, got %v", err)
	}
}

func TestFindClips_EmptyContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":""}}`))
	}))
	defer srv.Close()

	a := New("llama3", srv.URL)
	_, err := a.FindClips(context.Background(), "x")
	if !errors.Is(err, ports.ErrRankingUnavailable) {
		t.Fatalf("expected ErrRankingUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Errorf("error should mention empty response: %v", err)
	}
}
