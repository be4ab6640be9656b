// Package whispercpp transcribes audio by shelling out to a whisper.cpp
// binary and reading its JSON output.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dkotenko/clipcut/internal/ports"
	"github.com/dkotenko/clipcut/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

var _ ports.ASR = (*Adapter)(nil)

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	if _, err := os.Stat(a.model); err != nil {
		return types.Transcript{}, fmt.Errorf("%w: model %s: %v", ports.ErrTranscriptionUnavailable, a.model, err)
	}

	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-owts",
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("%w: whisper.cpp: %v\n%s", ports.ErrTranscriptionUnavailable, err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, fmt.Errorf("%w: %v", ports.ErrTranscriptionUnavailable, err)
	}

	var tr types.Transcript
	if err := json.Unmarshal(jb, &tr); err != nil {
		return types.Transcript{}, fmt.Errorf("%w: parse whisper output: %v", ports.ErrTranscriptionUnavailable, err)
	}
	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
		for j := range tr.Segments[i].Words {
			tr.Segments[i].Words[j].Word = strings.TrimSpace(tr.Segments[i].Words[j].Word)
		}
	}
	if len(tr.Segments) == 0 {
		return types.Transcript{}, fmt.Errorf("%w: whisper produced no segments", ports.ErrTranscriptionUnavailable)
	}
	return tr, nil
}
