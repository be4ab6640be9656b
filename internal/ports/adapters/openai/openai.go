// Package openai ranks transcripts through the OpenAI chat completions API.
package openai

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dkotenko/clipcut/internal/ports"
	"github.com/dkotenko/clipcut/internal/ports/adapters/prompts"
)

type Adapter struct {
	client sdk.Client
	model  string
}

var _ ports.Ranker = (*Adapter)(nil)

func New(apiKey, model string) *Adapter {
	return &Adapter{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (a *Adapter) Name() string { return "openai" }

func (a *Adapter) FindClips(ctx context.Context, transcript string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(a.model),
		Temperature: sdk.Float(0.3),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(prompts.System),
			sdk.UserMessage(prompts.User(transcript)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %v", ports.ErrRankingUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", ports.ErrRankingUnavailable)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: openai returned an empty response", ports.ErrRankingUnavailable)
	}
	return content, nil
}
