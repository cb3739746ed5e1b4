// Package generator renders the customer-facing reply from a GenerationContext.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

var _ contractx.Generator = (*OpenAIGenerator)(nil)

type OpenAIConfig struct {
	Model        string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	Timeout      time.Duration
}

// OpenAIGenerator calls a chat completions endpoint with the whole context as one
// JSON user message.
type OpenAIGenerator struct {
	client *openaisdk.Client
	cfg    OpenAIConfig
}

func NewOpenAI(client *openaisdk.Client, cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if client == nil {
		return nil, errors.New("generator: openai client is nil")
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		return nil, fmt.Errorf("%w: generator prompt", contractx.ErrPromptMissing)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: generator model is required", contractx.ErrValidation)
	}
	return &OpenAIGenerator{client: client, cfg: cfg}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, in contractx.GenerationContext) (string, error) {
	input, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("%w: marshal generation context: %v", contractx.ErrValidation, err)
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(g.cfg.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(g.cfg.SystemPrompt),
			openaisdk.UserMessage(string(input)),
		},
		Temperature: openaisdk.Float(float64(g.cfg.Temperature)),
	}
	if g.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(g.cfg.MaxTokens))
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", contractx.ErrSchemaViolation)
	}
	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", contractx.ErrSchemaViolation)
	}
	return reply, nil
}
