// Package classifier turns a redacted customer message into an IntentResult.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

var _ contractx.Classifier = (*LLMClassifier)(nil)

const (
	defaultTimeout = 8 * time.Second
	defaultRetries = 1
)

type classifierLLMOutput struct {
	Intent     string         `json:"intent"`
	Confidence *float64       `json:"confidence"`
	Emotion    string         `json:"emotion"`
	Entities   map[string]any `json:"entities,omitempty"`
}

type Option func(*LLMClassifier)

func WithTimeout(d time.Duration) Option {
	return func(c *LLMClassifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how many extra attempts follow a failed invoke.
func WithRetries(n int) Option {
	return func(c *LLMClassifier) {
		if n >= 0 {
			c.retries = n
		}
	}
}

type LLMClassifier struct {
	runner  compose.Runnable[map[string]any, classifierLLMOutput]
	timeout time.Duration
	retries int
}

func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, opts ...Option) (*LLMClassifier, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: classifier prompt", contractx.ErrPromptMissing)
	}
	runner, err := compileClassifierGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}

	c := &LLMClassifier{
		runner:  runner,
		timeout: defaultTimeout,
		retries: defaultRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify never fails. Any invoke or schema problem yields contract.DegradedIntent.
func (c *LLMClassifier) Classify(ctx context.Context, text string, hints contractx.ClassifyHints) contractx.IntentResult {
	out, err := c.classify(ctx, text, hints)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("classifier degraded")
		return contractx.DegradedIntent()
	}
	return out
}

func (c *LLMClassifier) classify(ctx context.Context, text string, hints contractx.ClassifyHints) (contractx.IntentResult, error) {
	if strings.TrimSpace(text) == "" {
		return contractx.IntentResult{}, fmt.Errorf("%w: empty text", contractx.ErrValidation)
	}

	payload := map[string]any{
		"message":      text,
		"has_location": hints.HasLocation,
	}
	if hints.WeatherContext != "" {
		payload["weather_context"] = hints.WeatherContext
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.IntentResult{}, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out classifierLLMOutput
	for attempt := 0; attempt <= c.retries; attempt++ {
		out, err = c.runner.Invoke(ctx, map[string]any{
			"input": string(input),
		})
		if err == nil || ctx.Err() != nil {
			break
		}
		log.Ctx(ctx).Debug().Err(err).Int("attempt", attempt+1).Msg("classifier invoke failed")
	}
	if err != nil {
		return contractx.IntentResult{}, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}

	return toIntentResult(out)
}

func toIntentResult(out classifierLLMOutput) (contractx.IntentResult, error) {
	intent, ok := contractx.ParseIntent(out.Intent)
	if !ok {
		return contractx.IntentResult{}, fmt.Errorf("%w: unknown intent=%q", contractx.ErrSchemaViolation, out.Intent)
	}
	if out.Confidence == nil {
		return contractx.IntentResult{}, fmt.Errorf("%w: confidence is required", contractx.ErrSchemaViolation)
	}
	conf := *out.Confidence
	if math.IsNaN(conf) || conf < 0 || conf > 1 {
		return contractx.IntentResult{}, fmt.Errorf("%w: confidence=%v out of range", contractx.ErrSchemaViolation, conf)
	}

	return contractx.IntentResult{
		Intent:     intent,
		Confidence: conf,
		Emotion:    contractx.ParseEmotion(out.Emotion),
		Entities:   stringifyEntities(out.Entities),
	}, nil
}

func stringifyEntities(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		s, ok := stringify(v)
		if !ok {
			continue
		}
		out[key] = s
	}
	return out
}

func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
