package classifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

type fakeChatModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	errs      []error
	block     bool
	calls     int
	inputs    [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	return f.responses[idx], nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func newTestClassifier(t *testing.T, fake *fakeChatModel, opts ...Option) *LLMClassifier {
	t.Helper()
	c, err := New(context.Background(), fake, "classifier prompt", opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClassifySuccess(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"intent":"order_status","confidence":0.92,"emotion":"Frustrated","entities":{"order_id":1234,"rush":true,"store_id":" starbucks_phoenix ","empty":""}}`},
		},
	}
	c := newTestClassifier(t, fake)

	out := c.Classify(context.Background(), "where is order 1234", contractx.ClassifyHints{HasLocation: true})
	if out.Degraded {
		t.Fatalf("unexpected degraded result: %#v", out)
	}
	if out.Intent != contractx.IntentOrderStatus || out.Confidence != 0.92 {
		t.Fatalf("unexpected intent result: %#v", out)
	}
	if out.Emotion != contractx.EmotionFrustrated {
		t.Fatalf("unexpected emotion: %s", out.Emotion)
	}
	if out.Entities["order_id"] != "1234" || out.Entities["rush"] != "true" || out.Entities["store_id"] != "starbucks_phoenix" {
		t.Fatalf("unexpected entities: %#v", out.Entities)
	}
	if _, ok := out.Entities["empty"]; ok {
		t.Fatalf("empty entity kept: %#v", out.Entities)
	}

	user := fake.inputs[0][len(fake.inputs[0])-1].Content
	if !strings.Contains(user, `"has_location":true`) || !strings.Contains(user, "where is order 1234") {
		t.Fatalf("unexpected user payload: %s", user)
	}
}

func TestClassifyUnknownEmotionIsNeutral(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{{Content: `{"intent":"store_hours","confidence":0.8,"emotion":"ecstatic"}`}},
	}
	out := newTestClassifier(t, fake).Classify(context.Background(), "open?", contractx.ClassifyHints{})
	if out.Emotion != contractx.EmotionNeutral || out.Intent != contractx.IntentStoreHours {
		t.Fatalf("unexpected result: %#v", out)
	}
	if out.Entities == nil {
		t.Fatalf("entities must not be nil")
	}
}

func TestClassifyDegradesOnBadOutput(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown intent":      `{"intent":"refund","confidence":0.9,"emotion":"neutral"}`,
		"confidence too high": `{"intent":"store_hours","confidence":1.5,"emotion":"neutral"}`,
		"negative confidence": `{"intent":"store_hours","confidence":-0.1,"emotion":"neutral"}`,
		"missing confidence":  `{"intent":"store_hours","emotion":"neutral"}`,
		"not json":            `store_hours please`,
	}
	for name, content := range cases {
		name, content := name, content
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			fake := &fakeChatModel{responses: []*schema.Message{{Content: content}, {Content: content}}}
			out := newTestClassifier(t, fake).Classify(context.Background(), "hello", contractx.ClassifyHints{})
			want := contractx.DegradedIntent()
			if out.Intent != want.Intent || out.Confidence != want.Confidence || out.Emotion != want.Emotion || !out.Degraded {
				t.Fatalf("Classify() = %#v, want degraded", out)
			}
		})
	}
}

func TestClassifyRetriesOnceAfterInvokeFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		errs:      []error{errors.New("upstream 502")},
		responses: []*schema.Message{nil, {Content: `{"intent":"stock_check","confidence":0.75,"emotion":"neutral","entities":{"product":"latte"}}`}},
	}
	out := newTestClassifier(t, fake).Classify(context.Background(), "latte in stock?", contractx.ClassifyHints{})
	if out.Degraded || out.Intent != contractx.IntentStockCheck {
		t.Fatalf("expected retry to succeed, got %#v", out)
	}
	if fake.calls != 2 {
		t.Fatalf("calls = %d, want 2", fake.calls)
	}
}

func TestClassifyGivesUpAfterRetry(t *testing.T) {
	t.Parallel()

	boom := errors.New("upstream down")
	fake := &fakeChatModel{errs: []error{boom, boom, boom}}
	out := newTestClassifier(t, fake).Classify(context.Background(), "hello", contractx.ClassifyHints{})
	if !out.Degraded {
		t.Fatalf("expected degraded result, got %#v", out)
	}
	if fake.calls != 2 {
		t.Fatalf("calls = %d, want 2", fake.calls)
	}
}

func TestClassifyTimeoutDegrades(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{block: true}
	c := newTestClassifier(t, fake, WithTimeout(20*time.Millisecond))

	start := time.Now()
	out := c.Classify(context.Background(), "hello", contractx.ClassifyHints{})
	if !out.Degraded {
		t.Fatalf("expected degraded result, got %#v", out)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout not honoured, took %s", elapsed)
	}
}

func TestNewRequiresPrompt(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), &fakeChatModel{}, "  ")
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("New() error = %v, want ErrPromptMissing", err)
	}
}

func TestKeywordClassifier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text       string
		intent     contractx.Intent
		emotion    contractx.Emotion
		entityKey  string
		entityWant string
	}{
		{"Is your store open?", contractx.IntentStoreHours, contractx.EmotionNeutral, "", ""},
		{"I'm cold", contractx.IntentOther, contractx.EmotionCold, "", ""},
		{"Where is my order #1234? still waiting", contractx.IntentOrderStatus, contractx.EmotionFrustrated, "order_id", "1234"},
		{"Do you have hot chocolate at downtown?", contractx.IntentStockCheck, contractx.EmotionNeutral, "product", "hot_cocoa"},
		{"closest store to me", contractx.IntentLocationRecommendation, contractx.EmotionNeutral, "", ""},
		{"any deal? I have HOT10", contractx.IntentProductRecommendation, contractx.EmotionNeutral, "coupon_code", "HOT10"},
	}
	k := NewKeyword()
	for _, tc := range cases {
		out := k.Classify(context.Background(), tc.text, contractx.ClassifyHints{})
		if out.Intent != tc.intent || out.Emotion != tc.emotion {
			t.Fatalf("%q: got intent=%s emotion=%s", tc.text, out.Intent, out.Emotion)
		}
		if tc.intent == contractx.IntentOther && out.Confidence >= 0.7 {
			t.Fatalf("%q: confidence %v should stay below threshold", tc.text, out.Confidence)
		}
		if tc.intent != contractx.IntentOther && out.Confidence < 0.7 {
			t.Fatalf("%q: confidence %v should reach threshold", tc.text, out.Confidence)
		}
		if tc.entityKey != "" && out.Entities[tc.entityKey] != tc.entityWant {
			t.Fatalf("%q: entity %s = %q, want %q", tc.text, tc.entityKey, out.Entities[tc.entityKey], tc.entityWant)
		}
	}
}
