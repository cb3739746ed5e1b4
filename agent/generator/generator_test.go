package generator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	specialistx "github.com/tanpawarit/auracx/agent/agents/specialist"
	catalogx "github.com/tanpawarit/auracx/agent/catalog"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *openaisdk.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := openaisdk.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return &client
}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func TestOpenAIGenerate(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("  Downtown is open until 9:00 PM.  ")))
	})

	gen, err := NewOpenAI(client, OpenAIConfig{Model: "test-model", SystemPrompt: "be nice", MaxTokens: 100, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}

	reply, err := gen.Generate(context.Background(), contractx.GenerationContext{
		Message: "call me at [PHONE]",
		Intent:  contractx.IntentStoreHours,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if reply != "Downtown is open until 9:00 PM." {
		t.Fatalf("reply = %q", reply)
	}

	if gotBody["model"] != "test-model" {
		t.Fatalf("model = %v", gotBody["model"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %#v", gotBody["messages"])
	}
	user, _ := msgs[1].(map[string]any)
	content, _ := user["content"].(string)
	if !strings.Contains(content, "[PHONE]") || !strings.Contains(content, `"intent":"store_hours"`) {
		t.Fatalf("user content = %s", content)
	}
}

func TestOpenAIGenerateErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"upstream failure", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, contractx.ErrModelInvoke},
		{"empty reply", http.StatusOK, completionBody("   "), contractx.ErrSchemaViolation},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			gen, err := NewOpenAI(client, OpenAIConfig{Model: "m", SystemPrompt: "p"})
			if err != nil {
				t.Fatalf("NewOpenAI() error = %v", err)
			}
			_, err = gen.Generate(context.Background(), contractx.GenerationContext{Message: "hi"})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Generate() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewOpenAIValidates(t *testing.T) {
	t.Parallel()

	client := openaisdk.NewClient(option.WithAPIKey("k"))
	if _, err := NewOpenAI(&client, OpenAIConfig{Model: "m"}); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}
	if _, err := NewOpenAI(&client, OpenAIConfig{SystemPrompt: "p"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := NewOpenAI(nil, OpenAIConfig{Model: "m", SystemPrompt: "p"}); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestTemplateStoreOpen(t *testing.T) {
	t.Parallel()

	reply, err := NewTemplate().Generate(context.Background(), contractx.GenerationContext{
		Intent: contractx.IntentStoreHours,
		Data: map[string]any{
			"store": specialistx.StorePayload{Store: &catalogx.StoreHours{
				StoreID: "a", Name: "Store A", Found: true, OpenNow: true, Opens: "7:00 AM", Closes: "9:00 PM",
			}},
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if reply != "Store A is open now and closes at 9:00 PM." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestTemplatePartialFailure(t *testing.T) {
	t.Parallel()

	reply, err := NewTemplate().Generate(context.Background(), contractx.GenerationContext{
		Intent:  contractx.IntentLocationRecommendation,
		Emotion: contractx.EmotionCold,
		Data: map[string]any{
			"store": specialistx.StorePayload{Nearby: []catalogx.NearbyStore{{StoreID: "a", Name: "Store A", Address: "1 Main St", DistanceKm: 0.42}}},
		},
		Failures: map[string]string{"offers": "timeout"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, want := range []string{"nearest store is Store A", "unavailable", "warm you up"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("reply %q missing %q", reply, want)
		}
	}
}

func TestTemplateOrderAndOffers(t *testing.T) {
	t.Parallel()

	reply, err := NewTemplate().Generate(context.Background(), contractx.GenerationContext{
		Intent:  contractx.IntentOrderStatus,
		Emotion: contractx.EmotionFrustrated,
		Data: map[string]any{
			"order": specialistx.OrderPayload{Order: &catalogx.OrderStatus{
				OrderID: "1234", Found: true, Status: "ready_for_pickup", StoreName: "Store P", PickupTime: "Now",
			}},
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if reply != "Sorry for the trouble. Order #1234 is ready for pickup at Store P. Pickup: Now." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestTemplateMenuAndQuote(t *testing.T) {
	t.Parallel()

	reply, err := NewTemplate().Generate(context.Background(), contractx.GenerationContext{
		Intent: contractx.IntentStockCheck,
		Data: map[string]any{
			"inventory": specialistx.InventoryPayload{Menu: &catalogx.Menu{
				StoreID: "a", Name: "Store A",
				Items: []catalogx.MenuItem{{Product: "hot_cocoa", InStock: true}, {Product: "latte"}, {Product: "pastry", InStock: true}},
			}},
			"offers": specialistx.OffersPayload{
				Coupon: &catalogx.CouponCheck{Code: "HOT10", Valid: true, Offer: &catalogx.Offer{Description: "Hot Cocoa 10% coupon"}},
				Quote:  &catalogx.OfferApplication{Code: "HOT10", Applied: true, Subtotal: 9.9, Discount: 0.99, Total: 8.91},
			},
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := "Store A has hot cocoa, pastry in stock. Code HOT10 is valid: Hot Cocoa 10% coupon. With it you'd pay $8.91 instead of $9.90."
	if reply != want {
		t.Fatalf("reply = %q", reply)
	}
}

func TestTemplateEvidenceAndEmpty(t *testing.T) {
	t.Parallel()

	gen := NewTemplate()
	reply, err := gen.Generate(context.Background(), contractx.GenerationContext{
		Evidence: []contractx.Evidence{{ID: "faq-1", Content: " Gift cards never expire. "}},
	})
	if err != nil || reply != "Gift cards never expire." {
		t.Fatalf("evidence reply = %q, err = %v", reply, err)
	}

	if _, err := gen.Generate(context.Background(), contractx.GenerationContext{Intent: contractx.IntentStoreHours}); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation for empty context, got %v", err)
	}
}
