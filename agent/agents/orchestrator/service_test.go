package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	specialistx "github.com/tanpawarit/auracx/agent/agents/specialist"
	catalogx "github.com/tanpawarit/auracx/agent/catalog"
	classifierx "github.com/tanpawarit/auracx/agent/classifier"
	contractx "github.com/tanpawarit/auracx/agent/contract"
	fallbackx "github.com/tanpawarit/auracx/agent/fallback"
	generatorx "github.com/tanpawarit/auracx/agent/generator"
	nodex "github.com/tanpawarit/auracx/agent/nodes"
	redactx "github.com/tanpawarit/auracx/agent/redact"
)

// Saturday 3pm in New York.
var testNow = time.Date(2026, 10, 17, 19, 0, 0, 0, time.UTC)

var nearDowntown = &contractx.Location{Latitude: 40.7130, Longitude: -74.0055}

type capturingClassifier struct {
	inner contractx.Classifier
	fixed *contractx.IntentResult

	mu    sync.Mutex
	texts []string
}

func (c *capturingClassifier) Classify(ctx context.Context, text string, hints contractx.ClassifyHints) contractx.IntentResult {
	c.mu.Lock()
	c.texts = append(c.texts, text)
	c.mu.Unlock()
	if c.fixed != nil {
		return *c.fixed
	}
	return c.inner.Classify(ctx, text, hints)
}

type countingRegistry struct {
	inner contractx.Registry
	fail  map[contractx.AgentName]error

	mu    sync.Mutex
	calls []contractx.AgentName
}

func (r *countingRegistry) AgentsFor(intent contractx.Intent) []contractx.AgentName {
	return r.inner.AgentsFor(intent)
}

func (r *countingRegistry) Agent(name contractx.AgentName) (contractx.Agent, bool) {
	a, ok := r.inner.Agent(name)
	if !ok {
		return nil, false
	}
	return &countingAgent{Agent: a, reg: r}, true
}

func (r *countingRegistry) invoked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

type countingAgent struct {
	contractx.Agent
	reg *countingRegistry
}

func (a *countingAgent) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	a.reg.mu.Lock()
	a.reg.calls = append(a.reg.calls, a.Name())
	a.reg.mu.Unlock()
	if err := a.reg.fail[a.Name()]; err != nil {
		return contractx.AgentResult{}, err
	}
	return a.Agent.Run(ctx, req)
}

type countingFallback struct {
	inner contractx.FallbackPath
	calls int
}

func (f *countingFallback) Handle(ctx context.Context, text string, fc contractx.FallbackContext) contractx.Response {
	f.calls++
	return f.inner.Handle(ctx, text, fc)
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, contractx.GenerationContext) (string, error) {
	return "", contractx.ErrModelInvoke
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, contractx.GenerationContext) (string, error) {
	panic("generator exploded")
}

type recordingSinks struct {
	mu          sync.Mutex
	decisions   []contractx.DecisionEvent
	escalations []contractx.EscalationEvent
	audits      []contractx.AuditRecord
	decisionErr error
}

func (s *recordingSinks) Publish(_ context.Context, ev contractx.DecisionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, ev)
	return s.decisionErr
}

func (s *recordingSinks) Notify(_ context.Context, ev contractx.EscalationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalations = append(s.escalations, ev)
	return nil
}

func (s *recordingSinks) Record(_ context.Context, rec contractx.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, rec)
	return nil
}

type harness struct {
	orch       *Orchestrator
	classifier *capturingClassifier
	registry   *countingRegistry
	fallback   *countingFallback
	generator  contractx.Generator
	sinks      *recordingSinks
}

func newHarness(t *testing.T, cfg Config, mutate func(h *harness)) *harness {
	t.Helper()

	snap, err := catalogx.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error = %v", err)
	}

	template := generatorx.NewTemplate()
	h := &harness{
		classifier: &capturingClassifier{inner: classifierx.NewKeyword()},
		registry:   &countingRegistry{inner: specialistx.NewDefaultRegistry(snap, specialistx.Options{})},
		fallback:   &countingFallback{inner: fallbackx.New(nil, template)},
		generator:  template,
		sinks:      &recordingSinks{},
	}
	if mutate != nil {
		mutate(h)
	}

	orch, err := New(redactx.New(), h.classifier, h.registry, h.generator, h.fallback, cfg,
		WithAuditSink(h.sinks),
		WithDecisionSink(h.sinks),
		WithEscalationNotifier(h.sinks),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	orch.now = func() time.Time { return testNow }
	orch.newID = func() string { return "req-generated" }
	h.orch = orch
	return h
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil, nil, nil, nil, Config{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}

func TestHandleInvalidInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)

	_, err := h.orch.Handle(context.Background(), contractx.Message{Text: "  ", CustomerID: "cust_001"})
	if !errors.Is(err, contractx.ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	_, err = h.orch.Handle(context.Background(), contractx.Message{Text: "hi"})
	if !errors.Is(err, contractx.ErrInvalidCustomer) {
		t.Fatalf("expected ErrInvalidCustomer, got %v", err)
	}
	if !IsInputError(err) {
		t.Fatalf("IsInputError(%v) = false", err)
	}
	_, err = h.orch.Handle(context.Background(), contractx.Message{
		Text: "hi", CustomerID: "cust_001", Location: &contractx.Location{Latitude: 95},
	})
	if !errors.Is(err, contractx.ErrInvalidLocation) || !IsInputError(err) {
		t.Fatalf("expected input error ErrInvalidLocation, got %v", err)
	}
	if len(h.classifier.texts) != 0 {
		t.Fatalf("classifier called for invalid input")
	}
}

func TestIsInputError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want bool
	}{
		{contractx.ErrInvalidMessage, true},
		{fmt.Errorf("node: %w", contractx.ErrInvalidCustomer), true},
		{contractx.ErrInvalidLocation, true},
		{fmt.Errorf("%w: graph state is nil", contractx.ErrValidation), false},
		{errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsInputError(tc.err); got != tc.want {
			t.Fatalf("IsInputError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestHandleStoreHoursEndToEnd(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)
	resp, err := h.orch.Handle(context.Background(), contractx.Message{
		Text:       "Is your store open?",
		CustomerID: "cust_001",
		Location:   nearDowntown,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if resp.Intent != contractx.IntentStoreHours || resp.Confidence < 0.7 {
		t.Fatalf("intent %s confidence %v", resp.Intent, resp.Confidence)
	}
	if resp.Mode != contractx.ModeDeterministic || resp.EscalationRequired {
		t.Fatalf("unexpected mode/escalation: %#v", resp)
	}
	if !strings.Contains(resp.Reply, "open now") || !strings.Contains(resp.Reply, "10:00 PM") {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if resp.RequestID != "req-generated" {
		t.Fatalf("request id = %q", resp.RequestID)
	}
	if got := h.registry.invoked(); strings.Join(got, ",") != "store" {
		t.Fatalf("invoked agents = %v, want [store]", got)
	}
	if h.fallback.calls != 0 {
		t.Fatalf("fallback invoked on deterministic route")
	}

	if len(h.sinks.decisions) != 1 {
		t.Fatalf("decision events = %d", len(h.sinks.decisions))
	}
	ev := h.sinks.decisions[0]
	want := []string{nodex.StateClassify, nodex.StateRouteDeterministic, nodex.StateAggregate, nodex.StateGenerate, nodex.StateDone}
	if strings.Join(ev.States, ",") != strings.Join(want, ",") {
		t.Fatalf("state trail = %v, want %v", ev.States, want)
	}
	if len(h.sinks.escalations) != 0 {
		t.Fatalf("unexpected escalation events: %v", h.sinks.escalations)
	}
}

func TestHandleInvokesExactlyMappedAgents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		intent contractx.Intent
		want   string
	}{
		{contractx.IntentStoreHours, "store"},
		{contractx.IntentStockCheck, "inventory"},
		{contractx.IntentOrderStatus, "order"},
		{contractx.IntentLocationRecommendation, "offers,store"},
		{contractx.IntentProductRecommendation, "offers,store"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.intent), func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, Config{}, func(h *harness) {
				h.classifier.fixed = &contractx.IntentResult{
					Intent:     tc.intent,
					Confidence: 0.95,
					Emotion:    contractx.EmotionNeutral,
					Entities:   map[string]string{"product": "hot_cocoa", "order_id": "1234"},
				}
			})
			_, err := h.orch.Handle(context.Background(), contractx.Message{
				Text: "question", CustomerID: "cust_001", Location: nearDowntown,
			})
			if err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := strings.Join(h.registry.invoked(), ","); got != tc.want {
				t.Fatalf("invoked agents = %s, want %s", got, tc.want)
			}
			if h.fallback.calls != 0 {
				t.Fatalf("fallback invoked for %s", tc.intent)
			}
		})
	}
}

func TestHandleLowConfidenceUsesOnlyFallback(t *testing.T) {
	t.Parallel()

	cases := map[string]contractx.IntentResult{
		"below threshold": {Intent: contractx.IntentStoreHours, Confidence: 0.5, Emotion: contractx.EmotionNeutral},
		"other":           {Intent: contractx.IntentOther, Confidence: 0.99, Emotion: contractx.EmotionNeutral},
		"degraded":        contractx.DegradedIntent(),
	}
	for name, intent := range cases {
		intent := intent
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, Config{}, func(h *harness) { h.classifier.fixed = &intent })
			resp, err := h.orch.Handle(context.Background(), contractx.Message{
				Text: "question", CustomerID: "cust_001", Location: nearDowntown,
			})
			if err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := h.registry.invoked(); len(got) != 0 {
				t.Fatalf("agents invoked on fallback route: %v", got)
			}
			if h.fallback.calls != 1 || resp.Mode != contractx.ModeFallback {
				t.Fatalf("fallback calls %d, mode %s", h.fallback.calls, resp.Mode)
			}
		})
	}
}

func TestHandleImColdEscalatesWithoutEvidence(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)
	resp, err := h.orch.Handle(context.Background(), contractx.Message{
		RequestID:  "req-cold",
		Text:       "I'm cold",
		CustomerID: "cust_001",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if resp.Intent != contractx.IntentOther || resp.Emotion != contractx.EmotionCold {
		t.Fatalf("intent %s emotion %s", resp.Intent, resp.Emotion)
	}
	if resp.Mode != contractx.ModeFallback || !resp.EscalationRequired || resp.Confidence != fallbackx.NoEvidenceConfidence {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if resp.RequestID != "req-cold" {
		t.Fatalf("request id = %q", resp.RequestID)
	}
	if len(h.sinks.escalations) != 1 || h.sinks.escalations[0].Reason != nodex.ReasonFallback {
		t.Fatalf("escalation events = %#v", h.sinks.escalations)
	}
}

func TestHandleRedactsBeforeClassification(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, nil)
	_, err := h.orch.Handle(context.Background(), contractx.Message{
		Text:       "call me at 555-123-4567 about my order",
		CustomerID: "cust_001",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(h.classifier.texts) != 1 {
		t.Fatalf("classifier calls = %d", len(h.classifier.texts))
	}
	sent := h.classifier.texts[0]
	if strings.Contains(sent, "555-123-4567") || regexp.MustCompile(`\d{3}.?\d{3}.?\d{4}`).MatchString(sent) {
		t.Fatalf("classifier saw phone digits: %q", sent)
	}
	if len(h.sinks.audits) != 1 || h.sinks.audits[0].Categories[0] != contractx.RedactPhone {
		t.Fatalf("audit records = %#v", h.sinks.audits)
	}
}

func TestHandlePartialFailureKeepsData(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, func(h *harness) {
		h.classifier.fixed = &contractx.IntentResult{
			Intent: contractx.IntentLocationRecommendation, Confidence: 0.9, Emotion: contractx.EmotionNeutral,
		}
		h.registry.fail = map[contractx.AgentName]error{contractx.AgentOffers: errors.New("offers backend down")}
	})
	resp, err := h.orch.Handle(context.Background(), contractx.Message{
		Text: "closest store?", CustomerID: "cust_001", Location: nearDowntown,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if resp.EscalationRequired || resp.Mode != contractx.ModeDeterministic {
		t.Fatalf("partial failure forced escalation: %#v", resp)
	}
	if _, ok := resp.Data["store"]; !ok {
		t.Fatalf("store data missing: %#v", resp.Data)
	}
	failures, _ := resp.Data["failures"].(map[string]string)
	if failures["offers"] != "offers backend down" {
		t.Fatalf("failures = %#v", resp.Data["failures"])
	}
	if ev := h.sinks.decisions[0]; len(ev.FailedAgents) != 1 || ev.FailedAgents[0] != contractx.AgentOffers {
		t.Fatalf("decision failed agents = %v", ev.FailedAgents)
	}
}

func TestHandleAllAgentsFailedEscalates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, func(h *harness) {
		h.classifier.fixed = &contractx.IntentResult{Intent: contractx.IntentStoreHours, Confidence: 0.9}
		h.registry.fail = map[contractx.AgentName]error{contractx.AgentStore: errors.New("boom")}
	})
	resp, err := h.orch.Handle(context.Background(), contractx.Message{Text: "open?", CustomerID: "cust_001"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !resp.EscalationRequired || resp.Reply != nodex.EscalationReply {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if len(h.sinks.escalations) != 1 || h.sinks.escalations[0].Reason != nodex.ReasonAllAgentsFailed {
		t.Fatalf("escalation events = %#v", h.sinks.escalations)
	}
}

func TestHandleGenerationFailureEscalates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, func(h *harness) { h.generator = failingGenerator{} })
	resp, err := h.orch.Handle(context.Background(), contractx.Message{
		Text: "Is your store open?", CustomerID: "cust_001", Location: nearDowntown,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !resp.EscalationRequired || resp.Mode != contractx.ModeDeterministic {
		t.Fatalf("unexpected response: %#v", resp)
	}
	ev := h.sinks.decisions[0]
	if ev.States[len(ev.States)-1] != nodex.StateEscalate || ev.Reason != nodex.ReasonGenerationFailed {
		t.Fatalf("decision event = %#v", ev)
	}
}

func TestHandleEscalatesConfiguredEmotion(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{EscalateEmotions: []string{"Frustrated"}}, nil)
	resp, err := h.orch.Handle(context.Background(), contractx.Message{
		Text: "I'm so frustrated, where is my order #1234", CustomerID: "cust_001",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !resp.EscalationRequired || resp.Reply != nodex.EscalationReply {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if got := h.registry.invoked(); len(got) != 0 {
		t.Fatalf("agents invoked before escalation: %v", got)
	}
	if h.sinks.escalations[0].Reason != "emotion:frustrated" {
		t.Fatalf("reason = %q", h.sinks.escalations[0].Reason)
	}
}

func TestHandleSinkFailureDoesNotChangeReply(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, func(h *harness) { h.sinks.decisionErr = errors.New("kafka down") })
	resp, err := h.orch.Handle(context.Background(), contractx.Message{
		Text: "Is your store open?", CustomerID: "cust_001", Location: nearDowntown,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.EscalationRequired || resp.Reply == "" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestHandlePipelineFailureApologizes(t *testing.T) {
	t.Parallel()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name   string
		ctx    context.Context
		mutate func(h *harness)
	}{
		{"generator panic", context.Background(), func(h *harness) { h.generator = panickingGenerator{} }},
		{"cancelled request", cancelled, nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, Config{}, tc.mutate)
			resp, err := h.orch.Handle(tc.ctx, contractx.Message{
				Text: "Is your store open?", CustomerID: "cust_001", Location: nearDowntown,
			})
			if err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if resp.Reply != nodex.ApologyReply || !resp.EscalationRequired {
				t.Fatalf("unexpected response: %#v", resp)
			}
			if resp.RequestID != "req-generated" || resp.Mode != contractx.ModeFallback {
				t.Fatalf("unexpected response metadata: %#v", resp)
			}
			if len(h.sinks.escalations) != 1 || h.sinks.escalations[0].Reason != nodex.ReasonPipelineError {
				t.Fatalf("escalation events = %#v", h.sinks.escalations)
			}
			if len(h.sinks.decisions) != 1 || h.sinks.decisions[0].Reason != nodex.ReasonPipelineError {
				t.Fatalf("decision events = %#v", h.sinks.decisions)
			}
		})
	}
}
