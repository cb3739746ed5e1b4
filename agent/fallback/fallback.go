// Package fallback answers messages the domain agents cannot serve. It only answers
// when evidence grounds the reply; otherwise it hands the customer to a human.
package fallback

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

var _ contractx.FallbackPath = (*Handler)(nil)

const (
	NoEvidenceConfidence = 0.3
	maxSources           = 3

	noEvidenceReply = "I couldn't find relevant information to answer that. Let me connect you with a support agent who can help."
	failureReply    = "I encountered an issue processing your request. Let me connect you with a specialist."
)

// NoEvidence is the retriever used when no retrieval backend is configured.
type NoEvidence struct{}

func (NoEvidence) Retrieve(context.Context, string, *contractx.Location) ([]contractx.Evidence, error) {
	return nil, nil
}

type Option func(*Handler)

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

type Handler struct {
	retriever contractx.EvidenceRetriever
	generator contractx.Generator
	timeout   time.Duration
}

// New builds a fallback handler. A nil retriever means NoEvidence.
func New(retriever contractx.EvidenceRetriever, generator contractx.Generator, opts ...Option) *Handler {
	if retriever == nil {
		retriever = NoEvidence{}
	}
	h := &Handler{
		retriever: retriever,
		generator: generator,
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Handle(ctx context.Context, text string, fc contractx.FallbackContext) contractx.Response {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	logger := log.Ctx(ctx)
	resp := contractx.Response{
		RequestID: fc.RequestID,
		Intent:    fc.Intent.Intent,
		Emotion:   fc.Intent.Emotion,
		Mode:      contractx.ModeFallback,
		Timestamp: fc.Now,
	}

	evidence, err := h.retriever.Retrieve(ctx, text, fc.Location)
	if err != nil {
		logger.Warn().Err(err).Msg("fallback retrieval failed")
		return escalate(resp, failureReply, 0)
	}
	if len(evidence) == 0 {
		resp.Data = map[string]any{"source_count": 0}
		return escalate(resp, noEvidenceReply, NoEvidenceConfidence)
	}

	resp.Data = map[string]any{
		"source_count": len(evidence),
		"sources":      sourceIDs(evidence),
	}
	if h.generator == nil {
		return escalate(resp, failureReply, 0)
	}

	answer, err := h.generator.Generate(ctx, contractx.GenerationContext{
		Message:    text,
		Intent:     fc.Intent.Intent,
		Emotion:    fc.Intent.Emotion,
		Confidence: fc.Intent.Confidence,
		Entities:   fc.Intent.Entities,
		Location:   fc.Location,
		Profile:    fc.Profile,
		Evidence:   evidence,
		Now:        fc.Now,
	})
	answer = strings.TrimSpace(answer)
	if err != nil || answer == "" {
		if err == nil {
			err = errors.New("empty grounded answer")
		}
		logger.Warn().Err(err).Msg("fallback generation failed")
		return escalate(resp, failureReply, 0)
	}

	resp.Reply = answer
	resp.Confidence = GroundedConfidence(len(evidence))
	return resp
}

// GroundedConfidence grows with the number of supporting documents, capped at 0.95.
func GroundedConfidence(n int) float64 {
	c := math.Min(0.95, 0.6+0.1*float64(n))
	return math.Round(c*100) / 100
}

func escalate(resp contractx.Response, reply string, confidence float64) contractx.Response {
	resp.Reply = reply
	resp.Confidence = confidence
	resp.EscalationRequired = true
	return resp
}

func sourceIDs(evidence []contractx.Evidence) []string {
	n := len(evidence)
	if n > maxSources {
		n = maxSources
	}
	ids := make([]string, 0, n)
	for _, ev := range evidence[:n] {
		ids = append(ids, ev.ID)
	}
	return ids
}
