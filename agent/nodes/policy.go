package orchestratornode

import (
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

const DefaultConfidenceThreshold = 0.7

// Escalation reasons.
const (
	ReasonEmotion          = "emotion"
	ReasonAllAgentsFailed  = "all_agents_failed"
	ReasonGenerationFailed = "generation_failed"
	ReasonFallback         = "fallback_unanswered"
	ReasonPipelineError    = "pipeline_error"
)

type Policy struct {
	ConfidenceThreshold float64
	EscalateEmotions    []contractx.Emotion
}

func DefaultPolicy() Policy {
	return Policy{ConfidenceThreshold: DefaultConfidenceThreshold}
}

func (p Policy) escalates(em contractx.Emotion) bool {
	for _, e := range p.EscalateEmotions {
		if e == em {
			return true
		}
	}
	return false
}

// NextFromClassify picks the state after CLASSIFY. Escalation by emotion wins over
// routing; the deterministic route needs a trusted intent and a mapped agent set.
func (p Policy) NextFromClassify(intent contractx.IntentResult, agents []contractx.AgentName) string {
	switch {
	case p.escalates(intent.Emotion):
		return StateEscalate
	case intent.Degraded,
		intent.Confidence < p.ConfidenceThreshold,
		!intent.Intent.IsDeterministic(),
		len(agents) == 0:
		return StateRouteFallback
	default:
		return StateRouteDeterministic
	}
}

// NextFromGenerate picks the state after GENERATE and the escalation reason, if any.
func NextFromGenerate(results []contractx.AgentResult, reply string, genErr error) (string, string) {
	if len(results) > 0 && !anySucceeded(results) {
		return StateEscalate, ReasonAllAgentsFailed
	}
	if genErr != nil || reply == "" {
		return StateEscalate, ReasonGenerationFailed
	}
	return StateDone, ""
}

func anySucceeded(results []contractx.AgentResult) bool {
	for _, r := range results {
		if !r.Failed() {
			return true
		}
	}
	return false
}
