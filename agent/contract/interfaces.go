package contract

import "context"

type Redactor interface {
	Redact(text string) RedactionResult
}

// Classifier never fails: degraded output is expressed as DegradedIntent.
type Classifier interface {
	Classify(ctx context.Context, text string, hints ClassifyHints) IntentResult
}

type Generator interface {
	Generate(ctx context.Context, in GenerationContext) (string, error)
}

type Agent interface {
	Name() AgentName
	Run(ctx context.Context, req AgentRequest) (AgentResult, error)
}

type Registry interface {
	AgentsFor(intent Intent) []AgentName
	Agent(name AgentName) (Agent, bool)
}

type FallbackPath interface {
	Handle(ctx context.Context, text string, fc FallbackContext) Response
}

type EvidenceRetriever interface {
	Retrieve(ctx context.Context, query string, loc *Location) ([]Evidence, error)
}

type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord) error
}

type DecisionSink interface {
	Publish(ctx context.Context, ev DecisionEvent) error
}

type EscalationNotifier interface {
	Notify(ctx context.Context, ev EscalationEvent) error
}
