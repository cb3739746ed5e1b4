package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/auracx/agent/contract"
)

// Router states. Trail records them in the order they were entered.
const (
	StateClassify           = "CLASSIFY"
	StateRouteDeterministic = "ROUTE_DETERMINISTIC"
	StateRouteFallback      = "ROUTE_FALLBACK"
	StateAggregate          = "AGGREGATE"
	StateGenerate           = "GENERATE"
	StateDone               = "DONE"
	StateEscalate           = "ESCALATE"
)

type GraphInput struct {
	Message contractx.Message
}

type GraphOutput struct {
	Response     contractx.Response
	Degraded     bool
	Agents       []contractx.AgentName
	FailedAgents []contractx.AgentName
	Trail        []string
	Reason       string
}

type GraphState struct {
	RequestID string
	Message   contractx.Message
	Text      string
	Now       time.Time

	Redaction contractx.RedactionResult
	Intent    contractx.IntentResult
	Agents    []contractx.AgentName
	Results   []contractx.AgentResult

	Generation       contractx.GenerationContext
	Reply            string
	Mode             contractx.Mode
	Next             string
	EscalationReason string
	Trail            []string
}

func (s *GraphState) enter(state string) {
	s.Trail = append(s.Trail, state)
}

func (s *GraphState) failedAgents() []contractx.AgentName {
	var out []contractx.AgentName
	for _, r := range s.Results {
		if r.Failed() {
			out = append(out, r.Agent)
		}
	}
	return out
}

func (s *GraphState) output(resp contractx.Response) GraphOutput {
	return GraphOutput{
		Response:     resp,
		Degraded:     s.Intent.Degraded,
		Agents:       append([]contractx.AgentName(nil), s.Agents...),
		FailedAgents: s.failedAgents(),
		Trail:        append([]string(nil), s.Trail...),
		Reason:       s.EscalationReason,
	}
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	msg := in.Message

	requestID := strings.TrimSpace(msg.RequestID)
	if requestID == "" {
		return nil, fmt.Errorf("%w: request id is empty", contractx.ErrValidation)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil, contractx.ErrInvalidMessage
	}
	if strings.TrimSpace(msg.CustomerID) == "" {
		return nil, contractx.ErrInvalidCustomer
	}
	if loc := msg.Location; loc != nil {
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			return nil, contractx.ErrInvalidLocation
		}
	}

	return &GraphState{
		RequestID: requestID,
		Message:   msg,
		Now:       nowFn().UTC(),
	}, nil
}
