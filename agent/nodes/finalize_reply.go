package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/auracx/agent/contract"
)

const (
	EscalationReply = "I'm connecting you to a human teammate who can help with this right away."
	ApologyReply    = "Sorry, something went wrong on our side. I'm connecting you to a human teammate."
)

func Done(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: generated reply is empty", contractx.ErrValidation)
	}
	in.enter(StateDone)

	return in.output(contractx.Response{
		RequestID:  in.RequestID,
		Reply:      reply,
		Intent:     in.Intent.Intent,
		Emotion:    in.Intent.Emotion,
		Confidence: in.Intent.Confidence,
		Mode:       contractx.ModeDeterministic,
		Data:       responseData(in.Generation),
		Timestamp:  in.Now,
	}), nil
}

func Escalate(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.enter(StateEscalate)

	mode := in.Mode
	if mode == "" {
		mode = contractx.ModeFallback
	}
	return in.output(contractx.Response{
		RequestID:          in.RequestID,
		Reply:              EscalationReply,
		Intent:             in.Intent.Intent,
		Emotion:            in.Intent.Emotion,
		Confidence:         in.Intent.Confidence,
		Mode:               mode,
		Data:               responseData(in.Generation),
		EscalationRequired: true,
		Timestamp:          in.Now,
	}), nil
}

// RouteFallback hands the redacted text to the fallback path. Its response is final.
func RouteFallback(
	ctx context.Context,
	in *GraphState,
	fallback contractx.FallbackPath,
) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.enter(StateRouteFallback)

	resp := fallback.Handle(ctx, in.Text, contractx.FallbackContext{
		RequestID:  in.RequestID,
		CustomerID: in.Message.CustomerID,
		Intent:     in.Intent,
		Location:   in.Message.Location,
		Profile:    in.Message.Profile,
		Now:        in.Now,
	})
	resp.RequestID = in.RequestID
	resp.Mode = contractx.ModeFallback
	if resp.Timestamp.IsZero() {
		resp.Timestamp = in.Now
	}

	if resp.EscalationRequired {
		in.EscalationReason = ReasonFallback
		in.enter(StateEscalate)
	} else {
		in.enter(StateDone)
	}
	return in.output(resp), nil
}
