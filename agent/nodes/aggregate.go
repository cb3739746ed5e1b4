package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/auracx/agent/contract"
)

// Aggregate merges agent payloads keyed by agent name. Failed agents are recorded
// under Failures and never drop the data of the agents that succeeded.
func Aggregate(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.enter(StateAggregate)

	data := make(map[string]any, len(in.Results))
	var failures map[string]string
	for _, r := range in.Results {
		if r.Failed() {
			if failures == nil {
				failures = make(map[string]string)
			}
			failures[string(r.Agent)] = r.Error
			continue
		}
		data[string(r.Agent)] = r.Payload
	}

	in.Generation = contractx.GenerationContext{
		Message:    in.Text,
		Intent:     in.Intent.Intent,
		Emotion:    in.Intent.Emotion,
		Confidence: in.Intent.Confidence,
		Entities:   in.Intent.Entities,
		Location:   in.Message.Location,
		Profile:    in.Message.Profile,
		Data:       data,
		Failures:   failures,
		Now:        in.Now,
	}
	return in, nil
}

// responseData is the public data block: payloads plus a failures entry when some
// agents failed.
func responseData(gen contractx.GenerationContext) map[string]any {
	if len(gen.Data) == 0 && len(gen.Failures) == 0 {
		return nil
	}
	out := make(map[string]any, len(gen.Data)+1)
	for k, v := range gen.Data {
		out[k] = v
	}
	if len(gen.Failures) > 0 {
		out["failures"] = gen.Failures
	}
	return out
}
