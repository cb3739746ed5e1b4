package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/auracx/agent/contract"
	metricsx "github.com/tanpawarit/auracx/pkg/metrics"
)

func Classify(
	ctx context.Context,
	in *GraphState,
	classifier contractx.Classifier,
	registry contractx.Registry,
	policy Policy,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.enter(StateClassify)

	hints := contractx.ClassifyHints{HasLocation: in.Message.Location != nil}
	if p := in.Message.Profile; p != nil {
		hints.WeatherContext = p.WeatherContext
	}

	in.Intent = classifier.Classify(ctx, in.Text, hints)
	if in.Intent.Degraded {
		metricsx.DegradedClassifications.Inc()
	}
	in.Agents = registry.AgentsFor(in.Intent.Intent)
	in.Next = policy.NextFromClassify(in.Intent, in.Agents)

	switch in.Next {
	case StateEscalate:
		in.Mode = contractx.ModeFallback
		in.EscalationReason = ReasonEmotion + ":" + string(in.Intent.Emotion)
	case StateRouteDeterministic:
		in.Mode = contractx.ModeDeterministic
	default:
		in.Mode = contractx.ModeFallback
		in.Agents = nil
	}
	metricsx.RouteDecisions.WithLabelValues(strings.ToLower(in.Next)).Inc()

	log.Ctx(ctx).Debug().
		Str("intent", string(in.Intent.Intent)).
		Float64("confidence", in.Intent.Confidence).
		Str("emotion", string(in.Intent.Emotion)).
		Bool("degraded", in.Intent.Degraded).
		Str("next", in.Next).
		Msg("message classified")
	return in, nil
}
