package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

func Generate(
	ctx context.Context,
	in *GraphState,
	generator contractx.Generator,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.enter(StateGenerate)

	var (
		reply string
		err   error
	)
	if len(in.Results) == 0 || anySucceeded(in.Results) {
		reply, err = generator.Generate(ctx, in.Generation)
		reply = strings.TrimSpace(reply)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("response generation failed")
		}
	}

	in.Next, in.EscalationReason = NextFromGenerate(in.Results, reply, err)
	if in.Next == StateDone {
		in.Reply = reply
	}
	return in, nil
}
