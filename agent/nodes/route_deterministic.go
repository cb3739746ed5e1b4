package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	contractx "github.com/tanpawarit/auracx/agent/contract"
	metricsx "github.com/tanpawarit/auracx/pkg/metrics"
)

const DefaultAgentTimeout = 2 * time.Second

var errAgentTimeout = errors.New("agent timed out")

// RouteDeterministic runs every selected agent concurrently and waits for all of them.
// Each agent is bounded by timeout; errors and panics become failed results.
func RouteDeterministic(
	ctx context.Context,
	in *GraphState,
	registry contractx.Registry,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.enter(StateRouteDeterministic)

	if timeout <= 0 {
		timeout = DefaultAgentTimeout
	}

	req := contractx.AgentRequest{
		CustomerID: in.Message.CustomerID,
		Location:   in.Message.Location,
		Profile:    in.Message.Profile,
		Intent:     in.Intent.Intent,
		Emotion:    in.Intent.Emotion,
		Entities:   in.Intent.Entities,
		Now:        in.Now,
	}

	results := make([]contractx.AgentResult, len(in.Agents))
	var wg conc.WaitGroup
	for i, name := range in.Agents {
		wg.Go(func() {
			results[i] = runAgent(ctx, registry, name, req, timeout)
		})
	}
	wg.Wait()

	in.Results = results
	return in, nil
}

type agentOutcome struct {
	result contractx.AgentResult
	err    error
}

func runAgent(
	ctx context.Context,
	registry contractx.Registry,
	name contractx.AgentName,
	req contractx.AgentRequest,
	timeout time.Duration,
) contractx.AgentResult {
	start := time.Now()
	logger := log.Ctx(ctx).With().Str("agent", string(name)).Logger()

	agent, ok := registry.Agent(name)
	if !ok {
		err := fmt.Errorf("%w: %s", contractx.ErrUnknownAgent, name)
		return failedResult(name, err, metricsx.OutcomeError, start, &logger)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan agentOutcome, 1)
	go func() {
		var out agentOutcome
		var pc panics.Catcher
		pc.Try(func() {
			out.result, out.err = agent.Run(runCtx, req)
		})
		if r := pc.Recovered(); r != nil {
			out.err = fmt.Errorf("%w: %v", contractx.ErrAgentPanic, r.Value)
		}
		done <- out
	}()

	select {
	case out := <-done:
		switch {
		case errors.Is(out.err, contractx.ErrAgentPanic):
			return failedResult(name, out.err, metricsx.OutcomePanic, start, &logger)
		case errors.Is(out.err, context.DeadlineExceeded):
			return failedResult(name, errAgentTimeout, metricsx.OutcomeTimeout, start, &logger)
		case out.err != nil:
			return failedResult(name, out.err, metricsx.OutcomeError, start, &logger)
		}

		res := out.result
		res.Agent = name
		res.Error = ""
		res.Duration = time.Since(start)
		outcome := metricsx.OutcomeNotFound
		if res.Found {
			outcome = metricsx.OutcomeFound
		}
		observeAgent(name, outcome, res.Duration)
		return res
	case <-runCtx.Done():
		err := errAgentTimeout
		if !errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = runCtx.Err()
		}
		return failedResult(name, err, metricsx.OutcomeTimeout, start, &logger)
	}
}

func failedResult(
	name contractx.AgentName,
	err error,
	outcome string,
	start time.Time,
	logger *zerolog.Logger,
) contractx.AgentResult {
	d := time.Since(start)
	observeAgent(name, outcome, d)
	logger.Warn().Err(err).Str("outcome", outcome).Dur("duration", d).Msg("agent failed")
	return contractx.AgentResult{
		Agent:    name,
		Error:    err.Error(),
		Duration: d,
	}
}

func observeAgent(name contractx.AgentName, outcome string, d time.Duration) {
	metricsx.AgentInvocations.WithLabelValues(string(name), outcome).Inc()
	metricsx.AgentDuration.WithLabelValues(string(name)).Observe(d.Seconds())
}
