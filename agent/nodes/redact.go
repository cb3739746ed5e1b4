package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/auracx/agent/contract"
	metricsx "github.com/tanpawarit/auracx/pkg/metrics"
)

// Redact masks PII before anything leaves the process. The audit record carries
// categories and spans only; a failing sink does not stop the request.
func Redact(
	ctx context.Context,
	in *GraphState,
	redactor contractx.Redactor,
	audit contractx.AuditSink,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Redaction = redactor.Redact(in.Message.Text)
	in.Text = in.Redaction.Text
	if len(in.Redaction.Findings) == 0 {
		return in, nil
	}

	for _, f := range in.Redaction.Findings {
		metricsx.Redactions.WithLabelValues(string(f.Category)).Inc()
	}
	if audit == nil {
		return in, nil
	}

	err := audit.Record(ctx, contractx.AuditRecord{
		RequestID:  in.RequestID,
		CustomerID: in.Message.CustomerID,
		Categories: in.Redaction.Categories(),
		Findings:   in.Redaction.Findings,
		At:         in.Now,
	})
	if err != nil {
		metricsx.SinkFailures.WithLabelValues("audit").Inc()
		log.Ctx(ctx).Warn().Err(err).Msg("redaction audit record failed")
	}
	return in, nil
}
