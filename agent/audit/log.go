package audit

import (
	"context"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

var _ contractx.AuditSink = LogSink{}

// LogSink writes audit records to the context logger. Used when no store is configured.
type LogSink struct{}

func (LogSink) Record(ctx context.Context, rec contractx.AuditRecord) error {
	cats := make([]string, 0, len(rec.Categories))
	for _, c := range rec.Categories {
		cats = append(cats, string(c))
	}
	log.Ctx(ctx).Info().
		Str("request_id", rec.RequestID).
		Str("customer_id", rec.CustomerID).
		Strs("categories", cats).
		Int("findings", len(rec.Findings)).
		Msg("pii redacted")
	return nil
}
