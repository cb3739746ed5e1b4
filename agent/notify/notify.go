// Package notify delivers router decisions and escalations to external systems.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

var (
	_ contractx.DecisionSink       = (*KafkaDecisions)(nil)
	_ contractx.EscalationNotifier = (*QStashEscalations)(nil)
	_ contractx.EscalationNotifier = LogEscalations{}
)

type EventSender interface {
	Send(ctx context.Context, key string, event any) error
}

type Publisher interface {
	Publish(ctx context.Context, body any, dedupID string) (string, error)
}

// KafkaDecisions publishes one decision event per request, keyed by request id.
type KafkaDecisions struct {
	producer EventSender
}

func NewKafkaDecisions(producer EventSender) *KafkaDecisions {
	return &KafkaDecisions{producer: producer}
}

func (k *KafkaDecisions) Publish(ctx context.Context, ev contractx.DecisionEvent) error {
	return k.producer.Send(ctx, ev.RequestID, ev)
}

// QStashEscalations hands escalations to the support desk through QStash.
type QStashEscalations struct {
	client Publisher
}

func NewQStashEscalations(client Publisher) *QStashEscalations {
	return &QStashEscalations{client: client}
}

func (q *QStashEscalations) Notify(ctx context.Context, ev contractx.EscalationEvent) error {
	id, err := q.client.Publish(ctx, ev, ev.RequestID)
	if err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("message_id", id).Msg("escalation queued")
	return nil
}

// LogEscalations logs escalations when no hand-off target is configured.
type LogEscalations struct{}

func (LogEscalations) Notify(ctx context.Context, ev contractx.EscalationEvent) error {
	log.Ctx(ctx).Warn().
		Str("request_id", ev.RequestID).
		Str("customer_id", ev.CustomerID).
		Str("intent", string(ev.Intent)).
		Str("mode", string(ev.Mode)).
		Str("reason", ev.Reason).
		Msg("escalation requires a human")
	return nil
}
