package specialist

import (
	"context"
	"fmt"
	"strings"

	catalogx "github.com/tanpawarit/auracx/agent/catalog"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

type OrderPayload struct {
	Order   *catalogx.OrderStatus  `json:"order,omitempty"`
	History []catalogx.OrderStatus `json:"history,omitempty"`
}

type orderAgent struct {
	snap *catalogx.Snapshot
}

func NewOrderAgent(snap *catalogx.Snapshot) contractx.Agent {
	return &orderAgent{snap: snap}
}

func (a *orderAgent) Name() contractx.AgentName { return contractx.AgentOrder }

// Run looks up the order named in the message, or the customer's history when the
// message names none.
func (a *orderAgent) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return contractx.AgentResult{}, err
	}

	if id, ok := req.Entity("order_id"); ok {
		st := a.snap.OrderStatus(id)
		return contractx.AgentResult{
			Agent:      contractx.AgentOrder,
			Found:      st.Found,
			Payload:    OrderPayload{Order: &st},
			Confidence: boolConfidence(st.Found),
		}, nil
	}

	if strings.TrimSpace(req.CustomerID) == "" {
		return contractx.AgentResult{}, fmt.Errorf("%w: order_id", contractx.ErrMissingEntity)
	}
	history := a.snap.CustomerOrders(req.CustomerID)
	return contractx.AgentResult{
		Agent:      contractx.AgentOrder,
		Found:      len(history) > 0,
		Payload:    OrderPayload{History: history},
		Confidence: boolConfidence(len(history) > 0),
	}, nil
}

func boolConfidence(found bool) float64 {
	if found {
		return 1
	}
	return 0
}
