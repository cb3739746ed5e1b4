package specialist

import (
	"context"
	"fmt"

	catalogx "github.com/tanpawarit/auracx/agent/catalog"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

type StorePayload struct {
	Store      *catalogx.StoreHours   `json:"store,omitempty"`
	Nearby     []catalogx.NearbyStore `json:"nearby,omitempty"`
	ResolvedBy string                 `json:"resolved_by,omitempty"`
}

type storeAgent struct {
	snap *catalogx.Snapshot
	opts Options
}

func NewStoreAgent(snap *catalogx.Snapshot, opts Options) contractx.Agent {
	return &storeAgent{snap: snap, opts: opts.withDefaults()}
}

func (a *storeAgent) Name() contractx.AgentName { return contractx.AgentStore }

func (a *storeAgent) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return contractx.AgentResult{}, err
	}

	id, how, ok := resolveStore(a.snap, req)
	if !ok {
		return contractx.AgentResult{}, fmt.Errorf("%w: no store entity and no location", contractx.ErrMissingLocation)
	}

	hours := a.snap.StoreHours(id, req.Now)
	payload := StorePayload{Store: &hours, ResolvedBy: how}

	if req.Location != nil {
		nearby := a.snap.NearbyStores(*req.Location, a.opts.NearbyRadiusKm)
		if len(nearby) > a.opts.MaxNearby {
			nearby = nearby[:a.opts.MaxNearby]
		}
		payload.Nearby = nearby
	}

	conf := 0.0
	if hours.Found {
		conf = 1.0
	}
	return contractx.AgentResult{
		Agent:      contractx.AgentStore,
		Found:      hours.Found,
		Payload:    payload,
		Confidence: conf,
	}, nil
}
