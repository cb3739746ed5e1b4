// Package specialist holds the deterministic domain agents and the table that maps
// each intent onto the agents that serve it.
package specialist

import (
	"errors"
	"fmt"

	catalogx "github.com/tanpawarit/auracx/agent/catalog"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

var _ contractx.Registry = (*Registry)(nil)

// DefaultRoutes is the intent -> agent table. Order is dispatch and merge order.
func DefaultRoutes() map[contractx.Intent][]contractx.AgentName {
	return map[contractx.Intent][]contractx.AgentName{
		contractx.IntentStoreHours:             {contractx.AgentStore},
		contractx.IntentStockCheck:             {contractx.AgentInventory},
		contractx.IntentOrderStatus:            {contractx.AgentOrder},
		contractx.IntentLocationRecommendation: {contractx.AgentStore, contractx.AgentOffers},
		contractx.IntentProductRecommendation:  {contractx.AgentOffers, contractx.AgentStore},
	}
}

type Options struct {
	NearbyRadiusKm float64
	MaxNearby      int
}

func (o Options) withDefaults() Options {
	if o.NearbyRadiusKm <= 0 {
		o.NearbyRadiusKm = 25
	}
	if o.MaxNearby <= 0 {
		o.MaxNearby = 3
	}
	return o
}

type Registry struct {
	routes map[contractx.Intent][]contractx.AgentName
	agents map[contractx.AgentName]contractx.Agent
}

func NewRegistry(routes map[contractx.Intent][]contractx.AgentName, agents ...contractx.Agent) *Registry {
	r := &Registry{
		routes: make(map[contractx.Intent][]contractx.AgentName, len(routes)),
		agents: make(map[contractx.AgentName]contractx.Agent, len(agents)),
	}
	for intent, names := range routes {
		r.routes[intent] = append([]contractx.AgentName(nil), names...)
	}
	for _, a := range agents {
		if a == nil {
			continue
		}
		r.agents[a.Name()] = a
	}
	return r
}

// NewDefaultRegistry wires the four catalog-backed agents onto DefaultRoutes.
func NewDefaultRegistry(snap *catalogx.Snapshot, opts Options) *Registry {
	opts = opts.withDefaults()
	return NewRegistry(DefaultRoutes(),
		NewStoreAgent(snap, opts),
		NewInventoryAgent(snap, opts),
		NewOrderAgent(snap),
		NewOffersAgent(snap),
	)
}

func (r *Registry) AgentsFor(intent contractx.Intent) []contractx.AgentName {
	if !intent.IsDeterministic() {
		return nil
	}
	return append([]contractx.AgentName(nil), r.routes[intent]...)
}

func (r *Registry) Agent(name contractx.AgentName) (contractx.Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Validate reports mapping gaps: deterministic intents without agents and routes to
// agents that were never registered.
func (r *Registry) Validate() error {
	var errs []error
	for _, intent := range contractx.DeterministicIntents {
		names := r.routes[intent]
		if len(names) == 0 {
			errs = append(errs, fmt.Errorf("%w: intent=%s has no agents", contractx.ErrValidation, intent))
			continue
		}
		for _, n := range names {
			if _, ok := r.agents[n]; !ok {
				errs = append(errs, fmt.Errorf("%w: intent=%s agent=%s", contractx.ErrUnknownAgent, intent, n))
			}
		}
	}
	return errors.Join(errs...)
}
