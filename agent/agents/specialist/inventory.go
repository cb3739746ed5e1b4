package specialist

import (
	"context"
	"fmt"

	catalogx "github.com/tanpawarit/auracx/agent/catalog"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

type InventoryPayload struct {
	Product      string                `json:"product,omitempty"`
	Store        *catalogx.StockLevel  `json:"store,omitempty"`
	Alternatives []catalogx.StockLevel `json:"alternatives,omitempty"`
	Menu         *catalogx.Menu        `json:"menu,omitempty"`
}

type inventoryAgent struct {
	snap *catalogx.Snapshot
	opts Options
}

func NewInventoryAgent(snap *catalogx.Snapshot, opts Options) contractx.Agent {
	return &inventoryAgent{snap: snap, opts: opts.withDefaults()}
}

func (a *inventoryAgent) Name() contractx.AgentName { return contractx.AgentInventory }

func (a *inventoryAgent) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return contractx.AgentResult{}, err
	}

	product, ok := req.Entity("product")
	if !ok {
		product, ok = req.Entity("item")
	}
	if !ok {
		return a.menu(req)
	}

	payload := InventoryPayload{Product: catalogx.NormalizeProduct(product)}
	found := false

	if id, _, ok := resolveStore(a.snap, req); ok {
		lvl := a.snap.CheckStock(id, product)
		payload.Store = &lvl
		found = lvl.Available
	}

	// Point elsewhere when the chosen store cannot serve the product.
	if !found {
		alts := a.snap.FindProduct(product)
		if payload.Store != nil {
			alts = excludeStore(alts, payload.Store.StoreID)
		}
		if len(alts) > a.opts.MaxNearby {
			alts = alts[:a.opts.MaxNearby]
		}
		payload.Alternatives = alts
		found = (payload.Store != nil && payload.Store.Found) || len(alts) > 0
	}

	conf := 0.0
	if found {
		conf = 1.0
	}
	return contractx.AgentResult{
		Agent:      contractx.AgentInventory,
		Found:      found,
		Payload:    payload,
		Confidence: conf,
	}, nil
}

func excludeStore(in []catalogx.StockLevel, storeID string) []catalogx.StockLevel {
	out := in[:0:0]
	for _, lvl := range in {
		if lvl.StoreID != storeID {
			out = append(out, lvl)
		}
	}
	return out
}

// Without a product the best answer is what the resolved store sells.
func (a *inventoryAgent) menu(req contractx.AgentRequest) (contractx.AgentResult, error) {
	id, _, ok := resolveStore(a.snap, req)
	if !ok {
		return contractx.AgentResult{}, fmt.Errorf("%w: product", contractx.ErrMissingEntity)
	}
	menu, found := a.snap.StoreMenu(id)
	return contractx.AgentResult{
		Agent:      contractx.AgentInventory,
		Found:      found,
		Payload:    InventoryPayload{Menu: &menu},
		Confidence: boolConfidence(found),
	}, nil
}
