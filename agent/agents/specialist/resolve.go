package specialist

import (
	"strings"

	catalogx "github.com/tanpawarit/auracx/agent/catalog"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

const (
	resolvedByEntity   = "entity"
	resolvedByLocation = "location"
)

var storeEntityKeys = []string{"store_id", "store", "store_name"}

// resolveStore picks the store a request is about: an explicit store entity first,
// then the store nearest the customer's location.
func resolveStore(snap *catalogx.Snapshot, req contractx.AgentRequest) (string, string, bool) {
	for _, key := range storeEntityKeys {
		v, ok := req.Entity(key)
		if !ok {
			continue
		}
		if id, ok := matchStore(snap, v); ok {
			return id, resolvedByEntity, true
		}
	}
	if req.Location != nil {
		if near, ok := snap.NearestStore(*req.Location); ok {
			return near.StoreID, resolvedByLocation, true
		}
	}
	return "", "", false
}

func matchStore(snap *catalogx.Snapshot, value string) (string, bool) {
	want := catalogx.NormalizeProduct(value)
	if want == "" {
		return "", false
	}
	ids := snap.StoreIDs()
	for _, id := range ids {
		if id == want {
			return id, true
		}
	}
	for _, id := range ids {
		st, _ := snap.Store(id)
		if catalogx.NormalizeProduct(st.Name) == want {
			return id, true
		}
	}
	for _, id := range ids {
		st, _ := snap.Store(id)
		if strings.Contains(id, want) || strings.Contains(catalogx.NormalizeProduct(st.Name), want) {
			return id, true
		}
	}
	return "", false
}
