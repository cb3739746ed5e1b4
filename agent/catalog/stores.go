package catalog

import (
	"math"
	"sort"
	"time"

	contractx "github.com/tanpawarit/auracx/agent/contract"
)

const earthRadiusKm = 6371.0088

type StoreHours struct {
	StoreID     string            `json:"store_id"`
	Name        string            `json:"name,omitempty"`
	Address     string            `json:"address,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Found       bool              `json:"found"`
	Today       string            `json:"today,omitempty"`
	Opens       string            `json:"opens,omitempty"`
	Closes      string            `json:"closes,omitempty"`
	ClosedToday bool              `json:"closed_today,omitempty"`
	OpenNow     bool              `json:"open_now"`
	Weekly      map[string]string `json:"weekly,omitempty"`
}

// StoreHours reports the store's schedule evaluated at now in the store's own timezone.
func (s *Snapshot) StoreHours(storeID string, now time.Time) StoreHours {
	st, ok := s.stores[storeID]
	if !ok {
		return StoreHours{StoreID: storeID}
	}
	local := now.In(s.zones[storeID])
	today := weekdays[local.Weekday()]
	days := s.hours[storeID]

	out := StoreHours{
		StoreID: st.ID,
		Name:    st.Name,
		Address: st.Address,
		Phone:   st.Phone,
		Found:   true,
		Today:   today,
		Weekly:  make(map[string]string, len(weekdays)),
	}
	for _, d := range weekdays {
		r, ok := days[d]
		if !ok {
			out.Weekly[d] = "closed"
			continue
		}
		out.Weekly[d] = formatClock(r.open) + " - " + formatClock(r.close)
	}

	r, ok := days[today]
	if !ok {
		out.ClosedToday = true
		return out
	}
	out.Opens = formatClock(r.open)
	out.Closes = formatClock(r.close)

	m := local.Hour()*60 + local.Minute()
	if r.close > r.open {
		out.OpenNow = m >= r.open && m < r.close
	} else {
		// overnight schedule, e.g. 18:00 to 02:00
		out.OpenNow = m >= r.open || m < r.close
	}
	return out
}

type NearbyStore struct {
	StoreID    string  `json:"store_id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Phone      string  `json:"phone"`
	DistanceKm float64 `json:"distance_km"`
}

// NearbyStores lists stores within radiusKm of loc, nearest first, ties broken by id.
// A non-positive radius means no limit.
func (s *Snapshot) NearbyStores(loc contractx.Location, radiusKm float64) []NearbyStore {
	out := make([]NearbyStore, 0, len(s.storeIDs))
	for _, id := range s.storeIDs {
		st := s.stores[id]
		d := haversineKm(loc.Latitude, loc.Longitude, st.Latitude, st.Longitude)
		if radiusKm > 0 && d > radiusKm {
			continue
		}
		out = append(out, NearbyStore{
			StoreID:    st.ID,
			Name:       st.Name,
			Address:    st.Address,
			Phone:      st.Phone,
			DistanceKm: math.Round(d*100) / 100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].StoreID < out[j].StoreID
	})
	return out
}

// NearestStore is NearbyStores without a radius, first entry only.
func (s *Snapshot) NearestStore(loc contractx.Location) (NearbyStore, bool) {
	all := s.NearbyStores(loc, 0)
	if len(all) == 0 {
		return NearbyStore{}, false
	}
	return all[0], true
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
