// Package catalog holds the read-only store, inventory, order and offer data the
// domain agents query. A Snapshot is built once and shared across requests; writes
// produce a new Snapshot.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"
)

var ErrInvalidDataset = errors.New("catalog: invalid dataset")

var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

type clockRange struct {
	open, close int // minutes after midnight
}

type Snapshot struct {
	stores    map[string]Store
	storeIDs  []string
	zones     map[string]*time.Location
	hours     map[string]map[string]clockRange
	inventory map[string]map[string]StockItem
	orders    map[string]Order
	offers    []Offer
}

// New validates ds and indexes it. The dataset is deep-copied; callers may reuse it.
func New(ds Dataset) (*Snapshot, error) {
	ds = cloneDataset(ds)
	s := &Snapshot{
		stores:    make(map[string]Store, len(ds.Stores)),
		zones:     make(map[string]*time.Location, len(ds.Stores)),
		hours:     make(map[string]map[string]clockRange, len(ds.Stores)),
		inventory: make(map[string]map[string]StockItem, len(ds.Inventory)),
		orders:    make(map[string]Order, len(ds.Orders)),
		offers:    ds.Offers,
	}

	for _, st := range ds.Stores {
		if st.ID == "" {
			return nil, fmt.Errorf("%w: store without id", ErrInvalidDataset)
		}
		if _, dup := s.stores[st.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate store %q", ErrInvalidDataset, st.ID)
		}
		tz := st.Timezone
		if tz == "" {
			tz = "UTC"
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("%w: store %q timezone: %v", ErrInvalidDataset, st.ID, err)
		}
		days := make(map[string]clockRange, len(st.Hours))
		for day, h := range st.Hours {
			day = strings.ToLower(day)
			if !validWeekday(day) {
				return nil, fmt.Errorf("%w: store %q unknown weekday %q", ErrInvalidDataset, st.ID, day)
			}
			open, err := parseClock(h.Open)
			if err != nil {
				return nil, fmt.Errorf("%w: store %q %s open: %v", ErrInvalidDataset, st.ID, day, err)
			}
			closing, err := parseClock(h.Close)
			if err != nil {
				return nil, fmt.Errorf("%w: store %q %s close: %v", ErrInvalidDataset, st.ID, day, err)
			}
			days[day] = clockRange{open: open, close: closing}
		}
		s.stores[st.ID] = st
		s.storeIDs = append(s.storeIDs, st.ID)
		s.zones[st.ID] = loc
		s.hours[st.ID] = days
	}
	sort.Strings(s.storeIDs)

	for _, inv := range ds.Inventory {
		if _, ok := s.stores[inv.StoreID]; !ok {
			return nil, fmt.Errorf("%w: inventory for unknown store %q", ErrInvalidDataset, inv.StoreID)
		}
		products := s.inventory[inv.StoreID]
		if products == nil {
			products = make(map[string]StockItem, len(inv.Products))
			s.inventory[inv.StoreID] = products
		}
		for name, item := range inv.Products {
			if item.Quantity < 0 {
				return nil, fmt.Errorf("%w: negative stock for %s at %s", ErrInvalidDataset, name, inv.StoreID)
			}
			products[NormalizeProduct(name)] = item
		}
	}

	for _, o := range ds.Orders {
		if o.ID == "" {
			return nil, fmt.Errorf("%w: order without id", ErrInvalidDataset)
		}
		if _, dup := s.orders[o.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate order %q", ErrInvalidDataset, o.ID)
		}
		s.orders[o.ID] = o
	}

	seen := make(map[string]struct{}, len(ds.Offers))
	for _, of := range ds.Offers {
		code := strings.ToUpper(of.Code)
		if code == "" {
			return nil, fmt.Errorf("%w: offer %q without code", ErrInvalidDataset, of.ID)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("%w: duplicate offer code %q", ErrInvalidDataset, of.Code)
		}
		seen[code] = struct{}{}
		if of.Type != OfferPercentage && of.Type != OfferFixed {
			return nil, fmt.Errorf("%w: offer %q type %q", ErrInvalidDataset, of.ID, of.Type)
		}
		if of.ValidUntil != "" {
			if _, err := time.Parse(time.DateOnly, of.ValidUntil); err != nil {
				return nil, fmt.Errorf("%w: offer %q valid_until: %v", ErrInvalidDataset, of.ID, err)
			}
		}
	}

	return s, nil
}

func (s *Snapshot) StoreIDs() []string {
	return append([]string(nil), s.storeIDs...)
}

func (s *Snapshot) Store(id string) (Store, bool) {
	st, ok := s.stores[id]
	if !ok {
		return Store{}, false
	}
	return cloneStore(st), true
}

// NormalizeProduct folds "Hot Cocoa", "hot-cocoa" and "hot_cocoa" onto one key.
func NormalizeProduct(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	return name
}

func validWeekday(day string) bool {
	for _, d := range weekdays {
		if d == day {
			return true
		}
	}
	return false
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return time.Date(2000, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format("3:04 PM")
}

func cloneStore(st Store) Store {
	if st.Hours != nil {
		h := make(map[string]DayHours, len(st.Hours))
		for k, v := range st.Hours {
			h[k] = v
		}
		st.Hours = h
	}
	return st
}

func cloneOrder(o Order) Order {
	o.Items = append([]string(nil), o.Items...)
	return o
}

func cloneDataset(ds Dataset) Dataset {
	out := Dataset{
		Stores:    make([]Store, 0, len(ds.Stores)),
		Inventory: make([]StoreInventory, 0, len(ds.Inventory)),
		Orders:    make([]Order, 0, len(ds.Orders)),
		Offers:    make([]Offer, 0, len(ds.Offers)),
	}
	for _, st := range ds.Stores {
		out.Stores = append(out.Stores, cloneStore(st))
	}
	for _, inv := range ds.Inventory {
		p := make(map[string]StockItem, len(inv.Products))
		for k, v := range inv.Products {
			p[k] = v
		}
		out.Inventory = append(out.Inventory, StoreInventory{StoreID: inv.StoreID, Products: p})
	}
	for _, o := range ds.Orders {
		out.Orders = append(out.Orders, cloneOrder(o))
	}
	for _, of := range ds.Offers {
		out.Offers = append(out.Offers, of.clone())
	}
	return out
}
