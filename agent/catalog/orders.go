package catalog

import (
	"sort"
	"strings"
	"time"
)

type OrderStatus struct {
	OrderID    string    `json:"order_id"`
	Found      bool      `json:"found"`
	CustomerID string    `json:"customer_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Items      []string  `json:"items,omitempty"`
	Total      float64   `json:"total,omitempty"`
	StoreID    string    `json:"store_id,omitempty"`
	StoreName  string    `json:"store_name,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	PickupTime string    `json:"pickup_time,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// OrderStatus looks an order up by id. Leading "#" and whitespace are ignored.
func (s *Snapshot) OrderStatus(orderID string) OrderStatus {
	id := strings.TrimPrefix(strings.TrimSpace(orderID), "#")
	o, ok := s.orders[id]
	if !ok {
		return OrderStatus{OrderID: id}
	}
	return s.orderStatus(o)
}

func (s *Snapshot) orderStatus(o Order) OrderStatus {
	return OrderStatus{
		OrderID:    o.ID,
		Found:      true,
		CustomerID: o.CustomerID,
		Status:     o.Status,
		Items:      append([]string(nil), o.Items...),
		Total:      o.Total,
		StoreID:    o.StoreID,
		StoreName:  s.stores[o.StoreID].Name,
		CreatedAt:  o.CreatedAt,
		PickupTime: o.PickupTime,
		Notes:      o.Notes,
	}
}

// CustomerOrders returns the customer's orders, newest first.
func (s *Snapshot) CustomerOrders(customerID string) []OrderStatus {
	var out []OrderStatus
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, s.orderStatus(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out
}

type LineItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}
