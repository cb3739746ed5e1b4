package catalog

import "time"

// Dataset is the raw, loadable form of the catalog. Snapshot is built from it once.
type Dataset struct {
	Stores    []Store          `yaml:"stores"`
	Inventory []StoreInventory `yaml:"inventory"`
	Orders    []Order          `yaml:"orders"`
	Offers    []Offer          `yaml:"offers"`
}

type Store struct {
	ID        string              `yaml:"id" json:"store_id"`
	Name      string              `yaml:"name" json:"name"`
	Latitude  float64             `yaml:"latitude" json:"latitude"`
	Longitude float64             `yaml:"longitude" json:"longitude"`
	Address   string              `yaml:"address" json:"address"`
	Phone     string              `yaml:"phone" json:"phone"`
	Timezone  string              `yaml:"timezone" json:"timezone"`
	Hours     map[string]DayHours `yaml:"hours" json:"hours"`
}

// DayHours uses 24h "HH:MM" clock strings. A weekday without an entry is closed.
type DayHours struct {
	Open  string `yaml:"open" json:"open"`
	Close string `yaml:"close" json:"close"`
}

type StoreInventory struct {
	StoreID  string               `yaml:"store_id"`
	Products map[string]StockItem `yaml:"products"`
}

type StockItem struct {
	Quantity int     `yaml:"quantity" json:"quantity"`
	Price    float64 `yaml:"price" json:"price"`
	Category string  `yaml:"category" json:"category"`
}

type Order struct {
	ID         string    `yaml:"id" json:"order_id"`
	CustomerID string    `yaml:"customer_id" json:"customer_id"`
	Items      []string  `yaml:"items" json:"items"`
	Total      float64   `yaml:"total" json:"total"`
	Status     string    `yaml:"status" json:"status"`
	StoreID    string    `yaml:"store_id" json:"store_id"`
	CreatedAt  time.Time `yaml:"created_at" json:"created_at"`
	PickupTime string    `yaml:"pickup_time" json:"pickup_time,omitempty"`
	Notes      string    `yaml:"notes" json:"notes,omitempty"`
}

const (
	OfferPercentage = "percentage"
	OfferFixed      = "fixed"
)

type Offer struct {
	ID          string   `yaml:"id" json:"id"`
	Code        string   `yaml:"code" json:"code"`
	Description string   `yaml:"description" json:"description"`
	Discount    float64  `yaml:"discount" json:"discount"`
	Type        string   `yaml:"type" json:"type"`
	MinPurchase float64  `yaml:"min_purchase" json:"min_purchase"`
	ValidUntil  string   `yaml:"valid_until" json:"valid_until"`
	Categories  []string `yaml:"categories" json:"categories"`
}

func (o Offer) hasCategory(cat string) bool {
	for _, c := range o.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

func (o Offer) clone() Offer {
	o.Categories = append([]string(nil), o.Categories...)
	return o
}
