package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type storeRow struct {
	bun.BaseModel `bun:"table:stores"`

	ID        string  `bun:"id,pk"`
	Name      string  `bun:"name"`
	Latitude  float64 `bun:"latitude"`
	Longitude float64 `bun:"longitude"`
	Address   string  `bun:"address"`
	Phone     string  `bun:"phone"`
	Timezone  string  `bun:"timezone"`
}

type storeHoursRow struct {
	bun.BaseModel `bun:"table:store_hours"`

	StoreID string `bun:"store_id,pk"`
	Weekday string `bun:"weekday,pk"`
	Opens   string `bun:"opens"`
	Closes  string `bun:"closes"`
}

type inventoryRow struct {
	bun.BaseModel `bun:"table:inventory"`

	StoreID  string  `bun:"store_id,pk"`
	Product  string  `bun:"product,pk"`
	Quantity int     `bun:"quantity"`
	Price    float64 `bun:"price"`
	Category string  `bun:"category"`
}

type orderRow struct {
	bun.BaseModel `bun:"table:orders"`

	ID         string    `bun:"id,pk"`
	CustomerID string    `bun:"customer_id"`
	Items      []string  `bun:"items,array"`
	Total      float64   `bun:"total"`
	Status     string    `bun:"status"`
	StoreID    string    `bun:"store_id"`
	CreatedAt  time.Time `bun:"created_at"`
	PickupTime string    `bun:"pickup_time"`
	Notes      string    `bun:"notes"`
}

type offerRow struct {
	bun.BaseModel `bun:"table:offers"`

	ID          string   `bun:"id,pk"`
	Code        string   `bun:"code"`
	Description string   `bun:"description"`
	Discount    float64  `bun:"discount"`
	Type        string   `bun:"type"`
	MinPurchase float64  `bun:"min_purchase"`
	ValidUntil  string   `bun:"valid_until"`
	Categories  []string `bun:"categories,array"`
}

func OpenPostgres(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// LoadPostgres reads every catalog table once. The result is meant to be handed to New.
func LoadPostgres(ctx context.Context, db *bun.DB) (Dataset, error) {
	var (
		storeRows []storeRow
		hourRows  []storeHoursRow
		invRows   []inventoryRow
		orderRows []orderRow
		offerRows []offerRow
	)

	if err := db.NewSelect().Model(&storeRows).Order("id").Scan(ctx); err != nil {
		return Dataset{}, fmt.Errorf("catalog: select stores: %w", err)
	}
	if err := db.NewSelect().Model(&hourRows).Order("store_id", "weekday").Scan(ctx); err != nil {
		return Dataset{}, fmt.Errorf("catalog: select store_hours: %w", err)
	}
	if err := db.NewSelect().Model(&invRows).Order("store_id", "product").Scan(ctx); err != nil {
		return Dataset{}, fmt.Errorf("catalog: select inventory: %w", err)
	}
	if err := db.NewSelect().Model(&orderRows).Order("id").Scan(ctx); err != nil {
		return Dataset{}, fmt.Errorf("catalog: select orders: %w", err)
	}
	if err := db.NewSelect().Model(&offerRows).Order("id").Scan(ctx); err != nil {
		return Dataset{}, fmt.Errorf("catalog: select offers: %w", err)
	}

	return datasetFromRows(storeRows, hourRows, invRows, orderRows, offerRows), nil
}

func datasetFromRows(
	storeRows []storeRow,
	hourRows []storeHoursRow,
	invRows []inventoryRow,
	orderRows []orderRow,
	offerRows []offerRow,
) Dataset {
	var ds Dataset

	idx := make(map[string]int, len(storeRows))
	for _, r := range storeRows {
		idx[r.ID] = len(ds.Stores)
		ds.Stores = append(ds.Stores, Store{
			ID:        r.ID,
			Name:      r.Name,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Address:   r.Address,
			Phone:     r.Phone,
			Timezone:  r.Timezone,
			Hours:     map[string]DayHours{},
		})
	}
	for _, r := range hourRows {
		i, ok := idx[r.StoreID]
		if !ok {
			continue
		}
		ds.Stores[i].Hours[r.Weekday] = DayHours{Open: r.Opens, Close: r.Closes}
	}

	invIdx := make(map[string]int)
	for _, r := range invRows {
		i, ok := invIdx[r.StoreID]
		if !ok {
			i = len(ds.Inventory)
			invIdx[r.StoreID] = i
			ds.Inventory = append(ds.Inventory, StoreInventory{
				StoreID:  r.StoreID,
				Products: map[string]StockItem{},
			})
		}
		ds.Inventory[i].Products[r.Product] = StockItem{
			Quantity: r.Quantity,
			Price:    r.Price,
			Category: r.Category,
		}
	}

	for _, r := range orderRows {
		ds.Orders = append(ds.Orders, Order{
			ID:         r.ID,
			CustomerID: r.CustomerID,
			Items:      r.Items,
			Total:      r.Total,
			Status:     r.Status,
			StoreID:    r.StoreID,
			CreatedAt:  r.CreatedAt,
			PickupTime: r.PickupTime,
			Notes:      r.Notes,
		})
	}

	for _, r := range offerRows {
		ds.Offers = append(ds.Offers, Offer{
			ID:          r.ID,
			Code:        r.Code,
			Description: r.Description,
			Discount:    r.Discount,
			Type:        r.Type,
			MinPurchase: r.MinPurchase,
			ValidUntil:  r.ValidUntil,
			Categories:  r.Categories,
		})
	}
	return ds
}
