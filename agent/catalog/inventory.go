package catalog

import "sort"

type StockLevel struct {
	StoreID    string  `json:"store_id"`
	Product    string  `json:"product"`
	StoreFound bool    `json:"store_found"`
	Found      bool    `json:"found"`
	Available  bool    `json:"available"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price,omitempty"`
	Category   string  `json:"category,omitempty"`
}

func (s *Snapshot) CheckStock(storeID, product string) StockLevel {
	key := NormalizeProduct(product)
	out := StockLevel{StoreID: storeID, Product: key}
	if _, ok := s.stores[storeID]; !ok {
		return out
	}
	out.StoreFound = true
	item, ok := s.inventory[storeID][key]
	if !ok {
		return out
	}
	out.Found = true
	out.Available = item.Quantity > 0
	out.Quantity = item.Quantity
	out.Price = item.Price
	out.Category = item.Category
	return out
}

// FindProduct lists every store carrying product in stock, by store id.
func (s *Snapshot) FindProduct(product string) []StockLevel {
	key := NormalizeProduct(product)
	var out []StockLevel
	for _, id := range s.storeIDs {
		lvl := s.CheckStock(id, key)
		if lvl.Available {
			out = append(out, lvl)
		}
	}
	return out
}

type MenuItem struct {
	Product  string  `json:"product"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	InStock  bool    `json:"in_stock"`
}

type Menu struct {
	StoreID string     `json:"store_id"`
	Name    string     `json:"name"`
	Items   []MenuItem `json:"items"`
}

func (s *Snapshot) StoreMenu(storeID string) (Menu, bool) {
	st, ok := s.stores[storeID]
	if !ok {
		return Menu{StoreID: storeID}, false
	}
	products := s.inventory[storeID]
	items := make([]MenuItem, 0, len(products))
	for name, it := range products {
		items = append(items, MenuItem{
			Product:  name,
			Price:    it.Price,
			Category: it.Category,
			InStock:  it.Quantity > 0,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Product < items[j].Product })
	return Menu{StoreID: st.ID, Name: st.Name, Items: items}, true
}
