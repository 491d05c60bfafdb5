package model

import "time"

// StockItem is the aggregate stock record for one orderable listing
// (a specific card, condition and shop).  The engine only ever touches
// the Held counter; Total is owned by the merchant-side inventory
// collaborator.  Available quantity is always derived as Total-Held and
// is never stored on its own.
//
// Held never goes negative.  It can transiently exceed Total when a
// merchant lowers Total below the quantity already promised to holds; the
// counters reconverge as those holds settle, and no new hold is granted
// while Total-Held is below the requested quantity.
type StockItem struct {
	ID        string    // stock_items.id
	ShopID    string    // stock_items.shop_id
	Total     int       // stock_items.total (merchant-controlled)
	Held      int       // stock_items.held (engine-controlled)
	UpdatedAt time.Time // stock_items.updated_at
}

// Available returns the quantity offerable to new reservation requests.
func (s *StockItem) Available() int {
	return s.Total - s.Held
}
