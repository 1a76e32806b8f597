package cart

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable wraps the availability message shown to the shopper.
	ErrUnavailable = errors.New("stock unavailable")
	// ErrConflict means the line changed between being read and written.
	ErrConflict = errors.New("cart changed, please reload and try again")
)

// Cart is a user's single active cart.
type Cart struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Items     []*Item         `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Item is a cart line. Its Qty is held against the variant's stock.
type Item struct {
	ID        int64           `json:"id"`
	CartID    int64           `json:"cart_id"`
	ProductID int64           `json:"product_id"`
	VariantID *int64          `json:"variant_id,omitempty"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (i *Item) setQty(qty int) {
	i.Qty = qty
	i.Subtotal = i.Price.Mul(decimal.NewFromInt(int64(qty)))
}

// totals fills ItemCount and Subtotal from the loaded items.
func (c *Cart) totals() {
	c.ItemCount = 0
	c.Subtotal = decimal.Zero
	for _, it := range c.Items {
		c.ItemCount += it.Qty
		c.Subtotal = c.Subtotal.Add(it.Subtotal)
	}
}
