package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines cart data storage.
type Repository interface {
	GetOrCreateCart(ctx context.Context, userID int64) (*Cart, error)
	ListItems(ctx context.Context, cartID int64) ([]*Item, error)
	GetItem(ctx context.Context, cartID, itemID int64) (*Item, error)
	// AddItemQty opens a line for it.VariantID, or adds it.Qty to the cart's
	// existing line for that variant. it is refreshed from the stored row.
	AddItemQty(ctx context.Context, it *Item) error
	// UpdateItemQty writes it.Qty only while the line still holds expected.
	// ErrConflict otherwise.
	UpdateItemQty(ctx context.Context, it *Item, expected int) error
	// DeleteItem returns the removed line as it was at deletion.
	DeleteItem(ctx context.Context, cartID, itemID int64) (*Item, error)
	// DeleteItems empties the cart and returns the removed lines.
	DeleteItems(ctx context.Context, cartID int64) ([]*Item, error)
	// UnitPrice is the variant price, falling back to the product base price.
	UnitPrice(ctx context.Context, productID, variantID int64) (decimal.Decimal, error)
}
