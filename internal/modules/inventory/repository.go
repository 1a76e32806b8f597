package inventory

import "context"

// Repository reads and adjusts stock counters.
type Repository interface {
	// GetProduct returns ErrNotFound when the product row does not exist.
	// Soft-deleted products are returned with Deleted set.
	GetProduct(ctx context.Context, id int64) (*ProductState, error)

	// GetVariant returns the variant only when it belongs to productID.
	GetVariant(ctx context.Context, productID, variantID int64) (*VariantStock, error)

	// FindVariants lists the product's variants ordered by id, filtered by
	// color and size when those are non-nil.
	FindVariants(ctx context.Context, productID int64, colorID, sizeID *int64) ([]*VariantStock, error)

	// CartItemQty returns the quantity a cart line holds of variantID. A line
	// holding any other variant is ErrNotFound.
	CartItemQty(ctx context.Context, cartItemID, variantID int64) (int, error)

	// DecrementStock subtracts qty only when at least qty units remain.
	// ok is false when the variant is missing or short; nothing changes then.
	DecrementStock(ctx context.Context, variantID int64, qty int) (remaining int, ok bool, err error)

	// IncrementStock adds qty. ok is false when the variant is missing.
	IncrementStock(ctx context.Context, variantID int64, qty int) (remaining int, ok bool, err error)
}
