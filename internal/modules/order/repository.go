package order

import "context"

// Repository defines order data storage.
type Repository interface {
	// CreateOrder inserts the order with its items and deletes the given cart
	// lines in one transaction. ErrConflict when any of those lines is gone
	// or no longer holds the quantity checkout read.
	CreateOrder(ctx context.Context, o *Order, cartID int64, lines []HeldLine) error
	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context, f Filter) ([]*Order, error)
	// UpdateStatus moves the order only if it is still in from.
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
}
