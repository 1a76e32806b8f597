package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
)

// Decision messages returned in Availability.Message.
const (
	MsgProductUnavailable = "Product not found or not available"
	MsgVariantNotFound    = "Variant not found"
	MsgOptionsNotFound    = "Variant with selected options not found"
	MsgNoVariants         = "No variants available for this product"
	MsgAvailable          = "Stock available"
)

func insufficientStockMessage(available int) string {
	return fmt.Sprintf("Insufficient stock available. Only %d unit(s) available.", available)
}

// AvailabilityRequest asks whether Quantity units of a product can be held.
// The selector is resolved in order: VariantID, then ColorID/SizeID, then the
// product's default variant. CartItemID, when set, turns Quantity into the
// new line total so only the difference against the held amount is checked.
type AvailabilityRequest struct {
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	VariantID  *int64 `json:"variant_id,omitempty"`
	ColorID    *int64 `json:"color_id,omitempty"`
	SizeID     *int64 `json:"size_id,omitempty"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	CartItemID *int64 `json:"cart_item_id,omitempty"`
}

// Availability is the checker's decision.
type Availability struct {
	Available    bool   `json:"available"`
	Message      string `json:"message"`
	AvailableQty int    `json:"available_qty"`
	RequestedQty int    `json:"requested_qty"`
	NetDemand    int    `json:"net_demand"`
	VariantID    *int64 `json:"variant_id,omitempty"`
}

// ProductState is the slice of a product the checker needs.
type ProductState struct {
	ID      int64
	Status  string
	Deleted bool
}

// Purchasable reports whether stock of this product may be held.
func (p *ProductState) Purchasable() bool {
	return p.Status == "published" && !p.Deleted
}

// VariantStock is a variant's stock counter and selector attributes.
type VariantStock struct {
	ID        int64
	ProductID int64
	ColorID   *int64
	SizeID    *int64
	Qty       int
	IsDefault bool
}

// StockChange is the payload of the inventory.stock.* events.
type StockChange struct {
	VariantID int64 `json:"variant_id"`
	Delta     int   `json:"delta"`
	Remaining int   `json:"remaining"`
}
