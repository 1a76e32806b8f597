package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the publication state of a product.
type ProductStatus string

const (
	StatusDraft     ProductStatus = "draft"
	StatusPublished ProductStatus = "published"
	StatusArchived  ProductStatus = "archived"
)

// Product is a sellable item in the catalog. Stock lives on its variants.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Status      ProductStatus   `json:"status"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Purchasable reports whether the product can be added to a cart.
func (p *Product) Purchasable() bool {
	return p.Status == StatusPublished && p.DeletedAt == nil
}

// Variant is a concrete color/size configuration of a product with its own stock.
type Variant struct {
	ID        int64               `json:"id"`
	ProductID int64               `json:"product_id"`
	ColorID   *int64              `json:"color_id,omitempty"`
	SizeID    *int64              `json:"size_id,omitempty"`
	SKU       string              `json:"sku,omitempty"`
	Price     decimal.NullDecimal `json:"price"`
	Qty       int                 `json:"qty"`
	IsDefault bool                `json:"is_default"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// UnitPrice is the variant price, falling back to the product base price.
func (v *Variant) UnitPrice(p *Product) decimal.Decimal {
	if v.Price.Valid {
		return v.Price.Decimal
	}
	return p.BasePrice
}

type Color struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	HexCode   string    `json:"hex_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Size struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductView is the public product page: the product plus its variants.
type ProductView struct {
	*Product
	Variants []*Variant `json:"variants"`
}

// ProductFilter narrows ListProducts.
type ProductFilter struct {
	Status ProductStatus
	Search string
	Limit  int
	Offset int
}
