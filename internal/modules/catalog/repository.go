package catalog

import "context"

// Repository defines catalog data storage.
type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	// GetProduct excludes soft-deleted products.
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]*Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	SetProductStatus(ctx context.Context, id int64, status ProductStatus) error
	SoftDeleteProduct(ctx context.Context, id int64) error

	// CreateVariant clears any other default of the product when v.IsDefault is set.
	CreateVariant(ctx context.Context, v *Variant) error
	GetVariant(ctx context.Context, id int64) (*Variant, error)
	ListVariants(ctx context.Context, productID int64) ([]*Variant, error)
	UpdateVariant(ctx context.Context, v *Variant) error
	// SetDefaultVariant makes variantID the only default variant of productID.
	SetDefaultVariant(ctx context.Context, productID, variantID int64) error
	SetStock(ctx context.Context, variantID int64, qty int) error

	CreateColor(ctx context.Context, c *Color) error
	ListColors(ctx context.Context) ([]*Color, error)
	CreateSize(ctx context.Context, s *Size) error
	ListSizes(ctx context.Context) ([]*Size, error)
}
