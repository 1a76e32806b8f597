package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, req ProductRequest) (*Product, error)
	// GetProduct returns the product with its variants, served from cache when possible.
	GetProduct(ctx context.Context, id int64) (*ProductView, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]*Product, error)
	UpdateProduct(ctx context.Context, id int64, req ProductRequest) (*Product, error)
	SetStatus(ctx context.Context, id int64, status ProductStatus) (*Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	AddVariant(ctx context.Context, productID int64, req VariantRequest) (*Variant, error)
	ListVariants(ctx context.Context, productID int64) ([]*Variant, error)
	UpdateVariant(ctx context.Context, id int64, req VariantRequest) (*Variant, error)
	SetDefaultVariant(ctx context.Context, id int64) (*Variant, error)
	// SetStock overwrites a variant's stock counter (admin restock / stocktake).
	SetStock(ctx context.Context, id int64, qty int) (*Variant, error)

	CreateColor(ctx context.Context, req ColorRequest) (*Color, error)
	ListColors(ctx context.Context) ([]*Color, error)
	CreateSize(ctx context.Context, req SizeRequest) (*Size, error)
	ListSizes(ctx context.Context) ([]*Size, error)
}

// ProductRequest holds the data for creating or updating a product.
type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Slug        string          `json:"slug" validate:"omitempty,max=200"`
	Description string          `json:"description"`
	BasePrice   decimal.Decimal `json:"base_price"`
}

// VariantRequest holds the data for creating or updating a variant.
// Qty and IsDefault are only read on create.
type VariantRequest struct {
	ColorID   *int64              `json:"color_id"`
	SizeID    *int64              `json:"size_id"`
	SKU       string              `json:"sku" validate:"max=100"`
	Price     decimal.NullDecimal `json:"price"`
	Qty       int                 `json:"qty" validate:"gte=0"`
	IsDefault bool                `json:"is_default"`
}

type ColorRequest struct {
	Name    string `json:"name" validate:"required,max=50"`
	HexCode string `json:"hex_code" validate:"omitempty,hexcolor"`
}

type SizeRequest struct {
	Name string `json:"name" validate:"required,max=20"`
}

// validTransitions defines the allowed product status changes.
var validTransitions = map[ProductStatus][]ProductStatus{
	StatusDraft:     {StatusPublished, StatusArchived},
	StatusPublished: {StatusArchived, StatusDraft},
	StatusArchived:  {StatusPublished},
}

type service struct {
	repo  Repository
	cache ProductCache
	log   *zap.Logger
	group singleflight.Group
}

// NewService creates a new catalog service.
func NewService(repo Repository, cache ProductCache, log *zap.Logger) Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &service{repo: repo, cache: cache, log: log}
}

func (s *service) CreateProduct(ctx context.Context, req ProductRequest) (*Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Name)
	}
	p := &Product{
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug,
		Description: req.Description,
		BasePrice:   req.BasePrice,
		Status:      StatusDraft,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*ProductView, error) {
	if view, ok, err := s.cache.Get(ctx, id); err != nil {
		s.log.Warn("product cache read failed", zap.Int64("product_id", id), zap.Error(err))
	} else if ok {
		return view, nil
	}

	// Concurrent misses for the same product share one store read, so the
	// read must outlive any single caller's cancellation.
	v, err, _ := s.group.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		p, err := s.repo.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		variants, err := s.repo.ListVariants(ctx, id)
		if err != nil {
			return nil, err
		}
		view := &ProductView{Product: p, Variants: variants}
		if err := s.cache.Set(ctx, view); err != nil {
			s.log.Warn("product cache write failed", zap.Int64("product_id", id), zap.Error(err))
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ProductView), nil
}

func (s *service) ListProducts(ctx context.Context, f ProductFilter) ([]*Product, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.ListProducts(ctx, f)
}

func (s *service) UpdateProduct(ctx context.Context, id int64, req ProductRequest) (*Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(req.Name)
	if req.Slug != "" {
		p.Slug = req.Slug
	}
	p.Description = req.Description
	p.BasePrice = req.BasePrice
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return p, nil
}

func (s *service) SetStatus(ctx context.Context, id int64, status ProductStatus) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == status {
		return p, nil
	}
	valid := false
	for _, next := range validTransitions[p.Status] {
		if next == status {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("%w: cannot move product from %s to %s", ErrInvalidTransition, p.Status, status)
	}
	if err := s.repo.SetProductStatus(ctx, id, status); err != nil {
		return nil, err
	}
	p.Status = status
	s.invalidate(ctx, id)
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.SoftDeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *service) AddVariant(ctx context.Context, productID int64, req VariantRequest) (*Variant, error) {
	if req.Qty < 0 {
		return nil, fmt.Errorf("%w: qty must not be negative", ErrInvalidInput)
	}
	if req.Price.Valid && req.Price.Decimal.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	v := &Variant{
		ProductID: productID,
		ColorID:   req.ColorID,
		SizeID:    req.SizeID,
		SKU:       req.SKU,
		Price:     req.Price,
		Qty:       req.Qty,
		IsDefault: req.IsDefault,
	}
	if err := s.repo.CreateVariant(ctx, v); err != nil {
		return nil, err
	}
	s.invalidate(ctx, productID)
	return v, nil
}

func (s *service) ListVariants(ctx context.Context, productID int64) ([]*Variant, error) {
	return s.repo.ListVariants(ctx, productID)
}

func (s *service) UpdateVariant(ctx context.Context, id int64, req VariantRequest) (*Variant, error) {
	if req.Price.Valid && req.Price.Decimal.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	v, err := s.repo.GetVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	v.ColorID = req.ColorID
	v.SizeID = req.SizeID
	v.SKU = req.SKU
	v.Price = req.Price
	if err := s.repo.UpdateVariant(ctx, v); err != nil {
		return nil, err
	}
	s.invalidate(ctx, v.ProductID)
	return v, nil
}

func (s *service) SetDefaultVariant(ctx context.Context, id int64) (*Variant, error) {
	v, err := s.repo.GetVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetDefaultVariant(ctx, v.ProductID, v.ID); err != nil {
		return nil, err
	}
	v.IsDefault = true
	s.invalidate(ctx, v.ProductID)
	return v, nil
}

func (s *service) SetStock(ctx context.Context, id int64, qty int) (*Variant, error) {
	if qty < 0 {
		return nil, fmt.Errorf("%w: qty must not be negative", ErrInvalidInput)
	}
	v, err := s.repo.GetVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetStock(ctx, id, qty); err != nil {
		return nil, err
	}
	s.log.Info("stock_set", zap.Int64("variant_id", id), zap.Int("from", v.Qty), zap.Int("to", qty))
	v.Qty = qty
	s.invalidate(ctx, v.ProductID)
	return v, nil
}

func (s *service) CreateColor(ctx context.Context, req ColorRequest) (*Color, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	c := &Color{Name: strings.TrimSpace(req.Name), HexCode: req.HexCode}
	if err := s.repo.CreateColor(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) ListColors(ctx context.Context) ([]*Color, error) {
	return s.repo.ListColors(ctx)
}

func (s *service) CreateSize(ctx context.Context, req SizeRequest) (*Size, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	sz := &Size{Name: strings.TrimSpace(req.Name)}
	if err := s.repo.CreateSize(ctx, sz); err != nil {
		return nil, err
	}
	return sz, nil
}

func (s *service) ListSizes(ctx context.Context) ([]*Size, error) {
	return s.repo.ListSizes(ctx)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *service) invalidate(ctx context.Context, productID int64) {
	if err := s.cache.Invalidate(ctx, productID); err != nil {
		s.log.Warn("product cache invalidation failed", zap.Int64("product_id", productID), zap.Error(err))
	}
}

func validateProduct(req ProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if req.BasePrice.IsNegative() {
		return fmt.Errorf("%w: base_price must not be negative", ErrInvalidInput)
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
