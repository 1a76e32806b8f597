package cart

import (
	"context"
	"fmt"

	"github.com/georgemunganga/shopfront-backend/internal/modules/inventory"
	"go.uber.org/zap"
)

// Service defines cart business logic. Every quantity change is checked and
// then reserved or released through the inventory ledger.
type Service interface {
	GetCart(ctx context.Context, userID int64) (*Cart, error)
	// AddItem adds to the line already holding the resolved variant, or opens a new one.
	AddItem(ctx context.Context, userID int64, req AddItemRequest) (*Cart, error)
	UpdateItem(ctx context.Context, userID, itemID int64, qty int) (*Cart, error)
	RemoveItem(ctx context.Context, userID, itemID int64) (*Cart, error)
	Clear(ctx context.Context, userID int64) error
}

// AddItemRequest selects a variant the same way an availability check does.
type AddItemRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	VariantID *int64 `json:"variant_id"`
	ColorID   *int64 `json:"color_id"`
	SizeID    *int64 `json:"size_id"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type service struct {
	repo  Repository
	stock inventory.Service
	log   *zap.Logger
}

// NewService creates a new cart service.
func NewService(repo Repository, stock inventory.Service, log *zap.Logger) Service {
	return &service{repo: repo, stock: stock, log: log}
}

func (s *service) GetCart(ctx context.Context, userID int64) (*Cart, error) {
	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, c)
}

func (s *service) AddItem(ctx context.Context, userID int64, req AddItemRequest) (*Cart, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidInput)
	}
	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Merging into an existing line adds exactly req.Quantity of new demand,
	// so one check against the resolved variant covers both cases.
	res, err := s.stock.CheckAvailability(ctx, inventory.AvailabilityRequest{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		ColorID:   req.ColorID,
		SizeID:    req.SizeID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return nil, err
	}
	if !res.Available {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, res.Message)
	}
	variantID := *res.VariantID

	price, err := s.repo.UnitPrice(ctx, req.ProductID, variantID)
	if err != nil {
		return nil, fmt.Errorf("price variant %d: %w", variantID, err)
	}
	if err := s.reserve(ctx, variantID, req.Quantity); err != nil {
		return nil, err
	}

	// The repository adds to the line rather than overwriting it, so every
	// reservation made here stays matched by the line's quantity.
	it := &Item{CartID: c.ID, ProductID: req.ProductID, VariantID: &variantID, Price: price}
	it.setQty(req.Quantity)
	if err := s.repo.AddItemQty(ctx, it); err != nil {
		s.compensate(ctx, variantID, req.Quantity)
		return nil, err
	}
	return s.load(ctx, c)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID int64, qty int) (*Cart, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidInput)
	}
	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	it, err := s.repo.GetItem(ctx, c.ID, itemID)
	if err != nil {
		return nil, err
	}
	diff := qty - it.Qty
	if diff == 0 {
		return s.load(ctx, c)
	}
	if it.VariantID == nil {
		return nil, fmt.Errorf("%w: cart item %d has no variant", ErrInvalidInput, itemID)
	}
	variantID := *it.VariantID
	held := it.Qty

	// Shrinking needs no stock, so it is allowed even once the product is
	// no longer sold. The hold is returned only after the line shrank.
	if diff < 0 {
		it.setQty(qty)
		if err := s.repo.UpdateItemQty(ctx, it, held); err != nil {
			return nil, err
		}
		if ok, err := s.stock.ReleaseQty(ctx, variantID, -diff); err != nil || !ok {
			s.log.Error("cart_release_failed", zap.Int64("cart_item_id", it.ID),
				zap.Int64("variant_id", variantID), zap.Int("qty", -diff), zap.Error(err))
		}
		return s.load(ctx, c)
	}

	res, err := s.stock.CheckAvailability(ctx, inventory.AvailabilityRequest{
		ProductID:  it.ProductID,
		VariantID:  it.VariantID,
		Quantity:   qty,
		CartItemID: &it.ID,
	})
	if err != nil {
		return nil, err
	}
	if !res.Available {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, res.Message)
	}
	if err := s.reserve(ctx, variantID, diff); err != nil {
		return nil, err
	}

	it.setQty(qty)
	if err := s.repo.UpdateItemQty(ctx, it, held); err != nil {
		s.compensate(ctx, variantID, diff)
		return nil, err
	}
	return s.load(ctx, c)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID int64) (*Cart, error) {
	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	it, err := s.repo.DeleteItem(ctx, c.ID, itemID)
	if err != nil {
		return nil, err
	}
	s.release(ctx, it)
	return s.load(ctx, c)
}

func (s *service) Clear(ctx context.Context, userID int64) error {
	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}
	removed, err := s.repo.DeleteItems(ctx, c.ID)
	if err != nil {
		return err
	}
	for _, it := range removed {
		s.release(ctx, it)
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *service) load(ctx context.Context, c *Cart) (*Cart, error) {
	items, err := s.repo.ListItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Item{}
	}
	c.Items = items
	c.totals()
	return c, nil
}

// reserve reports a lost race on the conditional decrement as unavailable stock.
func (s *service) reserve(ctx context.Context, variantID int64, qty int) error {
	ok, err := s.stock.ReserveQty(ctx, variantID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: stock changed while adding to cart, please try again", ErrUnavailable)
	}
	return nil
}

// compensate returns stock reserved for a cart write that did not land.
func (s *service) compensate(ctx context.Context, variantID int64, qty int) {
	if ok, err := s.stock.ReleaseQty(ctx, variantID, qty); err != nil || !ok {
		s.log.Error("cart_compensation_failed", zap.Int64("variant_id", variantID),
			zap.Int("qty", qty), zap.Error(err))
	}
}

// release returns a removed line's hold. The line is already gone, so a
// failure is logged rather than surfaced.
func (s *service) release(ctx context.Context, it *Item) {
	if it.VariantID == nil {
		return
	}
	if ok, err := s.stock.ReleaseQty(ctx, *it.VariantID, it.Qty); err != nil || !ok {
		s.log.Error("cart_release_failed", zap.Int64("cart_item_id", it.ID),
			zap.Int64("variant_id", *it.VariantID), zap.Int("qty", it.Qty), zap.Error(err))
	}
}
