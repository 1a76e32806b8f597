package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgemunganga/shopfront-backend/internal/platform/events"
	"go.uber.org/zap"
)

// Checker decides whether stock can be held. It never mutates stock.
type Checker interface {
	CheckAvailability(ctx context.Context, req AvailabilityRequest) (*Availability, error)
}

// Ledger holds and returns stock. These are the only stock-mutating calls
// the cart and order flows make.
type Ledger interface {
	// ReserveQty takes qty units when at least qty remain. false means the
	// variant is missing or short and nothing changed.
	ReserveQty(ctx context.Context, variantID int64, qty int) (bool, error)
	// ReleaseQty returns qty units. false means the variant is missing.
	ReleaseQty(ctx context.Context, variantID int64, qty int) (bool, error)
}

// Service is the inventory core: availability checks plus the reservation ledger.
type Service interface {
	Checker
	Ledger
}

type service struct {
	repo              Repository
	publisher         events.Publisher
	log               *zap.Logger
	lowStockThreshold int
}

// NewService creates the inventory service. A successful reservation that
// leaves lowStockThreshold or fewer units publishes a stock.low event.
func NewService(repo Repository, publisher events.Publisher, log *zap.Logger, lowStockThreshold int) Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &service{repo: repo, publisher: publisher, log: log, lowStockThreshold: lowStockThreshold}
}

func (s *service) CheckAvailability(ctx context.Context, req AvailabilityRequest) (*Availability, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	res := &Availability{RequestedQty: req.Quantity, NetDemand: req.Quantity}

	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if product == nil || !product.Purchasable() {
		res.Message = MsgProductUnavailable
		return res, nil
	}

	variant, msg, err := s.resolveVariant(ctx, req)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		res.Message = msg
		return res, nil
	}
	res.VariantID = &variant.ID
	res.AvailableQty = variant.Qty

	if req.CartItemID != nil {
		held, err := s.repo.CartItemQty(ctx, *req.CartItemID, variant.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			// Unknown line, or one holding another variant: the whole quantity is new demand.
		case err != nil:
			return nil, err
		default:
			res.NetDemand = req.Quantity - held
			if res.NetDemand <= 0 {
				res.Available = true
				res.Message = MsgAvailable
				return res, nil
			}
		}
	}

	if variant.Qty < res.NetDemand {
		res.Message = insufficientStockMessage(variant.Qty)
		return res, nil
	}
	res.Available = true
	res.Message = MsgAvailable
	return res, nil
}

// resolveVariant returns the variant the selector points at, or nil and the
// reason when nothing matches.
func (s *service) resolveVariant(ctx context.Context, req AvailabilityRequest) (*VariantStock, string, error) {
	if req.VariantID != nil {
		v, err := s.repo.GetVariant(ctx, req.ProductID, *req.VariantID)
		if errors.Is(err, ErrNotFound) {
			return nil, MsgVariantNotFound, nil
		}
		if err != nil {
			return nil, "", err
		}
		return v, "", nil
	}

	if req.ColorID != nil || req.SizeID != nil {
		variants, err := s.repo.FindVariants(ctx, req.ProductID, req.ColorID, req.SizeID)
		if err != nil {
			return nil, "", err
		}
		if len(variants) == 0 {
			return nil, MsgOptionsNotFound, nil
		}
		if len(variants) > 1 {
			s.log.Warn("ambiguous variant selection, using lowest id",
				zap.Int64("product_id", req.ProductID),
				zap.Int("matches", len(variants)),
				zap.Int64("variant_id", variants[0].ID))
		}
		return variants[0], "", nil
	}

	variants, err := s.repo.FindVariants(ctx, req.ProductID, nil, nil)
	if err != nil {
		return nil, "", err
	}
	if len(variants) == 0 {
		return nil, MsgNoVariants, nil
	}
	for _, v := range variants {
		if v.IsDefault {
			return v, "", nil
		}
	}
	return variants[0], "", nil
}

func (s *service) ReserveQty(ctx context.Context, variantID int64, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}
	remaining, ok, err := s.repo.DecrementStock(ctx, variantID, qty)
	if err != nil {
		return false, fmt.Errorf("reserve: %w", err)
	}
	if !ok {
		s.log.Info("stock_reserve_rejected", zap.Int64("variant_id", variantID), zap.Int("qty", qty))
		return false, nil
	}
	s.log.Info("stock_reserved", zap.Int64("variant_id", variantID), zap.Int("qty", qty), zap.Int("remaining", remaining))

	change := StockChange{VariantID: variantID, Delta: -qty, Remaining: remaining}
	s.publish(ctx, events.StockReserved, change)
	if remaining <= s.lowStockThreshold {
		s.publish(ctx, events.StockLow, change)
	}
	return true, nil
}

func (s *service) ReleaseQty(ctx context.Context, variantID int64, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}
	remaining, ok, err := s.repo.IncrementStock(ctx, variantID, qty)
	if err != nil {
		return false, fmt.Errorf("release: %w", err)
	}
	if !ok {
		s.log.Warn("stock_release_unknown_variant", zap.Int64("variant_id", variantID), zap.Int("qty", qty))
		return false, nil
	}
	s.log.Info("stock_released", zap.Int64("variant_id", variantID), zap.Int("qty", qty), zap.Int("remaining", remaining))
	s.publish(ctx, events.StockReleased, StockChange{VariantID: variantID, Delta: qty, Remaining: remaining})
	return true, nil
}

// publish never fails the ledger operation; the counter is already committed.
func (s *service) publish(ctx context.Context, eventType string, change StockChange) {
	if err := s.publisher.Publish(ctx, events.New(eventType, change)); err != nil {
		s.log.Error("event publish failed", zap.String("type", eventType),
			zap.Int64("variant_id", change.VariantID), zap.Error(err))
	}
}
