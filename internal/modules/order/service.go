package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgemunganga/shopfront-backend/internal/modules/cart"
	"github.com/georgemunganga/shopfront-backend/internal/modules/inventory"
	"github.com/georgemunganga/shopfront-backend/internal/platform/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service defines the order management business logic.
type Service interface {
	// Checkout turns the user's cart into a pending order. The cart's stock
	// holds carry over to the order.
	Checkout(ctx context.Context, userID int64, req CheckoutRequest) (*Order, error)

	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context, f Filter) ([]*Order, error)

	// UpdateStatus advances an order to a new lifecycle status.
	UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error)

	// CancelOrder cancels a pending or confirmed order and returns its stock.
	CancelOrder(ctx context.Context, id int64) (*Order, error)
}

// CartReader is the part of the cart module checkout needs.
type CartReader interface {
	GetCart(ctx context.Context, userID int64) (*cart.Cart, error)
}

type CheckoutRequest struct {
	Notes           string `json:"notes" validate:"max=1000"`
	ShippingAddress string `json:"shipping_address" validate:"max=1000"`
}

// Options are the checkout pricing settings.
type Options struct {
	TaxRate  decimal.Decimal
	Currency string
}

type service struct {
	repo      Repository
	carts     CartReader
	ledger    inventory.Ledger
	publisher events.Publisher
	log       *zap.Logger
	opts      Options
	now       func() time.Time
}

// NewService creates a new order service.
func NewService(repo Repository, carts CartReader, ledger inventory.Ledger, publisher events.Publisher, log *zap.Logger, opts Options) Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &service{repo: repo, carts: carts, ledger: ledger, publisher: publisher, log: log, opts: opts, now: time.Now}
}

// validTransitions defines the allowed status state machine.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Placed is the payload of order.placed and order.cancelled events.
type Placed struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
}

const numberAttempts = 3

func (s *service) Checkout(ctx context.Context, userID int64, req CheckoutRequest) (*Order, error) {
	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// ── Build order items from the held cart lines ───────────────────────────
	items := make([]*Item, 0, len(c.Items))
	held := make([]HeldLine, 0, len(c.Items))
	subtotal := decimal.Zero
	for _, ci := range c.Items {
		lineTotal := ci.Price.Mul(decimal.NewFromInt(int64(ci.Qty)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, &Item{
			ProductID: ci.ProductID,
			VariantID: ci.VariantID,
			Qty:       ci.Qty,
			UnitPrice: ci.Price,
			LineTotal: lineTotal,
		})
		held = append(held, HeldLine{CartItemID: ci.ID, Qty: ci.Qty})
	}

	// ── Calculate totals ──────────────────────────────────────────────────────
	tax := subtotal.Mul(s.opts.TaxRate).Round(2)
	o := &Order{
		UserID:          userID,
		Status:          StatusPending,
		Subtotal:        subtotal.Round(2),
		Tax:             tax,
		Total:           subtotal.Add(tax).Round(2),
		Currency:        s.opts.Currency,
		Notes:           req.Notes,
		ShippingAddress: req.ShippingAddress,
		Items:           items,
	}

	for attempt := 1; ; attempt++ {
		o.OrderNumber = s.generateOrderNumber()
		err = s.repo.CreateOrder(ctx, o, c.ID, held)
		if !errors.Is(err, errDuplicateNumber) || attempt == numberAttempts {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.log.Info("order_placed", zap.Int64("order_id", o.ID), zap.String("order_number", o.OrderNumber),
		zap.Int64("user_id", userID), zap.String("total", o.Total.StringFixed(2)))
	s.publish(ctx, events.OrderPlaced, o)
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *service) ListOrders(ctx context.Context, f Filter) ([]*Order, error) {
	return s.repo.ListOrders(ctx, f)
}

func (s *service) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, o, status); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) CancelOrder(ctx context.Context, id int64) (*Order, error) {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}

// transition applies the state machine. Entering cancelled returns every
// line's stock; the conditional status update guarantees that happens once.
func (s *service) transition(ctx context.Context, o *Order, to Status) error {
	valid := false
	for _, next := range validTransitions[o.Status] {
		if next == to {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: cannot transition order from %s to %s", ErrInvalidTransition, o.Status, to)
	}

	if err := s.repo.UpdateStatus(ctx, o.ID, o.Status, to); err != nil {
		return err
	}
	s.log.Info("order_status_changed", zap.Int64("order_id", o.ID),
		zap.String("from", string(o.Status)), zap.String("to", string(to)))
	o.Status = to

	if to == StatusCancelled {
		for _, it := range o.Items {
			if it.VariantID == nil {
				continue
			}
			if ok, err := s.ledger.ReleaseQty(ctx, *it.VariantID, it.Qty); err != nil || !ok {
				s.log.Error("order_release_failed", zap.Int64("order_id", o.ID),
					zap.Int64("variant_id", *it.VariantID), zap.Int("qty", it.Qty), zap.Error(err))
			}
		}
		s.publish(ctx, events.OrderCancelled, o)
	}
	return nil
}

func (s *service) publish(ctx context.Context, eventType string, o *Order) {
	payload := Placed{OrderID: o.ID, OrderNumber: o.OrderNumber, UserID: o.UserID, Total: o.Total, Currency: o.Currency}
	if err := s.publisher.Publish(ctx, events.New(eventType, payload)); err != nil {
		s.log.Error("event publish failed", zap.String("type", eventType), zap.Int64("order_id", o.ID), zap.Error(err))
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

// generateOrderNumber creates a human-readable order number: ORD-YYYYMMDD-XXXX
func (s *service) generateOrderNumber() string {
	date := s.now().UTC().Format("20060102")
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("ORD-%s-%s", date, suffix)
}
