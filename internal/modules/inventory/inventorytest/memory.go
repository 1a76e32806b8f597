// Package inventorytest provides an in-memory inventory.Repository for tests
// in any module that drives the ledger.
package inventorytest

import (
	"context"
	"sort"
	"sync"

	"github.com/georgemunganga/shopfront-backend/internal/modules/inventory"
	"github.com/georgemunganga/shopfront-backend/internal/platform/events"
)

// Store is a mutex-guarded inventory.Repository. Every stock adjustment is
// atomic with respect to other callers, like the conditional UPDATE it stands in for.
type Store struct {
	mu        sync.Mutex
	products  map[int64]*inventory.ProductState
	variants  map[int64]*inventory.VariantStock
	cartItems map[int64]cartLine

	// Err, when set, is returned by every call.
	Err error
}

type cartLine struct {
	variantID int64
	qty       int
}

func NewStore() *Store {
	return &Store{
		products:  map[int64]*inventory.ProductState{},
		variants:  map[int64]*inventory.VariantStock{},
		cartItems: map[int64]cartLine{},
	}
}

// AddProduct seeds a product with the given status ("published", "draft", ...).
func (s *Store) AddProduct(id int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = &inventory.ProductState{ID: id, Status: status}
}

// DeleteProduct soft-deletes a seeded product.
func (s *Store) DeleteProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		p.Deleted = true
	}
}

func (s *Store) AddVariant(v inventory.VariantStock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[v.ID] = &v
}

// PutCartItem records (or overwrites) the quantity of a variant a cart line holds.
func (s *Store) PutCartItem(id, variantID int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartItems[id] = cartLine{variantID: variantID, qty: qty}
}

func (s *Store) RemoveCartItem(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cartItems, id)
}

// Qty returns a variant's current stock, or -1 when it does not exist.
func (s *Store) Qty(variantID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[variantID]
	if !ok {
		return -1
	}
	return v.Qty
}

func (s *Store) GetProduct(_ context.Context, id int64) (*inventory.ProductState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetVariant(_ context.Context, productID, variantID int64) (*inventory.VariantStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	v, ok := s.variants[variantID]
	if !ok || v.ProductID != productID {
		return nil, inventory.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *Store) FindVariants(_ context.Context, productID int64, colorID, sizeID *int64) ([]*inventory.VariantStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*inventory.VariantStock
	for _, v := range s.variants {
		if v.ProductID != productID || !matches(v.ColorID, colorID) || !matches(v.SizeID, sizeID) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matches(have, want *int64) bool {
	if want == nil {
		return true
	}
	return have != nil && *have == *want
}

func (s *Store) CartItemQty(_ context.Context, cartItemID, variantID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	line, ok := s.cartItems[cartItemID]
	if !ok || line.variantID != variantID {
		return 0, inventory.ErrNotFound
	}
	return line.qty, nil
}

func (s *Store) DecrementStock(_ context.Context, variantID int64, qty int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, false, s.Err
	}
	v, ok := s.variants[variantID]
	if !ok || v.Qty < qty {
		return 0, false, nil
	}
	v.Qty -= qty
	return v.Qty, true, nil
}

func (s *Store) IncrementStock(_ context.Context, variantID int64, qty int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, false, s.Err
	}
	v, ok := s.variants[variantID]
	if !ok {
		return 0, false, nil
	}
	v.Qty += qty
	return v.Qty, true, nil
}

// Recorder is an events.Publisher that keeps every event it is handed.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event

	// Err, when set, is returned by Publish after recording the event.
	Err error
}

func (r *Recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

var _ inventory.Repository = (*Store)(nil)
var _ events.Publisher = (*Recorder)(nil)
