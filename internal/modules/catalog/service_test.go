package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]*Product
	variants map[int64]*Variant
	reads    int32
	// onGet runs before GetProduct reads; its error is returned as is.
	onGet func(ctx context.Context) error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[int64]*Product{}, variants: map[int64]*Variant{}}
}

func (f *fakeRepo) id() int64 { f.nextID++; return f.nextID }

func (f *fakeRepo) CreateProduct(_ context.Context, p *Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.products {
		if existing.Slug == p.Slug {
			return ErrConflict
		}
	}
	p.ID = f.id()
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeRepo) GetProduct(ctx context.Context, id int64) (*Product, error) {
	atomic.AddInt32(&f.reads, 1)
	if f.onGet != nil {
		if err := f.onGet(ctx); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || p.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) ListProducts(_ context.Context, filter ProductFilter) ([]*Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Product
	for _, p := range f.products {
		if p.DeletedAt == nil && (filter.Status == "" || p.Status == filter.Status) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateProduct(_ context.Context, p *Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeRepo) SetProductStatus(_ context.Context, id int64, status ProductStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[id].Status = status
	return nil
}

func (f *fakeRepo) SoftDeleteProduct(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || p.DeletedAt != nil {
		return ErrNotFound
	}
	now := p.UpdatedAt
	p.DeletedAt = &now
	return nil
}

func (f *fakeRepo) CreateVariant(_ context.Context, v *Variant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v.IsDefault {
		f.clearDefault(v.ProductID)
	}
	v.ID = f.id()
	cp := *v
	f.variants[v.ID] = &cp
	return nil
}

func (f *fakeRepo) clearDefault(productID int64) {
	for _, existing := range f.variants {
		if existing.ProductID == productID {
			existing.IsDefault = false
		}
	}
}

func (f *fakeRepo) GetVariant(_ context.Context, id int64) (*Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeRepo) ListVariants(_ context.Context, productID int64) ([]*Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Variant
	for id := int64(1); id <= f.nextID; id++ {
		if v, ok := f.variants[id]; ok && v.ProductID == productID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateVariant(_ context.Context, v *Variant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *v
	f.variants[v.ID] = &cp
	return nil
}

func (f *fakeRepo) SetDefaultVariant(_ context.Context, productID, variantID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearDefault(productID)
	f.variants[variantID].IsDefault = true
	return nil
}

func (f *fakeRepo) SetStock(_ context.Context, variantID int64, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variants[variantID].Qty = qty
	return nil
}

func (f *fakeRepo) CreateColor(_ context.Context, c *Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.id()
	return nil
}
func (f *fakeRepo) ListColors(context.Context) ([]*Color, error) { return nil, nil }
func (f *fakeRepo) CreateSize(_ context.Context, s *Size) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.id()
	return nil
}
func (f *fakeRepo) ListSizes(context.Context) ([]*Size, error) { return nil, nil }

// memCache records invalidations.
type memCache struct {
	mu          sync.Mutex
	views       map[int64]*ProductView
	invalidated []int64
}

func newMemCache() *memCache { return &memCache{views: map[int64]*ProductView{}} }

func (c *memCache) Get(_ context.Context, id int64) (*ProductView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[id]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, v *ProductView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[v.ID] = v
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

func newTestService(repo Repository, cache ProductCache) Service {
	return NewService(repo, cache, zap.NewNop())
}

func TestCreateProduct(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)

	p, err := svc.CreateProduct(context.Background(), ProductRequest{Name: "Linen Shirt!", BasePrice: decimal.NewFromInt(25)})
	require.NoError(t, err)
	assert.Equal(t, "linen-shirt", p.Slug)
	assert.Equal(t, StatusDraft, p.Status)
	assert.False(t, p.Purchasable())

	t.Run("empty name -> invalid", func(t *testing.T) {
		_, err := svc.CreateProduct(context.Background(), ProductRequest{Name: "  "})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("negative price -> invalid", func(t *testing.T) {
		_, err := svc.CreateProduct(context.Background(), ProductRequest{Name: "x", BasePrice: decimal.NewFromInt(-1)})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("duplicate slug -> conflict", func(t *testing.T) {
		_, err := svc.CreateProduct(context.Background(), ProductRequest{Name: "linen shirt"})
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestSetStatusTransitions(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, ProductRequest{Name: "Mug"})
	require.NoError(t, err)

	p, err = svc.SetStatus(ctx, p.ID, StatusPublished)
	require.NoError(t, err)
	assert.True(t, p.Purchasable())

	p, err = svc.SetStatus(ctx, p.ID, StatusArchived)
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, p.ID, StatusDraft)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeleteProductHidesIt(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, ProductRequest{Name: "Hat"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, p.ID), ErrNotFound)
}

func TestDefaultVariantIsUnique(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, ProductRequest{Name: "Sock"})
	require.NoError(t, err)

	first, err := svc.AddVariant(ctx, p.ID, VariantRequest{Qty: 3, IsDefault: true})
	require.NoError(t, err)
	second, err := svc.AddVariant(ctx, p.ID, VariantRequest{Qty: 1, IsDefault: true})
	require.NoError(t, err)

	countDefaults := func() (int, int64) {
		variants, err := svc.ListVariants(ctx, p.ID)
		require.NoError(t, err)
		n, id := 0, int64(0)
		for _, v := range variants {
			if v.IsDefault {
				n++
				id = v.ID
			}
		}
		return n, id
	}

	n, id := countDefaults()
	assert.Equal(t, 1, n)
	assert.Equal(t, second.ID, id)

	_, err = svc.SetDefaultVariant(ctx, first.ID)
	require.NoError(t, err)
	n, id = countDefaults()
	assert.Equal(t, 1, n)
	assert.Equal(t, first.ID, id)
}

func TestAddVariantValidation(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	ctx := context.Background()

	_, err := svc.AddVariant(ctx, 99, VariantRequest{Qty: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := svc.CreateProduct(ctx, ProductRequest{Name: "Scarf"})
	require.NoError(t, err)
	_, err = svc.AddVariant(ctx, p.ID, VariantRequest{Qty: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SetStock(ctx, 12345, 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnitPriceFallsBackToBasePrice(t *testing.T) {
	p := &Product{BasePrice: decimal.NewFromInt(10)}
	assert.True(t, (&Variant{}).UnitPrice(p).Equal(decimal.NewFromInt(10)))

	v := &Variant{Price: decimal.NewNullDecimal(decimal.RequireFromString("12.50"))}
	assert.True(t, v.UnitPrice(p).Equal(decimal.RequireFromString("12.5")))
}

func TestGetProductUsesCacheAndWritesInvalidate(t *testing.T) {
	repo := newFakeRepo()
	cache := newMemCache()
	svc := newTestService(repo, cache)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, ProductRequest{Name: "Tote"})
	require.NoError(t, err)
	_, err = svc.AddVariant(ctx, p.ID, VariantRequest{Qty: 2})
	require.NoError(t, err)

	readsBefore := atomic.LoadInt32(&repo.reads)
	view, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, view.Variants, 1)
	_, err = svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, readsBefore+1, atomic.LoadInt32(&repo.reads), "second read should be served from cache")

	_, err = svc.SetStock(ctx, view.Variants[0].ID, 7)
	require.NoError(t, err)
	assert.Contains(t, cache.invalidated, p.ID)

	view, err = svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, view.Variants[0].Qty)
}

func TestColorsAndSizes(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	ctx := context.Background()

	c, err := svc.CreateColor(ctx, ColorRequest{Name: " Navy ", HexCode: "#000080"})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, "Navy", c.Name)

	sz, err := svc.CreateSize(ctx, SizeRequest{Name: "XL"})
	require.NoError(t, err)
	assert.NotZero(t, sz.ID)

	_, err = svc.CreateColor(ctx, ColorRequest{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateSize(ctx, SizeRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetProductSharedReadSurvivesCallerCancel(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	p, err := svc.CreateProduct(context.Background(), ProductRequest{Name: "Cap"})
	require.NoError(t, err)

	var once sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	repo.onGet = func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-release
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		view *ProductView
		err  error
	}
	first := make(chan result, 1)
	go func() {
		v, err := svc.GetProduct(ctx, p.ID)
		first <- result{v, err}
	}()
	<-started
	second := make(chan result, 1)
	go func() {
		v, err := svc.GetProduct(context.Background(), p.ID)
		second <- result{v, err}
	}()

	cancel()
	close(release)

	for _, ch := range []chan result{first, second} {
		r := <-ch
		require.NoError(t, r.err)
		assert.Equal(t, p.ID, r.view.ID)
	}
}
