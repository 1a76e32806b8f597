package features

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cucumber/godog"
	"github.com/georgemunganga/shopfront-backend/internal/modules/inventory"
	"github.com/georgemunganga/shopfront-backend/internal/modules/inventory/inventorytest"
	"go.uber.org/zap"
)

type inventoryTestContext struct {
	store      *inventorytest.Store
	svc        inventory.Service
	variantOf  map[int64]int64
	result     *inventory.Availability
	reserved   bool
	successful int
	err        error
}

func (c *inventoryTestContext) reset() {
	c.store = inventorytest.NewStore()
	c.svc = inventory.NewService(c.store, nil, zap.NewNop(), 0)
	c.variantOf = map[int64]int64{}
	c.result = nil
	c.reserved = false
	c.successful = 0
	c.err = nil
}

func (c *inventoryTestContext) aPublishedProduct(id int64) error {
	c.store.AddProduct(id, "published")
	return nil
}

func (c *inventoryTestContext) aDraftProduct(id int64) error {
	c.store.AddProduct(id, "draft")
	return nil
}

func (c *inventoryTestContext) variantOfProductWithUnits(variantID, productID int64, qty int) error {
	c.variantOf[variantID] = productID
	c.store.AddVariant(inventory.VariantStock{ID: variantID, ProductID: productID, Qty: qty})
	return nil
}

func (c *inventoryTestContext) variantHasUnitsLeft(variantID int64, qty int) error {
	productID, ok := c.variantOf[variantID]
	if !ok {
		return fmt.Errorf("variant %d was not declared", variantID)
	}
	return c.variantOfProductWithUnits(variantID, productID, qty)
}

func (c *inventoryTestContext) cartLineHolds(lineID, variantID int64, qty int) error {
	c.store.PutCartItem(lineID, variantID, qty)
	return nil
}

func (c *inventoryTestContext) check(qty int, variantID, productID int64, lineID *int64) error {
	c.result, c.err = c.svc.CheckAvailability(context.Background(), inventory.AvailabilityRequest{
		ProductID:  productID,
		VariantID:  &variantID,
		Quantity:   qty,
		CartItemID: lineID,
	})
	return c.err
}

func (c *inventoryTestContext) iCheckUnits(qty int, variantID, productID int64) error {
	return c.check(qty, variantID, productID, nil)
}

func (c *inventoryTestContext) iCheckUnitsForCartLine(qty int, variantID, productID, lineID int64) error {
	return c.check(qty, variantID, productID, &lineID)
}

func (c *inventoryTestContext) theStockIsAvailable() error {
	if !c.result.Available {
		return fmt.Errorf("expected available, got %q", c.result.Message)
	}
	return nil
}

func (c *inventoryTestContext) theStockIsNotAvailable() error {
	if c.result.Available {
		return fmt.Errorf("expected not available")
	}
	return nil
}

func (c *inventoryTestContext) theMessageIs(msg string) error {
	if c.result.Message != msg {
		return fmt.Errorf("expected message %q, got %q", msg, c.result.Message)
	}
	return nil
}

func (c *inventoryTestContext) theAvailableQuantityIs(qty int) error {
	if c.result.AvailableQty != qty {
		return fmt.Errorf("expected available_qty %d, got %d", qty, c.result.AvailableQty)
	}
	return nil
}

func (c *inventoryTestContext) theNetDemandIs(qty int) error {
	if c.result.NetDemand != qty {
		return fmt.Errorf("expected net_demand %d, got %d", qty, c.result.NetDemand)
	}
	return nil
}

func (c *inventoryTestContext) iReserve(qty int, variantID int64) error {
	c.reserved, c.err = c.svc.ReserveQty(context.Background(), variantID, qty)
	return c.err
}

func (c *inventoryTestContext) iRelease(qty int, variantID int64) error {
	ok, err := c.svc.ReleaseQty(context.Background(), variantID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("release of variant %d was rejected", variantID)
	}
	return nil
}

func (c *inventoryTestContext) theReservationSucceeds() error {
	if !c.reserved {
		return fmt.Errorf("expected reservation to succeed")
	}
	return nil
}

func (c *inventoryTestContext) theReservationFails() error {
	if c.reserved {
		return fmt.Errorf("expected reservation to fail")
	}
	return nil
}

func (c *inventoryTestContext) variantHasUnits(variantID int64, qty int) error {
	if got := c.store.Qty(variantID); got != qty {
		return fmt.Errorf("expected variant %d to have %d units, got %d", variantID, qty, got)
	}
	return nil
}

func (c *inventoryTestContext) shoppersEachReserve(shoppers, qty int, variantID int64) error {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	errs := make(chan error, shoppers)
	for i := 0; i < shoppers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.svc.ReserveQty(context.Background(), variantID, qty)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				mu.Lock()
				c.successful++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	return <-errs
}

func (c *inventoryTestContext) reservationsSucceed(n int) error {
	if c.successful != n {
		return fmt.Errorf("expected %d successful reservations, got %d", n, c.successful)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &inventoryTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a published product (\d+)$`, tc.aPublishedProduct)
	ctx.Step(`^a draft product (\d+)$`, tc.aDraftProduct)
	ctx.Step(`^variant (\d+) of product (\d+) with (\d+) units$`, tc.variantOfProductWithUnits)
	ctx.Step(`^variant (\d+) has (\d+) units left$`, tc.variantHasUnitsLeft)
	ctx.Step(`^cart line (\d+) of variant (\d+) holds (\d+) units$`, tc.cartLineHolds)

	// When steps
	ctx.Step(`^I check (\d+) units of variant (\d+) on product (\d+)$`, tc.iCheckUnits)
	ctx.Step(`^I check (\d+) units of variant (\d+) on product (\d+) for cart line (\d+)$`, tc.iCheckUnitsForCartLine)
	ctx.Step(`^I reserve (\d+) units of variant (\d+)$`, tc.iReserve)
	ctx.Step(`^I release (\d+) units of variant (\d+)$`, tc.iRelease)
	ctx.Step(`^(\d+) shoppers each reserve (\d+) unit of variant (\d+) at once$`, tc.shoppersEachReserve)

	// Then steps
	ctx.Step(`^the stock is available$`, tc.theStockIsAvailable)
	ctx.Step(`^the stock is not available$`, tc.theStockIsNotAvailable)
	ctx.Step(`^the message is "([^"]*)"$`, tc.theMessageIs)
	ctx.Step(`^the available quantity is (\d+)$`, tc.theAvailableQuantityIs)
	ctx.Step(`^the net demand is (-?\d+)$`, tc.theNetDemandIs)
	ctx.Step(`^the reservation succeeds$`, tc.theReservationSucceeds)
	ctx.Step(`^the reservation fails$`, tc.theReservationFails)
	ctx.Step(`^variant (\d+) has (\d+) units$`, tc.variantHasUnits)
	ctx.Step(`^(\d+) reservations succeed$`, tc.reservationsSucceed)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"availability.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
