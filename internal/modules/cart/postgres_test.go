package cart

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

var itemRow = []string{"id", "cart_id", "product_id", "variant_id", "qty", "price", "subtotal", "created_at", "updated_at"}

func TestPostgresAddItemQtyIncrementsExistingLine(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT INTO cart_items.*ON CONFLICT \(cart_id, variant_id\) DO UPDATE.*SET qty = cart_items.qty \+ EXCLUDED.qty`).
		WithArgs(int64(9), int64(1), sqlmock.AnyArg(), 2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(itemRow).AddRow(int64(3), int64(9), int64(1), int64(10), 5, "9.99", "49.95", now, now))

	v := int64(10)
	it := &Item{CartID: 9, ProductID: 1, VariantID: &v, Price: decimal.RequireFromString("10.49")}
	it.setQty(2)
	require.NoError(t, repo.AddItemQty(context.Background(), it))

	assert.Equal(t, int64(3), it.ID)
	assert.Equal(t, 5, it.Qty)
	assert.True(t, it.Price.Equal(decimal.RequireFromString("9.99")), "existing line keeps its price")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateItemQtyRequiresExpectedQty(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id=$3 AND cart_id=$4 AND qty=$5`)).
		WithArgs(3, sqlmock.AnyArg(), int64(7), int64(9), 1).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	it := &Item{ID: 7, CartID: 9, Price: decimal.NewFromInt(2)}
	it.setQty(3)
	err := repo.UpdateItemQty(context.Background(), it, 1)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteItemReturnsRemovedLine(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM cart_items WHERE cart_id=$1 AND id=$2 RETURNING`)).
		WithArgs(int64(9), int64(7)).
		WillReturnRows(sqlmock.NewRows(itemRow).AddRow(int64(7), int64(9), int64(1), int64(10), 4, "1.00", "4.00", now, now))

	it, err := repo.DeleteItem(context.Background(), 9, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, it.Qty)

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM cart_items`)).
		WithArgs(int64(9), int64(8)).
		WillReturnRows(sqlmock.NewRows(itemRow))
	_, err = repo.DeleteItem(context.Background(), 9, 8)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
