package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// GetOrCreateCart relies on carts.user_id being unique; the no-op update makes
// RETURNING yield the existing row.
func (r *postgresRepo) GetOrCreateCart(ctx context.Context, userID int64) (*Cart, error) {
	c := &Cart{UserID: userID}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, created_at, updated_at`, userID).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get cart for user %d: %w", userID, err)
	}
	return c, nil
}

const itemColumns = `id,cart_id,product_id,variant_id,qty,price,subtotal,created_at,updated_at`

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanItem(row rowScanner) (*Item, error) {
	it := &Item{}
	var variantID sql.NullInt64
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &variantID, &it.Qty,
		&it.Price, &it.Subtotal, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if variantID.Valid {
		it.VariantID = &variantID.Int64
	}
	return it, nil
}

func (r *postgresRepo) ListItems(ctx context.Context, cartID int64) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM cart_items WHERE cart_id=$1 ORDER BY id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *postgresRepo) GetItem(ctx context.Context, cartID, itemID int64) (*Item, error) {
	return r.oneItem(ctx, `SELECT `+itemColumns+` FROM cart_items WHERE cart_id=$1 AND id=$2`, cartID, itemID)
}

func (r *postgresRepo) oneItem(ctx context.Context, query string, args ...interface{}) (*Item, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return it, err
}

// AddItemQty increments in place so concurrent adds to one line all land.
// An existing line keeps the price it was opened at.
func (r *postgresRepo) AddItemQty(ctx context.Context, it *Item) error {
	got, err := scanItem(r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, variant_id, qty, price, subtotal)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (cart_id, variant_id) DO UPDATE
		  SET qty = cart_items.qty + EXCLUDED.qty,
		      subtotal = cart_items.price * (cart_items.qty + EXCLUDED.qty),
		      updated_at = NOW()
		RETURNING `+itemColumns,
		it.CartID, it.ProductID, it.VariantID, it.Qty, it.Price, it.Subtotal))
	if err != nil {
		return fmt.Errorf("add to cart %d: %w", it.CartID, err)
	}
	*it = *got
	return nil
}

func (r *postgresRepo) UpdateItemQty(ctx context.Context, it *Item, expected int) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE cart_items SET qty=$1, subtotal=$2, updated_at=NOW()
		WHERE id=$3 AND cart_id=$4 AND qty=$5
		RETURNING updated_at`,
		it.Qty, it.Subtotal, it.ID, it.CartID, expected).Scan(&it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConflict
	}
	return err
}

func (r *postgresRepo) DeleteItem(ctx context.Context, cartID, itemID int64) (*Item, error) {
	return r.oneItem(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND id=$2 RETURNING `+itemColumns, cartID, itemID)
}

func (r *postgresRepo) DeleteItems(ctx context.Context, cartID int64) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`DELETE FROM cart_items WHERE cart_id=$1 RETURNING `+itemColumns, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *postgresRepo) UnitPrice(ctx context.Context, productID, variantID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(v.price, p.base_price)
		FROM product_variants v JOIN products p ON p.id = v.product_id
		WHERE v.id=$1 AND p.id=$2`, variantID, productID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	return price, err
}
