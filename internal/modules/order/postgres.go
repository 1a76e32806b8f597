package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// errDuplicateNumber signals an order_number collision; the service retries with a new number.
var errDuplicateNumber = errors.New("duplicate order number")

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// CreateOrder inserts the order and all its items, then removes the cart lines
// it was built from, inside a single transaction.
func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order, cartID int64, lines []HeldLine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders
		  (user_id, order_number, status, subtotal, tax, total, currency, notes, shipping_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		o.UserID, o.OrderNumber, o.Status, o.Subtotal, o.Tax, o.Total,
		o.Currency, o.Notes, o.ShippingAddress).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return errDuplicateNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		item.OrderID = o.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, variant_id, qty, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id, created_at`,
			o.ID, item.ProductID, item.VariantID, item.Qty, item.UnitPrice, item.LineTotal).
			Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	ids := make([]int64, len(lines))
	qtys := make([]int64, len(lines))
	for i, l := range lines {
		ids[i], qtys[i] = l.CartItemID, int64(l.Qty)
	}
	res, err := tx.ExecContext(ctx, `
		DELETE FROM cart_items c
		USING unnest($2::bigint[], $3::bigint[]) AS held(id, qty)
		WHERE c.cart_id=$1 AND c.id=held.id AND c.qty=held.qty`,
		cartID, pq.Array(ids), pq.Array(qtys))
	if err != nil {
		return fmt.Errorf("empty cart: %w", err)
	}
	if n, _ := res.RowsAffected(); n != int64(len(lines)) {
		return fmt.Errorf("%w: cart changed during checkout", ErrConflict)
	}

	return tx.Commit()
}

const orderColumns = `id,user_id,order_number,status,subtotal,tax,total,currency,notes,shipping_address,created_at,updated_at`

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanOrder(row rowScanner) (*Order, error) {
	o := &Order{}
	err := row.Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Status, &o.Subtotal, &o.Tax,
		&o.Total, &o.Currency, &o.Notes, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *postgresRepo) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Items, err = r.listItems(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) ListOrders(ctx context.Context, f Filter) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE TRUE`
	args := []interface{}{}
	if f.UserID != 0 {
		args = append(args, f.UserID)
		query += fmt.Sprintf(` AND user_id=$%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`, to, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: order %d is no longer %s", ErrConflict, id, from)
	}
	return nil
}

func (r *postgresRepo) listItems(ctx context.Context, orderID int64) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, variant_id, qty, unit_price, line_total, created_at
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it := &Item{}
		var variantID sql.NullInt64
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &variantID, &it.Qty,
			&it.UnitPrice, &it.LineTotal, &it.CreatedAt); err != nil {
			return nil, err
		}
		if variantID.Valid {
			it.VariantID = &variantID.Int64
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
