package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetProduct(ctx context.Context, id int64) (*ProductState, error) {
	p := &ProductState{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, status, deleted_at IS NOT NULL FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Status, &p.Deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

const variantColumns = `id, product_id, color_id, size_id, qty, is_default`

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanVariant(row rowScanner) (*VariantStock, error) {
	v := &VariantStock{}
	var colorID, sizeID sql.NullInt64
	if err := row.Scan(&v.ID, &v.ProductID, &colorID, &sizeID, &v.Qty, &v.IsDefault); err != nil {
		return nil, err
	}
	if colorID.Valid {
		v.ColorID = &colorID.Int64
	}
	if sizeID.Valid {
		v.SizeID = &sizeID.Int64
	}
	return v, nil
}

func (r *postgresRepo) GetVariant(ctx context.Context, productID, variantID int64) (*VariantStock, error) {
	v, err := scanVariant(r.db.QueryRowContext(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE id=$1 AND product_id=$2`,
		variantID, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get variant %d: %w", variantID, err)
	}
	return v, nil
}

func (r *postgresRepo) FindVariants(ctx context.Context, productID int64, colorID, sizeID *int64) ([]*VariantStock, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE product_id=$1`
	args := []interface{}{productID}
	if colorID != nil {
		args = append(args, *colorID)
		query += fmt.Sprintf(` AND color_id=$%d`, len(args))
	}
	if sizeID != nil {
		args = append(args, *sizeID)
		query += fmt.Sprintf(` AND size_id=$%d`, len(args))
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find variants: %w", err)
	}
	defer rows.Close()

	var variants []*VariantStock
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (r *postgresRepo) CartItemQty(ctx context.Context, cartItemID, variantID int64) (int, error) {
	var qty int
	err := r.db.QueryRowContext(ctx,
		`SELECT qty FROM cart_items WHERE id=$1 AND variant_id=$2`, cartItemID, variantID).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get cart item %d: %w", cartItemID, err)
	}
	return qty, nil
}

// DecrementStock is a single conditional UPDATE, so concurrent callers can
// never drive qty below zero between a read and a write.
func (r *postgresRepo) DecrementStock(ctx context.Context, variantID int64, qty int) (int, bool, error) {
	return r.adjust(ctx, `
		UPDATE product_variants SET qty = qty - $1, updated_at = NOW()
		WHERE id = $2 AND qty >= $1
		RETURNING qty`, qty, variantID)
}

func (r *postgresRepo) IncrementStock(ctx context.Context, variantID int64, qty int) (int, bool, error) {
	return r.adjust(ctx, `
		UPDATE product_variants SET qty = qty + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING qty`, qty, variantID)
}

func (r *postgresRepo) adjust(ctx context.Context, query string, qty int, variantID int64) (int, bool, error) {
	var remaining int
	err := r.db.QueryRowContext(ctx, query, qty, variantID).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("adjust stock of variant %d: %w", variantID, err)
	}
	return remaining, true, nil
}
