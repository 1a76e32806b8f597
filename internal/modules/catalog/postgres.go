package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// ---- Product ----

const productColumns = `id,name,slug,description,base_price,status,deleted_at,created_at,updated_at`

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanProduct(row rowScanner) (*Product, error) {
	p := &Product{}
	var deletedAt sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.BasePrice,
		&p.Status, &deletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Time
	}
	return p, nil
}

func (r *postgresRepo) CreateProduct(ctx context.Context, p *Product) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (name, slug, description, base_price, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Slug, p.Description, p.BasePrice, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapError(err)
}

func (r *postgresRepo) GetProduct(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id=$1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (r *postgresRepo) ListProducts(ctx context.Context, f ProductFilter) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE deleted_at IS NULL`
	args := []interface{}{}
	n := 1
	if f.Status != "" {
		query += fmt.Sprintf(` AND status=$%d`, n)
		args = append(args, f.Status)
		n++
	}
	if f.Search != "" {
		query += fmt.Sprintf(` AND name ILIKE $%d`, n)
		args = append(args, "%"+f.Search+"%")
		n++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresRepo) UpdateProduct(ctx context.Context, p *Product) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name=$1, slug=$2, description=$3, base_price=$4, updated_at=NOW()
		WHERE id=$5 AND deleted_at IS NULL
		RETURNING updated_at`,
		p.Name, p.Slug, p.Description, p.BasePrice, p.ID).Scan(&p.UpdatedAt)
	return mapError(err)
}

func (r *postgresRepo) SetProductStatus(ctx context.Context, id int64, status ProductStatus) error {
	return r.execOne(ctx,
		`UPDATE products SET status=$1, updated_at=NOW() WHERE id=$2 AND deleted_at IS NULL`, status, id)
}

func (r *postgresRepo) SoftDeleteProduct(ctx context.Context, id int64) error {
	return r.execOne(ctx,
		`UPDATE products SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id)
}

// ---- Variant ----

const variantColumns = `id,product_id,color_id,size_id,sku,price,qty,is_default,created_at,updated_at`

func scanVariant(row rowScanner) (*Variant, error) {
	v := &Variant{}
	var colorID, sizeID sql.NullInt64
	err := row.Scan(&v.ID, &v.ProductID, &colorID, &sizeID, &v.SKU, &v.Price,
		&v.Qty, &v.IsDefault, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
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

// CreateVariant inserts the variant and, when it is the default, demotes the
// previous default inside the same transaction.
func (r *postgresRepo) CreateVariant(ctx context.Context, v *Variant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if v.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE product_variants SET is_default=FALSE, updated_at=NOW() WHERE product_id=$1 AND is_default`,
			v.ProductID); err != nil {
			return fmt.Errorf("clear default variant: %w", err)
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO product_variants (product_id, color_id, size_id, sku, price, qty, is_default)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at`,
		v.ProductID, v.ColorID, v.SizeID, v.SKU, v.Price, v.Qty, v.IsDefault).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert variant: %w", mapError(err))
	}
	return tx.Commit()
}

func (r *postgresRepo) GetVariant(ctx context.Context, id int64) (*Variant, error) {
	v, err := scanVariant(r.db.QueryRowContext(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE id=$1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return v, nil
}

func (r *postgresRepo) ListVariants(ctx context.Context, productID int64) ([]*Variant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE product_id=$1 ORDER BY id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []*Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (r *postgresRepo) UpdateVariant(ctx context.Context, v *Variant) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE product_variants
		SET color_id=$1, size_id=$2, sku=$3, price=$4, updated_at=NOW()
		WHERE id=$5
		RETURNING updated_at`,
		v.ColorID, v.SizeID, v.SKU, v.Price, v.ID).Scan(&v.UpdatedAt)
	return mapError(err)
}

func (r *postgresRepo) SetDefaultVariant(ctx context.Context, productID, variantID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE product_variants SET is_default=FALSE, updated_at=NOW() WHERE product_id=$1 AND is_default AND id<>$2`,
		productID, variantID); err != nil {
		return fmt.Errorf("clear default variant: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE product_variants SET is_default=TRUE, updated_at=NOW() WHERE id=$1 AND product_id=$2`,
		variantID, productID)
	if err != nil {
		return fmt.Errorf("set default variant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// SetStock overwrites the stock counter. Cart holds go through the inventory ledger instead.
func (r *postgresRepo) SetStock(ctx context.Context, variantID int64, qty int) error {
	return r.execOne(ctx,
		`UPDATE product_variants SET qty=$1, updated_at=NOW() WHERE id=$2`, qty, variantID)
}

// ---- Color / Size ----

func (r *postgresRepo) CreateColor(ctx context.Context, c *Color) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO colors (name, hex_code) VALUES ($1,$2) RETURNING id, created_at`,
		c.Name, c.HexCode).Scan(&c.ID, &c.CreatedAt)
	return mapError(err)
}

func (r *postgresRepo) ListColors(ctx context.Context) ([]*Color, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, hex_code, created_at FROM colors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var colors []*Color
	for rows.Next() {
		c := &Color{}
		if err := rows.Scan(&c.ID, &c.Name, &c.HexCode, &c.CreatedAt); err != nil {
			return nil, err
		}
		colors = append(colors, c)
	}
	return colors, rows.Err()
}

func (r *postgresRepo) CreateSize(ctx context.Context, s *Size) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO sizes (name) VALUES ($1) RETURNING id, created_at`, s.Name).
		Scan(&s.ID, &s.CreatedAt)
	return mapError(err)
}

func (r *postgresRepo) ListSizes(ctx context.Context) ([]*Size, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM sizes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sizes []*Size
	for rows.Next() {
		s := &Size{}
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		sizes = append(sizes, s)
	}
	return sizes, rows.Err()
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *postgresRepo) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// mapError converts driver errors into catalog sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: unknown reference %s", ErrInvalidInput, pqErr.Constraint)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", ErrInvalidInput, pqErr.Constraint)
		}
	}
	return err
}
