package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pingTimeout = 1 * time.Second

// PostgresBackend talks to the service's Postgres database directly, for
// deployments that hold a connection string instead of an API key.
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return b.db.PingContext(ctx)
	})
}

func (b *PostgresBackend) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if f.CategoryID > 0 {
		rows, err = b.db.QueryContext(ctx, `
			SELECT id, category_id, product_name, product_description, product_stock, product_price
			FROM product
			WHERE category_id = $1
			ORDER BY product_name ASC
		`, f.CategoryID)
	} else {
		rows, err = b.db.QueryContext(ctx, `
			SELECT id, category_id, product_name, product_description, product_stock, product_price
			FROM product
			ORDER BY product_name ASC
		`)
	}
	if err != nil {
		return nil, pgError(err)
	}
	defer rows.Close()

	out := make([]Product, 0, 16)
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError(err)
	}
	return out, nil
}

func (b *PostgresBackend) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, category_name
		FROM category
		ORDER BY category_name ASC
	`)
	if err != nil {
		return nil, pgError(err)
	}
	defer rows.Close()

	out := make([]Category, 0, 16)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError(err)
	}
	return out, nil
}

func (b *PostgresBackend) InsertProduct(ctx context.Context, p NewProduct) (Product, error) {
	row := b.db.QueryRowContext(ctx, `
		INSERT INTO product (category_id, product_name, product_description, product_stock, product_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, category_id, product_name, product_description, product_stock, product_price
	`, p.CategoryID, p.Name, p.Description, p.Stock, p.Price)

	out, err := scanProduct(row.Scan)
	if err != nil {
		return Product{}, pgError(err)
	}
	return out, nil
}

func scanProduct(scan func(...any) error) (Product, error) {
	var (
		p    Product
		desc sql.NullString
	)
	if err := scan(&p.ID, &p.CategoryID, &p.Name, &desc, &p.Stock, &p.Price); err != nil {
		return Product{}, err
	}
	p.Description = desc.String
	return p, nil
}

// pgError keeps the SQLSTATE visible in the message while leaving the
// *pgconn.PgError reachable through errors.As.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres %s: %w", pgErr.Code, err)
	}
	return err
}
