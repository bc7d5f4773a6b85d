package catalog

import (
	"context"
	"fmt"

	boterrors "github.com/abgdnv/orderbot/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Loader provides the products a catalog is built from.
type Loader interface {
	// List returns all active products in display order.
	List(ctx context.Context) ([]Product, error)
}

// Querier is the subset of pgxpool.Pool used by PgLoader.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgLoader reads products from the products table.
type PgLoader struct {
	db Querier
}

// NewPgLoader creates a Loader backed by PostgreSQL.
func NewPgLoader(db Querier) *PgLoader {
	return &PgLoader{db: db}
}

const listProducts = `SELECT id, name, price::text, stock, description
FROM products
WHERE active
ORDER BY position, id`

func (l *PgLoader) List(ctx context.Context) ([]Product, error) {
	rows, err := l.db.Query(ctx, listProducts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", boterrors.ErrLoadProducts, err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var price string
		if err := rows.Scan(&p.ID, &p.Name, &price, &p.Stock, &p.Description); err != nil {
			return nil, fmt.Errorf("%w: %v", boterrors.ErrLoadProducts, err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("%w: product %s price %q: %v", boterrors.ErrLoadProducts, p.ID, price, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", boterrors.ErrLoadProducts, err)
	}
	return products, nil
}

// Load builds a catalog from the loader.
func Load(ctx context.Context, loader Loader) (*Catalog, error) {
	products, err := loader.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", boterrors.ErrLoadProducts)
	}
	return New(products)
}
