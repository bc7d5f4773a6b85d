package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/orderbot/internal/engine"
	boterrors "github.com/abgdnv/orderbot/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// DB is the subset of pgxpool.Pool used by PgStore.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, total, shipping_info, payment_method, status, eta, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	insertItemSQL = `INSERT INTO order_items (order_id, position, product_id, name, unit_price, quantity)
VALUES ($1, $2, $3, $4, $5, $6)`
	findOrderSQL = `SELECT id, user_id, total::text, shipping_info, payment_method, status, eta, created_at
FROM orders WHERE id = $1`
	findUserOrdersSQL = `SELECT id, user_id, total::text, shipping_info, payment_method, status, eta, created_at
FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC OFFSET $2 LIMIT $3`
	findItemsSQL = `SELECT order_id, product_id, name, unit_price::text, quantity
FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`
)

type PgStore struct {
	db DB
}

// NewPgStore creates a new instance of OrderStore using a PostgreSQL connection pool.
func NewPgStore(db DB) *PgStore {
	return &PgStore{db: db}
}

func (p *PgStore) Insert(ctx context.Context, order *engine.Order) error {
	return p.withTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertOrderSQL,
			order.ID, order.UserID, toNumeric(order.Total), order.ShippingInfo,
			order.PaymentMethod, string(order.Status), order.ETA, order.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return boterrors.ErrOrderExists
			}
			return fmt.Errorf("%w: %w", boterrors.ErrCreateOrder, err)
		}
		for i, item := range order.Items {
			_, err := tx.Exec(ctx, insertItemSQL,
				order.ID, i, item.ProductID, item.Name, toNumeric(item.UnitPrice), item.Quantity)
			if err != nil {
				return fmt.Errorf("%w: %w", boterrors.ErrCreateOrderItem, err)
			}
		}
		return nil
	})
}

func (p *PgStore) FindByID(ctx context.Context, id string) (*engine.Order, error) {
	order, err := scanOrder(p.db.QueryRow(ctx, findOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, boterrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %w", boterrors.ErrFailedToFindOrder, err)
	}

	orders := []engine.Order{*order}
	if err := p.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (p *PgStore) FindByUserID(ctx context.Context, userID string, offset, limit int32) ([]engine.Order, error) {
	rows, err := p.db.Query(ctx, findUserOrdersSQL, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", boterrors.ErrFailedToFindUserOrders, err)
	}
	defer rows.Close()

	orders := make([]engine.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", boterrors.ErrFailedToFindUserOrders, err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", boterrors.ErrFailedToFindUserOrders, err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	if err := p.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of all given orders with one query.
func (p *PgStore) attachItems(ctx context.Context, orders []engine.Order) error {
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = make([]engine.CartItem, 0)
	}

	rows, err := p.db.Query(ctx, findItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("%w: %w", boterrors.ErrFailedToFindOrderItems, err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID, price string
		var item engine.CartItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &price, &item.Quantity); err != nil {
			return fmt.Errorf("%w: %w", boterrors.ErrFailedToFindOrderItems, err)
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("%w: unit price %q: %w", boterrors.ErrFailedToFindOrderItems, price, err)
		}
		i, ok := index[orderID]
		if !ok {
			continue
		}
		orders[i].Items = append(orders[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %w", boterrors.ErrFailedToFindOrderItems, err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*engine.Order, error) {
	var o engine.Order
	var total, status string
	if err := row.Scan(&o.ID, &o.UserID, &total, &o.ShippingInfo, &o.PaymentMethod, &status, &o.ETA, &o.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("order %s total %q: %w", o.ID, total, err)
	}
	o.Status = engine.OrderStatus(status)
	return &o, nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", boterrors.ErrTransactionBegin, err)
	}

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return boterrors.ErrTransactionRollback
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", boterrors.ErrTransactionCommit, err)
	}

	return nil
}
