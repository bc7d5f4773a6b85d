package store

import (
	"context"
	"errors"
	"testing"
	"time"

	boterrors "github.com/abgdnv/orderbot/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	orderColumns = []string{"id", "user_id", "total", "shipping_info", "payment_method", "status", "eta", "created_at"}
	itemColumns  = []string{"order_id", "product_id", "name", "unit_price", "quantity"}
)

func Test_PgStore_Insert(t *testing.T) {
	testCases := []struct {
		name        string
		setup       func(mock pgxmock.PgxPoolIface)
		expectedErr error
	}{
		{
			name: "Success",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO orders ").WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec("INSERT INTO order_items").WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "Duplicate ID",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO orders ").WillReturnError(&pgconn.PgError{Code: "23505"})
				mock.ExpectRollback()
			},
			expectedErr: boterrors.ErrOrderExists,
		},
		{
			name: "Item insert fails",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO orders ").WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec("INSERT INTO order_items").WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			expectedErr: boterrors.ErrCreateOrderItem,
		},
		{
			name: "Begin fails",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin().WillReturnError(errors.New("pool closed"))
			},
			expectedErr: boterrors.ErrTransactionBegin,
		},
		{
			name: "Commit fails",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO orders ").WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec("INSERT INTO order_items").WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit().WillReturnError(errors.New("connection reset"))
			},
			expectedErr: boterrors.ErrTransactionCommit,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tc.setup(mock)
			store := NewPgStore(mock)

			// when
			err = store.Insert(context.Background(), testOrder("P1", "u1", time.Now()))

			// then
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func Test_PgStore_FindByID(t *testing.T) {
	createdAt := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name        string
		setup       func(mock pgxmock.PgxPoolIface)
		expectedErr error
	}{
		{
			name: "Success",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("FROM orders WHERE id").WithArgs("P1").WillReturnRows(
					pgxmock.NewRows(orderColumns).AddRow("P1", "u1", "50.00", "Calle Hidalgo", "💰 Pago contra Entrega", "pending", "2-3 horas", createdAt),
				)
				mock.ExpectQuery("FROM order_items").WithArgs([]string{"P1"}).WillReturnRows(
					pgxmock.NewRows(itemColumns).
						AddRow("P1", "1", "Agua Mineral 355ml", "10.00", 2).
						AddRow("P1", "2", "Agua Mineral 600ml", "15.00", 2),
				)
			},
		},
		{
			name: "Not found",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("FROM orders WHERE id").WithArgs("P1").WillReturnError(pgx.ErrNoRows)
			},
			expectedErr: boterrors.ErrOrderNotFound,
		},
		{
			name: "Query fails",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("FROM orders WHERE id").WithArgs("P1").WillReturnError(errors.New("timeout"))
			},
			expectedErr: boterrors.ErrFailedToFindOrder,
		},
		{
			name: "Items query fails",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("FROM orders WHERE id").WithArgs("P1").WillReturnRows(
					pgxmock.NewRows(orderColumns).AddRow("P1", "u1", "50.00", "Calle Hidalgo", "cash", "pending", "2-3 horas", createdAt),
				)
				mock.ExpectQuery("FROM order_items").WillReturnError(errors.New("timeout"))
			},
			expectedErr: boterrors.ErrFailedToFindOrderItems,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tc.setup(mock)
			store := NewPgStore(mock)

			// when
			order, err := store.FindByID(context.Background(), "P1")

			// then
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, order)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "50.00", order.Total.StringFixed(2))
				assert.Equal(t, createdAt, order.CreatedAt)
				require.Len(t, order.Items, 2)
				assert.Equal(t, "30.00", order.Items[1].Subtotal().StringFixed(2))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func Test_PgStore_FindByUserID(t *testing.T) {
	// given
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	now := time.Now()
	mock.ExpectQuery("FROM orders WHERE user_id").WithArgs("u1", int32(0), int32(10)).WillReturnRows(
		pgxmock.NewRows(orderColumns).
			AddRow("P2", "u1", "15.00", "a", "cash", "pending", "2-3 horas", now).
			AddRow("P1", "u1", "10.00", "a", "cash", "delivered", "2-3 horas", now.Add(-time.Hour)),
	)
	mock.ExpectQuery("FROM order_items").WithArgs([]string{"P2", "P1"}).WillReturnRows(
		pgxmock.NewRows(itemColumns).
			AddRow("P1", "1", "Agua Mineral 355ml", "10.00", 1).
			AddRow("P2", "2", "Agua Mineral 600ml", "15.00", 1),
	)
	store := NewPgStore(mock)

	// when
	orders, err := store.FindByUserID(context.Background(), "u1", 0, 10)

	// then
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "P2", orders[0].ID)
	assert.Equal(t, "2", orders[0].Items[0].ProductID)
	assert.Equal(t, "1", orders[1].Items[0].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PgStore_FindByUserID_Empty(t *testing.T) {
	// given
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectQuery("FROM orders WHERE user_id").WillReturnRows(pgxmock.NewRows(orderColumns))
	store := NewPgStore(mock)

	// when
	orders, err := store.FindByUserID(context.Background(), "u1", 0, 10)

	// then
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}
