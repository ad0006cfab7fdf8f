package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"storefront/internal/common"
	"storefront/internal/models"
	"storefront/internal/repositories"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// decimalArg matches a numeric argument by value rather than representation.
type decimalArg struct {
	want decimal.Decimal
}

func (a decimalArg) Match(v interface{}) bool {
	d, ok := v.(decimal.Decimal)
	return ok && d.Equal(a.want)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	userColumns    = []string{"id", "name", "email", "created_at", "updated_at"}
	productColumns = []string{"id", "category_id", "name", "description", "price", "stock", "created_at", "updated_at"}
	orderColumns   = []string{"id", "user_id", "status", "total_amount", "created_at", "updated_at"}
	itemColumns    = []string{"id", "order_id", "product_id", "quantity", "price", "created_at"}
)

func expectLocked(pool pgxmock.PgxPoolIface, now time.Time, ids ...int64) {
	pool.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(1), "Ada", "ada@example.com", now, now))

	rows := pgxmock.NewRows(productColumns)
	for _, id := range ids {
		switch id {
		case 1:
			rows.AddRow(int64(1), nil, "Pen", nil, dec("20.00"), 5, now, now)
		case 2:
			rows.AddRow(int64(2), nil, "Ink", nil, dec("50.00"), 1, now, now)
		}
	}
	pool.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1) ORDER BY id FOR UPDATE")).
		WithArgs(ids).
		WillReturnRows(rows)
}

func TestCreateOrder_PostgresTransaction(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	now := time.Now()
	pool.ExpectBegin()
	expectLocked(pool, now, 1, 2)
	pool.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).
		WithArgs(int64(2), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).
		WithArgs(int64(1), 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(int64(1), models.OrderStatusPending, decimalArg{dec("90")}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(10), now, now))
	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(10), int64(2), 1, decimalArg{dec("50")}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(100), now))
	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(10), int64(1), 2, decimalArg{dec("20")}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(101), now))
	pool.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(orderColumns).AddRow(int64(10), int64(1), "pending", dec("90.00"), now, now))
	pool.ExpectQuery(regexp.QuoteMeta("FROM order_items WHERE order_id = $1")).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(itemColumns).
			AddRow(int64(100), int64(10), int64(2), 1, dec("50.00"), now).
			AddRow(int64(101), int64(10), int64(1), 2, dec("20.00"), now))
	pool.ExpectCommit()

	publisher := &MockOrderEventPublisher{}
	publisher.On("PublishOrderCreated", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
		return o.ID == 10 && len(o.Items) == 2
	})).Return(nil).Once()

	svc := NewOrderService(repositories.NewStore(pool), nil, publisher, zerolog.Nop())
	created, err := svc.CreateOrder(context.Background(), &models.OrderCreate{
		UserID: 1,
		Items:  []models.OrderLine{{ProductID: 2, Quantity: 1}, {ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), created.ID)
	assert.True(t, dec("90").Equal(created.TotalAmount))
	assert.Len(t, created.Items, 2)

	assert.NoError(t, pool.ExpectationsWereMet())
	publisher.AssertExpectations(t)
}

func TestCreateOrder_PostgresRollbackOnInsufficientStock(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	now := time.Now()
	pool.ExpectBegin()
	expectLocked(pool, now, 1, 2)
	pool.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).
		WithArgs(int64(1), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectRollback()

	publisher := &MockOrderEventPublisher{}
	svc := NewOrderService(repositories.NewStore(pool), nil, publisher, zerolog.Nop())
	_, err = svc.CreateOrder(context.Background(), &models.OrderCreate{
		UserID: 1,
		Items:  []models.OrderLine{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 2}},
	})
	require.Error(t, err)
	assert.Equal(t, common.KindInsufficientStock, common.KindOf(err))
	assert.Equal(t, "Insufficient stock for product Ink", err.Error())

	assert.NoError(t, pool.ExpectationsWereMet())
	publisher.AssertNotCalled(t, "PublishOrderCreated", mock.Anything, mock.Anything)
}

func TestCreateOrder_PostgresConditionalDecrementMisses(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	now := time.Now()
	pool.ExpectBegin()
	expectLocked(pool, now, 1, 2)
	pool.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).
		WithArgs(int64(1), 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	pool.ExpectRollback()

	svc := NewOrderService(repositories.NewStore(pool), nil, nil, zerolog.Nop())
	_, err = svc.CreateOrder(context.Background(), &models.OrderCreate{
		UserID: 1,
		Items:  []models.OrderLine{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 1}},
	})
	assert.Equal(t, common.KindInsufficientStock, common.KindOf(err))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestCreateOrder_PostgresCommitFailure(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	now := time.Now()
	pool.ExpectBegin()
	expectLocked(pool, now, 2)
	pool.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).
		WithArgs(int64(2), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(int64(1), models.OrderStatusPending, decimalArg{dec("50")}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))
	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(11), int64(2), 1, decimalArg{dec("50")}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(102), now))
	pool.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows(orderColumns).AddRow(int64(11), int64(1), "pending", dec("50.00"), now, now))
	pool.ExpectQuery(regexp.QuoteMeta("FROM order_items WHERE order_id = $1")).
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows(itemColumns).AddRow(int64(102), int64(11), int64(2), 1, dec("50.00"), now))
	pool.ExpectCommit().WillReturnError(errors.New("could not serialize access"))

	publisher := &MockOrderEventPublisher{}
	svc := NewOrderService(repositories.NewStore(pool), nil, publisher, zerolog.Nop())
	_, err = svc.CreateOrder(context.Background(), &models.OrderCreate{
		UserID: 1,
		Items:  []models.OrderLine{{ProductID: 2, Quantity: 1}},
	})
	assert.Equal(t, common.KindStoreFailure, common.KindOf(err))
	assert.NoError(t, pool.ExpectationsWereMet())
	publisher.AssertNotCalled(t, "PublishOrderCreated", mock.Anything, mock.Anything)
}
