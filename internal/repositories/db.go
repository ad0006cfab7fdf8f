package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup by id matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientStock is returned when a conditional stock decrement matches no row.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// DBTX is what every repository runs its queries against. *pgxpool.Pool,
// pgx.Tx and pgxmock pools all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a DBTX that can open transactions.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repositories over one connection scope. Inside WithTx the
// repositories handed to fn share a single transaction.
type Store interface {
	Users() UserRepository
	Products() ProductRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	db   DBTX
	pool Pool // nil once inside a transaction
}

func NewStore(pool Pool) Store {
	return &pgStore{db: pool, pool: pool}
}

func (s *pgStore) Users() UserRepository           { return NewUserRepo(s.db) }
func (s *pgStore) Products() ProductRepository     { return NewProductRepo(s.db) }
func (s *pgStore) Orders() OrderRepository         { return NewOrderRepo(s.db) }
func (s *pgStore) OrderItems() OrderItemRepository { return NewOrderItemRepo(s.db) }

// WithTx runs fn in a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, including when fn panics. Nested
// calls join the outer transaction.
func (s *pgStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&pgStore{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
