package repositories

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	// GetWithUser returns the order with its owner's name and email.
	GetWithUser(ctx context.Context, id int64) (*models.Order, error)
	// ListWithUsers returns every order, oldest id first, each with its owner.
	ListWithUsers(ctx context.Context) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*models.Order, error)
	Delete(ctx context.Context, id int64) error
}

type orderRepo struct {
	db DBTX
}

func NewOrderRepo(db DBTX) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, order.UserID, order.Status, order.TotalAmount).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	order := &models.Order{}
	query := `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return order, nil
}

func (r *orderRepo) GetWithUser(ctx context.Context, id int64) (*models.Order, error) {
	order := &models.Order{User: &models.UserSummary{}}
	query := `
		SELECT o.id, o.user_id, o.status, o.total_amount, o.created_at, o.updated_at, u.name, u.email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount,
		&order.CreatedAt, &order.UpdatedAt, &order.User.Name, &order.User.Email)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return order, nil
}

func (r *orderRepo) ListWithUsers(ctx context.Context) ([]*models.Order, error) {
	query := `
		SELECT o.id, o.user_id, o.status, o.total_amount, o.created_at, o.updated_at, u.name, u.email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		order := &models.Order{User: &models.UserSummary{}}
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount,
			&order.CreatedAt, &order.UpdatedAt, &order.User.Name, &order.User.Email); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	order := &models.Order{}
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, status, total_amount, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, id, status).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return order, nil
}

// Delete removes the order; its items go with it through ON DELETE CASCADE.
func (r *orderRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
