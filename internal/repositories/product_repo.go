package repositories

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	// LockByIDs selects the given products FOR UPDATE in ascending id order.
	// Ids without a row are absent from the result.
	LockByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	// ListByIDs is LockByIDs without the row locks.
	ListByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	// DecrementStock subtracts quantity from the product's stock, or returns
	// ErrInsufficientStock if less than quantity is left.
	DecrementStock(ctx context.Context, id int64, quantity int) error
}

type productRepo struct {
	db DBTX
}

func NewProductRepo(db DBTX) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `id, category_id, name, description, price, stock, created_at, updated_at`

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (category_id, name, description, price, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, product.CategoryID, product.Name, product.Description, product.Price, product.Stock).
		Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	product := &models.Product{}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&product.ID, &product.CategoryID, &product.Name, &product.Description,
		&product.Price, &product.Stock, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return product, nil
}

func (r *productRepo) LockByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	products, err := r.queryByIDs(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	return products, nil
}

func (r *productRepo) ListByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`
	products, err := r.queryByIDs(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *productRepo) queryByIDs(ctx context.Context, query string, ids []int64) (map[int64]*models.Product, error) {
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[int64]*models.Product, len(ids))
	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(&product.ID, &product.CategoryID, &product.Name, &product.Description,
			&product.Price, &product.Stock, &product.CreatedAt, &product.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[product.ID] = product
	}
	return products, rows.Err()
}

func (r *productRepo) DecrementStock(ctx context.Context, id int64, quantity int) error {
	query := `UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`
	tag, err := r.db.Exec(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}
