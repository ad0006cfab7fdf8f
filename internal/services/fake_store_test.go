package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

// fakeDB is an in-memory stand-in for PostgreSQL. WithTx snapshots the
// tables and restores them when the callback fails.
type fakeDB struct {
	users       map[int64]*models.User
	products    map[int64]*models.Product
	orders      map[int64]*models.Order
	items       []*models.OrderItem
	nextOrderID int64
	nextItemID  int64
	failures    map[string]error
	txCount     int
	rollbacks   int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:       map[int64]*models.User{},
		products:    map[int64]*models.Product{},
		orders:      map[int64]*models.Order{},
		nextOrderID: 1,
		nextItemID:  1,
		failures:    map[string]error{},
	}
}

func (db *fakeDB) addUser(id int64, name, email string) {
	db.users[id] = &models.User{ID: id, Name: name, Email: email}
}

func (db *fakeDB) addProduct(id int64, name, price string, stock int) {
	db.products[id] = &models.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock}
}

func (db *fakeDB) stock(id int64) int {
	return db.products[id].Stock
}

func (db *fakeDB) fail(op string) error {
	return db.failures[op]
}

type fakeSnapshot struct {
	products    map[int64]models.Product
	orders      map[int64]models.Order
	items       []models.OrderItem
	nextOrderID int64
	nextItemID  int64
}

func (db *fakeDB) snapshot() fakeSnapshot {
	s := fakeSnapshot{
		products:    map[int64]models.Product{},
		orders:      map[int64]models.Order{},
		nextOrderID: db.nextOrderID,
		nextItemID:  db.nextItemID,
	}
	for id, p := range db.products {
		s.products[id] = *p
	}
	for id, o := range db.orders {
		s.orders[id] = *o
	}
	for _, item := range db.items {
		s.items = append(s.items, *item)
	}
	return s
}

func (db *fakeDB) restore(s fakeSnapshot) {
	db.products = map[int64]*models.Product{}
	for id, p := range s.products {
		p := p
		db.products[id] = &p
	}
	db.orders = map[int64]*models.Order{}
	for id, o := range s.orders {
		o := o
		db.orders[id] = &o
	}
	db.items = nil
	for _, item := range s.items {
		item := item
		db.items = append(db.items, &item)
	}
	db.nextOrderID = s.nextOrderID
	db.nextItemID = s.nextItemID
}

type fakeStore struct {
	db *fakeDB
}

func newFakeStore(db *fakeDB) repositories.Store {
	return &fakeStore{db: db}
}

func (s *fakeStore) Users() repositories.UserRepository           { return fakeUsers{s.db} }
func (s *fakeStore) Products() repositories.ProductRepository     { return fakeProducts{s.db} }
func (s *fakeStore) Orders() repositories.OrderRepository         { return fakeOrders{s.db} }
func (s *fakeStore) OrderItems() repositories.OrderItemRepository { return fakeOrderItems{s.db} }

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	s.db.txCount++
	snap := s.db.snapshot()
	if err := fn(s); err != nil {
		s.db.rollbacks++
		s.db.restore(snap)
		return err
	}
	if err := s.db.fail("commit"); err != nil {
		s.db.rollbacks++
		s.db.restore(snap)
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type fakeUsers struct{ db *fakeDB }

func (r fakeUsers) Create(_ context.Context, user *models.User) error {
	user.ID = int64(len(r.db.users) + 1)
	r.db.users[user.ID] = user
	return nil
}

func (r fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	if err := r.db.fail("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.db.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeProducts struct{ db *fakeDB }

func (r fakeProducts) Create(_ context.Context, product *models.Product) error {
	product.ID = int64(len(r.db.products) + 1)
	r.db.products[product.ID] = product
	return nil
}

func (r fakeProducts) GetByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := r.db.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r fakeProducts) LockByIDs(_ context.Context, ids []int64) (map[int64]*models.Product, error) {
	if err := r.db.fail("products.LockByIDs"); err != nil {
		return nil, err
	}
	locked := map[int64]*models.Product{}
	for _, id := range ids {
		if p, ok := r.db.products[id]; ok {
			cp := *p
			locked[id] = &cp
		}
	}
	return locked, nil
}

func (r fakeProducts) ListByIDs(_ context.Context, ids []int64) (map[int64]*models.Product, error) {
	if err := r.db.fail("products.ListByIDs"); err != nil {
		return nil, err
	}
	found := map[int64]*models.Product{}
	for _, id := range ids {
		if p, ok := r.db.products[id]; ok {
			cp := *p
			found[id] = &cp
		}
	}
	return found, nil
}

func (r fakeProducts) DecrementStock(_ context.Context, id int64, quantity int) error {
	if err := r.db.fail("products.DecrementStock"); err != nil {
		return err
	}
	p, ok := r.db.products[id]
	if !ok || p.Stock < quantity {
		return repositories.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

type fakeOrders struct{ db *fakeDB }

func (r fakeOrders) Create(_ context.Context, order *models.Order) error {
	if err := r.db.fail("orders.Create"); err != nil {
		return err
	}
	order.ID = r.db.nextOrderID
	r.db.nextOrderID++
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	cp := *order
	cp.Items = nil
	r.db.orders[order.ID] = &cp
	return nil
}

func (r fakeOrders) GetByID(_ context.Context, id int64) (*models.Order, error) {
	o, ok := r.db.orders[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r fakeOrders) GetWithUser(ctx context.Context, id int64) (*models.Order, error) {
	if err := r.db.fail("orders.GetWithUser"); err != nil {
		return nil, err
	}
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u := r.db.users[o.UserID]
	o.User = &models.UserSummary{Name: u.Name, Email: u.Email}
	return o, nil
}

func (r fakeOrders) ListWithUsers(ctx context.Context) ([]*models.Order, error) {
	if err := r.db.fail("orders.ListWithUsers"); err != nil {
		return nil, err
	}
	orders := []*models.Order{}
	for id := range r.db.orders {
		o, _ := r.GetWithUser(ctx, id)
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (r fakeOrders) UpdateStatus(_ context.Context, id int64, status string) (*models.Order, error) {
	o, ok := r.db.orders[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, nil
}

func (r fakeOrders) Delete(_ context.Context, id int64) error {
	if err := r.db.fail("orders.Delete"); err != nil {
		return err
	}
	if _, ok := r.db.orders[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.db.orders, id)
	kept := r.db.items[:0]
	for _, item := range r.db.items {
		if item.OrderID != id {
			kept = append(kept, item)
		}
	}
	r.db.items = kept
	return nil
}

type fakeOrderItems struct{ db *fakeDB }

func (r fakeOrderItems) Create(_ context.Context, item *models.OrderItem) error {
	if err := r.db.fail("order_items.Create"); err != nil {
		return err
	}
	item.ID = r.db.nextItemID
	r.db.nextItemID++
	item.CreatedAt = time.Now().UTC()
	cp := *item
	r.db.items = append(r.db.items, &cp)
	return nil
}

func (r fakeOrderItems) ListByOrderID(_ context.Context, orderID int64) ([]*models.OrderItem, error) {
	items := []*models.OrderItem{}
	for _, item := range r.db.items {
		if item.OrderID == orderID {
			cp := *item
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (r fakeOrderItems) ListWithProducts(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	items, _ := r.ListByOrderID(ctx, orderID)
	for _, item := range items {
		p := *r.db.products[item.ProductID]
		item.Product = &p
	}
	return items, nil
}
