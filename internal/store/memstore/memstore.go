// Package memstore is an in-process store.Store used by tests and by
// DATABASE_URL=memory:// for local runs. Records are copied on the way in and
// out so callers never share memory with the store.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/store"
)

type DB struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
	products   map[string]domain.Product
	users      map[string]domain.User
	items      map[string]domain.OrderItem
	orders     map[string]domain.Order
}

func NewDB() *DB {
	return &DB{
		categories: make(map[string]domain.Category),
		products:   make(map[string]domain.Product),
		users:      make(map[string]domain.User),
		items:      make(map[string]domain.OrderItem),
		orders:     make(map[string]domain.Order),
	}
}

// New returns a store backed by a fresh DB.
func New() *store.Store {
	return NewDB().Store()
}

func (db *DB) Store() *store.Store {
	return store.New(
		&categoryRepo{db: db},
		&productRepo{db: db},
		&userRepo{db: db},
		&orderItemRepo{db: db},
		&orderRepo{db: db},
		nil,
	)
}

type categoryRepo struct{ db *DB }

func (r *categoryRepo) List(_ context.Context) ([]domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]domain.Category, 0, len(r.db.categories))
	for _, c := range r.db.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *categoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.categories[id]
	if !ok {
		return nil, store.NotFound("category", id)
	}
	return &c, nil
}

func (r *categoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	category.ID = uuid.NewString()
	r.db.categories[category.ID] = *category
	return nil
}

func (r *categoryRepo) Update(_ context.Context, category *domain.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.categories[category.ID]; !ok {
		return store.NotFound("category", category.ID)
	}
	r.db.categories[category.ID] = *category
	return nil
}

func (r *categoryRepo) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.categories[id]; !ok {
		return store.NotFound("category", id)
	}
	delete(r.db.categories, id)
	return nil
}

type productRepo struct{ db *DB }

func (r *productRepo) List(_ context.Context, filter store.ProductFilter) ([]domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]domain.Product, 0, len(r.db.products))
	for _, p := range r.db.products {
		if len(filter.CategoryIDs) > 0 && !slices.Contains(filter.CategoryIDs, p.CategoryID) {
			continue
		}
		if filter.FeaturedOnly && !p.IsFeatured {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateCreated.Before(out[j].DateCreated) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.products[id]
	if !ok {
		return nil, store.NotFound("product", id)
	}
	p = cloneProduct(p)
	return &p, nil
}

func (r *productRepo) Create(_ context.Context, product *domain.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	product.ID = uuid.NewString()
	r.db.products[product.ID] = cloneProduct(*product)
	return nil
}

func (r *productRepo) Update(_ context.Context, product *domain.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.products[product.ID]
	if !ok {
		return store.NotFound("product", product.ID)
	}
	product.Images = existing.Images
	product.DateCreated = existing.DateCreated
	r.db.products[product.ID] = cloneProduct(*product)
	return nil
}

func (r *productRepo) SetImages(_ context.Context, id string, images []string) (*domain.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.products[id]
	if !ok {
		return nil, store.NotFound("product", id)
	}
	p.Images = append([]string{}, images...)
	r.db.products[id] = p
	p = cloneProduct(p)
	return &p, nil
}

func (r *productRepo) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[id]; !ok {
		return store.NotFound("product", id)
	}
	delete(r.db.products, id)
	return nil
}

func (r *productRepo) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return int64(len(r.db.products)), nil
}

type userRepo struct{ db *DB }

func (r *userRepo) List(_ context.Context) ([]domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]domain.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, store.NotFound("user", id)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.NotFound("user", email)
}

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email %q already registered: %w", user.Email, domain.ErrValidation)
		}
	}
	user.ID = uuid.NewString()
	r.db.users[user.ID] = *user
	return nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[id]; !ok {
		return store.NotFound("user", id)
	}
	delete(r.db.users, id)
	return nil
}

func (r *userRepo) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return int64(len(r.db.users)), nil
}

type orderItemRepo struct{ db *DB }

func (r *orderItemRepo) Create(_ context.Context, item *domain.OrderItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	item.ID = uuid.NewString()
	r.db.items[item.ID] = *item
	return nil
}

func (r *orderItemRepo) GetByID(_ context.Context, id string) (*domain.OrderItem, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	item, ok := r.db.items[id]
	if !ok {
		return nil, store.NotFound("order item", id)
	}
	return &item, nil
}

func (r *orderItemRepo) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.items[id]; !ok {
		return store.NotFound("order item", id)
	}
	delete(r.db.items, id)
	return nil
}

// OrderItemCount reports how many order items are stored, including items
// no order references.
func (db *DB) OrderItemCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.items)
}

type orderRepo struct{ db *DB }

func (r *orderRepo) List(_ context.Context, filter store.OrderFilter) ([]domain.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]domain.Order, 0, len(r.db.orders))
	for _, o := range r.db.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateOrdered.After(out[j].DateOrdered) })
	return out, nil
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	o, ok := r.db.orders[id]
	if !ok {
		return nil, store.NotFound("order", id)
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *orderRepo) Create(_ context.Context, order *domain.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	order.ID = uuid.NewString()
	r.db.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *orderRepo) UpdateStatus(_ context.Context, id, status string) (*domain.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	o, ok := r.db.orders[id]
	if !ok {
		return nil, store.NotFound("order", id)
	}
	o.Status = status
	r.db.orders[id] = o
	o = cloneOrder(o)
	return &o, nil
}

func (r *orderRepo) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.orders[id]; !ok {
		return store.NotFound("order", id)
	}
	delete(r.db.orders, id)
	return nil
}

func (r *orderRepo) TotalSales(_ context.Context) (float64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	total := decimal.Zero
	for _, o := range r.db.orders {
		total = total.Add(decimal.NewFromFloat(o.TotalPrice))
	}
	return total.InexactFloat64(), nil
}

func (r *orderRepo) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return int64(len(r.db.orders)), nil
}

func cloneProduct(p domain.Product) domain.Product {
	p.Images = append([]string{}, p.Images...)
	return p
}

func cloneOrder(o domain.Order) domain.Order {
	o.OrderItems = append([]string{}, o.OrderItems...)
	return o
}
