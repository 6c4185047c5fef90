// Package store defines the persistence contract for catalog, user and order
// records. Backends live in sub-packages; all of them return errors wrapping
// domain.ErrNotFound for missing records, domain.ErrValidation for malformed
// ids and domain.ErrUpstream for driver failures.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
}

type ProductFilter struct {
	CategoryIDs  []string
	FeaturedOnly bool
	Limit        int
}

type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	SetImages(ctx context.Context, id string, images []string) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type OrderItemRepository interface {
	Create(ctx context.Context, item *domain.OrderItem) error
	GetByID(ctx context.Context, id string) (*domain.OrderItem, error)
	Delete(ctx context.Context, id string) error
}

type OrderFilter struct {
	UserID string
}

// OrderRepository lists orders newest first.
type OrderRepository interface {
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Create(ctx context.Context, order *domain.Order) error
	UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error)
	Delete(ctx context.Context, id string) error
	TotalSales(ctx context.Context) (float64, error)
	Count(ctx context.Context) (int64, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Categories CategoryRepository
	Products   ProductRepository
	Users      UserRepository
	OrderItems OrderItemRepository
	Orders     OrderRepository

	closer func(ctx context.Context) error
}

func New(categories CategoryRepository, products ProductRepository, users UserRepository,
	items OrderItemRepository, orders OrderRepository, closer func(ctx context.Context) error) *Store {
	return &Store{
		Categories: categories,
		Products:   products,
		Users:      users,
		OrderItems: items,
		Orders:     orders,
		closer:     closer,
	}
}

func (s *Store) Close(ctx context.Context) error {
	if s.closer == nil {
		return nil
	}
	return s.closer(ctx)
}

func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, domain.ErrNotFound)
}

func InvalidID(kind, id string) error {
	return fmt.Errorf("invalid %s id %q: %w", kind, id, domain.ErrValidation)
}

// Upstream marks a driver error as a store availability failure. Errors that
// are already classified pass through unchanged.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstream, err)
}
