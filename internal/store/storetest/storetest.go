// Package storetest holds the behavior every store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/store"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) *store.Store) {
	t.Run("categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("orders", func(t *testing.T) { testOrders(t, newStore(t)) })
}

func testCategories(t *testing.T, s *store.Store) {
	ctx := context.Background()

	cat := &domain.Category{Name: "Phones", Icon: "phone", Color: "#fff"}
	require.NoError(t, s.Categories.Create(ctx, cat))
	require.NotEmpty(t, cat.ID)

	got, err := s.Categories.GetByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, *cat, *got)

	cat.Name = "Mobiles"
	require.NoError(t, s.Categories.Update(ctx, cat))

	list, err := s.Categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Mobiles", list[0].Name)

	require.NoError(t, s.Categories.Delete(ctx, cat.ID))
	_, err = s.Categories.GetByID(ctx, cat.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Categories.Delete(ctx, cat.ID), domain.ErrNotFound)
}

func testProducts(t *testing.T, s *store.Store) {
	ctx := context.Background()

	phones := &domain.Category{Name: "Phones"}
	books := &domain.Category{Name: "Books"}
	require.NoError(t, s.Categories.Create(ctx, phones))
	require.NoError(t, s.Categories.Create(ctx, books))

	count, err := s.Products.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	phone := &domain.Product{
		Name:        "Phone",
		Price:       199.99,
		CategoryID:  phones.ID,
		IsFeatured:  true,
		Image:       "http://localhost/public/uploads/phone.png",
		DateCreated: time.Now().UTC().Truncate(time.Millisecond),
	}
	book := &domain.Product{
		Name:        "Book",
		Price:       12.5,
		CategoryID:  books.ID,
		DateCreated: time.Now().UTC().Truncate(time.Millisecond).Add(time.Second),
	}
	require.NoError(t, s.Products.Create(ctx, phone))
	require.NoError(t, s.Products.Create(ctx, book))

	got, err := s.Products.GetByID(ctx, phone.ID)
	require.NoError(t, err)
	assert.Equal(t, phone.Name, got.Name)
	assert.InDelta(t, 199.99, got.Price, 1e-9)
	assert.Equal(t, phones.ID, got.CategoryID)

	filtered, err := s.Products.List(ctx, store.ProductFilter{CategoryIDs: []string{books.ID}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, book.ID, filtered[0].ID)

	featured, err := s.Products.List(ctx, store.ProductFilter{FeaturedOnly: true, Limit: 5})
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, phone.ID, featured[0].ID)

	updated, err := s.Products.SetImages(ctx, book.ID, []string{"a.png", "b.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png"}, updated.Images)

	book.Price = 15.123456789
	require.NoError(t, s.Products.Update(ctx, book))
	got, err = s.Products.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 15.123456789, got.Price, "price must not be rounded")
	assert.Equal(t, []string{"a.png", "b.png"}, got.Images)

	count, err = s.Products.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, s.Products.Delete(ctx, phone.ID))
	_, err = s.Products.GetByID(ctx, phone.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testUsers(t *testing.T, s *store.Store) {
	ctx := context.Background()

	user := &domain.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash", IsAdmin: true, City: "London"}
	require.NoError(t, s.Users.Create(ctx, user))
	require.NotEmpty(t, user.ID)

	got, err := s.Users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.True(t, got.IsAdmin)

	dup := &domain.User{Name: "Other", Email: "ada@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, s.Users.Create(ctx, dup), domain.ErrValidation)

	_, err = s.Users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := s.Users.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, s.Users.Delete(ctx, user.ID))
	list, err := s.Users.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testOrders(t *testing.T, s *store.Store) {
	ctx := context.Background()

	total, err := s.Orders.TotalSales(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	cat := &domain.Category{Name: "Phones"}
	require.NoError(t, s.Categories.Create(ctx, cat))
	product := &domain.Product{Name: "Phone", Price: 10, CategoryID: cat.ID, DateCreated: time.Now().UTC()}
	require.NoError(t, s.Products.Create(ctx, product))
	user := &domain.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"}
	require.NoError(t, s.Users.Create(ctx, user))

	item := &domain.OrderItem{Quantity: 2, ProductID: product.ID}
	require.NoError(t, s.OrderItems.Create(ctx, item))
	gotItem, err := s.OrderItems.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, *item, *gotItem)

	older := &domain.Order{
		OrderItems:  []string{item.ID},
		City:        "Lisbon",
		Status:      domain.OrderStatusPending,
		TotalPrice:  25.5,
		UserID:      user.ID,
		DateOrdered: time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond),
	}
	newer := &domain.Order{
		Status:      domain.OrderStatusPending,
		TotalPrice:  74.5,
		UserID:      "",
		DateOrdered: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, s.Orders.Create(ctx, older))
	require.NoError(t, s.Orders.Create(ctx, newer))

	got, err := s.Orders.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{item.ID}, got.OrderItems)
	assert.InDelta(t, 25.5, got.TotalPrice, 1e-9)
	assert.Equal(t, user.ID, got.UserID)

	all, err := s.Orders.List(ctx, store.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)

	mine, err := s.Orders.List(ctx, store.OrderFilter{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, older.ID, mine[0].ID)

	total, err = s.Orders.TotalSales(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, total, 1e-9)

	shipped, err := s.Orders.UpdateStatus(ctx, older.ID, "Shipped")
	require.NoError(t, err)
	assert.Equal(t, "Shipped", shipped.Status)

	_, err = s.Orders.UpdateStatus(ctx, "ffffffffffffffffffffffff", "Shipped")
	assert.Error(t, err)

	require.NoError(t, s.OrderItems.Delete(ctx, item.ID))
	require.NoError(t, s.Orders.Delete(ctx, older.ID))
	assert.ErrorIs(t, s.Orders.Delete(ctx, older.ID), domain.ErrNotFound)

	count, err := s.Orders.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
