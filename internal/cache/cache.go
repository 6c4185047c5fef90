// Package cache puts Redis in front of the catalog repositories. Cache
// failures are logged and the call falls through to the wrapped repository.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/store"
)

const (
	productTTL    = 5 * time.Minute
	notFoundTTL   = 1 * time.Minute
	categoriesTTL = 10 * time.Minute

	notFoundMarker = "notfound"
	categoriesKey  = "categories:all"
)

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Wrap returns s with its product and category repositories cached.
func Wrap(s *store.Store, client *redis.Client, logger *slog.Logger) *store.Store {
	wrapped := *s
	wrapped.Products = NewProductRepository(s.Products, client, logger)
	wrapped.Categories = NewCategoryRepository(s.Categories, client, logger)
	return &wrapped
}

func productKey(id string) string {
	return "product:" + id
}

type ProductRepository struct {
	store.ProductRepository
	redis  *redis.Client
	logger *slog.Logger
}

func NewProductRepository(repo store.ProductRepository, client *redis.Client, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{ProductRepository: repo, redis: client, logger: logger}
}

// GetByID serves from cache and remembers misses for a short while.
func (c *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, store.NotFound("product", id)
		}
		var product domain.Product
		if err := json.Unmarshal(data, &product); err == nil {
			return &product, nil
		}
		c.logger.Warn("failed to decode cached product", "error", err, "product_id", id)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("redis get failed", "error", err, "key", key)
	}

	product, err := c.ProductRepository.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		if setErr := c.redis.Set(ctx, key, notFoundMarker, notFoundTTL).Err(); setErr != nil {
			c.logger.Warn("failed to cache product miss", "error", setErr, "key", key)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := c.redis.Set(ctx, key, data, productTTL).Err(); err != nil {
			c.logger.Warn("failed to cache product", "error", err, "key", key)
		}
	}
	return product, nil
}

func (c *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := c.ProductRepository.Create(ctx, product); err != nil {
		return err
	}
	// A lookup before creation may have cached a miss under a guessed id.
	c.invalidate(ctx, product.ID)
	return nil
}

func (c *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	defer c.invalidate(ctx, product.ID)
	return c.ProductRepository.Update(ctx, product)
}

func (c *ProductRepository) SetImages(ctx context.Context, id string, images []string) (*domain.Product, error) {
	defer c.invalidate(ctx, id)
	return c.ProductRepository.SetImages(ctx, id, images)
}

func (c *ProductRepository) Delete(ctx context.Context, id string) error {
	defer c.invalidate(ctx, id)
	return c.ProductRepository.Delete(ctx, id)
}

func (c *ProductRepository) invalidate(ctx context.Context, id string) {
	if err := c.redis.Del(ctx, productKey(id)).Err(); err != nil {
		c.logger.Warn("failed to invalidate product cache", "error", err, "product_id", id)
	}
}

type CategoryRepository struct {
	store.CategoryRepository
	redis  *redis.Client
	logger *slog.Logger
}

func NewCategoryRepository(repo store.CategoryRepository, client *redis.Client, logger *slog.Logger) *CategoryRepository {
	return &CategoryRepository{CategoryRepository: repo, redis: client, logger: logger}
}

func (c *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	data, err := c.redis.Get(ctx, categoriesKey).Bytes()
	switch {
	case err == nil:
		var categories []domain.Category
		if err := json.Unmarshal(data, &categories); err == nil {
			return categories, nil
		}
		c.logger.Warn("failed to decode cached categories", "error", err)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("redis get failed", "error", err, "key", categoriesKey)
	}

	categories, err := c.CategoryRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(categories); err == nil {
		if err := c.redis.Set(ctx, categoriesKey, data, categoriesTTL).Err(); err != nil {
			c.logger.Warn("failed to cache categories", "error", err)
		}
	}
	return categories, nil
}

func (c *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	defer c.invalidate(ctx)
	return c.CategoryRepository.Create(ctx, category)
}

func (c *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	defer c.invalidate(ctx)
	return c.CategoryRepository.Update(ctx, category)
}

func (c *CategoryRepository) Delete(ctx context.Context, id string) error {
	defer c.invalidate(ctx)
	return c.CategoryRepository.Delete(ctx, id)
}

func (c *CategoryRepository) invalidate(ctx context.Context) {
	if err := c.redis.Del(ctx, categoriesKey).Err(); err != nil {
		c.logger.Warn("failed to invalidate categories cache", "error", err)
	}
}
