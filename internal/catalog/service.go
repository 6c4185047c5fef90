// Package catalog manages categories and products, including product images.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/store"
	"github.com/joao-fontenele/storefront-api/internal/uploads"
)

const maxCountInStock = 255

// Resolver turns a stored image location into the URL clients fetch.
type Resolver func(location string) string

type CategoryInput struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (in CategoryInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("category name is required: %w", domain.ErrValidation)
	}
	return nil
}

type ProductInput struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	RichDescription string  `json:"richDescription"`
	Image           string  `json:"image"`
	Brand           string  `json:"brand"`
	Price           float64 `json:"price"`
	CategoryID      string  `json:"category"`
	CountInStock    int     `json:"countInStock"`
	Rating          float64 `json:"rating"`
	NumReviews      int     `json:"numReviews"`
	IsFeatured      bool    `json:"isFeatured"`
}

func (in ProductInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("product name is required: %w", domain.ErrValidation)
	case !finite(in.Price) || in.Price < 0:
		return fmt.Errorf("price must be a finite number not below 0: %w", domain.ErrValidation)
	case !finite(in.Rating):
		return fmt.Errorf("rating must be a finite number: %w", domain.ErrValidation)
	case in.CountInStock < 0 || in.CountInStock > maxCountInStock:
		return fmt.Errorf("countInStock must be between 0 and %d: %w", maxCountInStock, domain.ErrValidation)
	case in.CategoryID == "":
		return fmt.Errorf("category is required: %w", domain.ErrValidation)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (in ProductInput) apply(p *domain.Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.RichDescription = in.RichDescription
	p.Image = in.Image
	p.Brand = in.Brand
	p.Price = in.Price
	p.CategoryID = in.CategoryID
	p.CountInStock = in.CountInStock
	p.Rating = in.Rating
	p.NumReviews = in.NumReviews
	p.IsFeatured = in.IsFeatured
}

type Service struct {
	store  *store.Store
	images uploads.ImageStore
	logger *slog.Logger
	now    func() time.Time
}

func NewService(st *store.Store, images uploads.ImageStore, logger *slog.Logger) *Service {
	return &Service{store: st, images: images, logger: logger, now: time.Now}
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.Categories.List(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return s.store.Categories.GetByID(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &domain.Category{Name: in.Name, Icon: in.Icon, Color: in.Color}
	if err := s.store.Categories.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("category created", "category_id", c.ID)
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*domain.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &domain.Category{ID: id, Name: in.Name, Icon: in.Icon, Color: in.Color}
	if err := s.store.Categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.store.Categories.Delete(ctx, id)
}

// requireCategory reports a missing or malformed category as a validation
// failure of the product being written.
func (s *Service) requireCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.store.Categories.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
		return nil, fmt.Errorf("invalid category %q: %w", id, domain.ErrValidation)
	}
	return c, err
}

func (s *Service) ListProducts(ctx context.Context, categoryIDs []string) ([]domain.ProductDetail, error) {
	products, err := s.store.Products.List(ctx, store.ProductFilter{CategoryIDs: categoryIDs})
	if err != nil {
		return nil, err
	}
	return s.details(ctx, products), nil
}

func (s *Service) FeaturedProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit < 0 {
		return nil, fmt.Errorf("count must not be negative: %w", domain.ErrValidation)
	}
	return s.store.Products.List(ctx, store.ProductFilter{FeaturedOnly: true, Limit: limit})
}

func (s *Service) CountProducts(ctx context.Context) (int64, error) {
	return s.store.Products.Count(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.ProductDetail, error) {
	p, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := s.details(ctx, []domain.Product{*p})
	return &d[0], nil
}

func (s *Service) details(ctx context.Context, products []domain.Product) []domain.ProductDetail {
	categories := make(map[string]*domain.Category)
	out := make([]domain.ProductDetail, 0, len(products))
	for _, p := range products {
		c, ok := categories[p.CategoryID]
		if !ok {
			c, _ = s.store.Categories.GetByID(ctx, p.CategoryID)
			categories[p.CategoryID] = c
		}
		out = append(out, domain.ProductDetail{Product: p, Category: c})
	}
	return out
}

// CreateProduct checks the category, stores the main image and then the
// product. image must already be validated by uploads.FromFileHeader.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput, image *uploads.Upload, resolve Resolver) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	if image == nil {
		return nil, fmt.Errorf("no image in the request: %w", domain.ErrValidation)
	}

	location, err := s.images.Save(ctx, *image)
	if err != nil {
		return nil, fmt.Errorf("save image: %w: %w", domain.ErrUpstream, err)
	}

	p := &domain.Product{DateCreated: s.now().UTC()}
	in.apply(p)
	p.Image = resolve(location)
	p.Images = []string{}
	if err := s.store.Products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("product created", "product_id", p.ID, "category_id", p.CategoryID)
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	p := &domain.Product{ID: id}
	in.apply(p)
	if err := s.store.Products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.store.Products.Delete(ctx, id)
}

// SetGallery stores up to MaxGalleryImages images and replaces the product's
// gallery with them. The product must exist before anything is stored.
func (s *Service) SetGallery(ctx context.Context, id string, images []uploads.Upload, resolve Resolver) (*domain.Product, error) {
	if len(images) > uploads.MaxGalleryImages {
		return nil, fmt.Errorf("at most %d gallery images are allowed: %w", uploads.MaxGalleryImages, domain.ErrValidation)
	}
	if _, err := s.store.Products.GetByID(ctx, id); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(images))
	for _, img := range images {
		location, err := s.images.Save(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("save gallery image: %w: %w", domain.ErrUpstream, err)
		}
		urls = append(urls, resolve(location))
	}
	return s.store.Products.SetImages(ctx, id, urls)
}
