// Package orders places, prices, reads and deletes orders. An order owns the
// order items created for it; products are only referenced.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/store"
)

// Publisher announces persisted orders. Publishing is best-effort.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error
}

// Recorder observes persisted orders for metrics.
type Recorder interface {
	RecordPlaced(ctx context.Context, lines int, total float64)
}

type Line struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

// PlaceInput is everything the caller controls about a new order. The total
// is always computed.
type PlaceInput struct {
	Lines            []Line
	ShippingAddress1 string
	ShippingAddress2 string
	City             string
	Zip              string
	Country          string
	Phone            string
	Status           string
	UserID           string
}

type Service struct {
	store     *store.Store
	publisher Publisher
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func NewService(st *store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: st, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExpandItems persists one order item per line, in input order, and returns
// their ids. Every line is checked before the first write. A write failure
// part way leaves the items already written without an owning order.
func (s *Service) ExpandItems(ctx context.Context, lines []Line) ([]string, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("order must contain at least one item: %w", domain.ErrValidation)
	}
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("item %d: quantity must be positive: %w", i, domain.ErrValidation)
		}
		product, err := s.store.Products.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("item %d: unknown product %q: %w", i, line.ProductID, domain.ErrValidation)
			}
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if !finitePrice(product.Price) {
			return nil, fmt.Errorf("item %d: product %q has a non-finite price: %w", i, product.ID, domain.ErrDataIntegrity)
		}
	}

	ids := make([]string, 0, len(lines))
	for i, line := range lines {
		item := &domain.OrderItem{Quantity: line.Quantity, ProductID: line.ProductID}
		if err := s.store.OrderItems.Create(ctx, item); err != nil {
			if len(ids) > 0 {
				s.logger.Error("order placement failed with orphaned order items",
					"error", err, "orphaned_item_ids", ids)
			}
			return nil, fmt.Errorf("create item %d: %w", i, err)
		}
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// Price sums price × quantity over the items using their products' current
// prices. A product that no longer exists, or whose stored price is not a
// finite number, is a data integrity error.
func (s *Service) Price(ctx context.Context, itemIDs []string) (float64, []domain.OrderLine, error) {
	total := decimal.Zero
	lines := make([]domain.OrderLine, 0, len(itemIDs))
	for _, id := range itemIDs {
		item, err := s.store.OrderItems.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil, fmt.Errorf("order item %q vanished before pricing: %w", id, domain.ErrDataIntegrity)
		}
		if err != nil {
			return 0, nil, err
		}
		product, err := s.store.Products.GetByID(ctx, item.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil, fmt.Errorf("product %q of order item %q vanished before pricing: %w",
				item.ProductID, id, domain.ErrDataIntegrity)
		}
		if err != nil {
			return 0, nil, err
		}

		if !finitePrice(product.Price) {
			return 0, nil, fmt.Errorf("product %q has a non-finite price: %w", product.ID, domain.ErrDataIntegrity)
		}

		total = total.Add(decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
		lines = append(lines, domain.OrderLine{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
	}
	return total.InexactFloat64(), lines, nil
}

func finitePrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0)
}

// Place expands the lines into order items, prices them and persists the
// order. The event and metrics are emitted only after the order is stored.
func (s *Service) Place(ctx context.Context, in PlaceInput) (*domain.Order, error) {
	itemIDs, err := s.ExpandItems(ctx, in.Lines)
	if err != nil {
		return nil, err
	}

	total, lines, err := s.Price(ctx, itemIDs)
	if err != nil {
		s.logger.Error("order pricing failed with orphaned order items",
			"error", err, "orphaned_item_ids", itemIDs)
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = domain.OrderStatusPending
	}
	order := &domain.Order{
		OrderItems:       itemIDs,
		ShippingAddress1: in.ShippingAddress1,
		ShippingAddress2: in.ShippingAddress2,
		City:             in.City,
		Zip:              in.Zip,
		Country:          in.Country,
		Phone:            in.Phone,
		Status:           status,
		TotalPrice:       total,
		UserID:           in.UserID,
		DateOrdered:      s.now().UTC(),
	}
	if err := s.store.Orders.Create(ctx, order); err != nil {
		s.logger.Error("order creation failed with orphaned order items",
			"error", err, "orphaned_item_ids", itemIDs)
		return nil, fmt.Errorf("create order: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordPlaced(ctx, len(itemIDs), total)
	}
	if s.publisher != nil {
		event := domain.OrderPlacedEvent{
			OrderID:    order.ID,
			UserID:     order.UserID,
			Lines:      lines,
			TotalPrice: order.TotalPrice,
			Timestamp:  order.DateOrdered,
		}
		if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
			s.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
		}
	}

	s.logger.Info("order placed", "order_id", order.ID, "user_id", order.UserID, "total_price", order.TotalPrice)
	return order, nil
}

// Get returns the order with items, their products and categories, and the
// user resolved. References that no longer resolve are left empty.
func (s *Service) Get(ctx context.Context, id string) (*domain.OrderDetail, error) {
	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &domain.OrderDetail{
		Order:      *order,
		OrderItems: make([]domain.OrderItemDetail, 0, len(order.OrderItems)),
		User:       s.userRef(ctx, order.UserID),
	}
	for _, itemID := range order.OrderItems {
		item, err := s.store.OrderItems.GetByID(ctx, itemID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		itemDetail := domain.OrderItemDetail{OrderItem: *item}
		product, err := s.store.Products.GetByID(ctx, item.ProductID)
		switch {
		case err == nil:
			itemDetail.Product = &domain.ProductDetail{Product: *product, Category: s.category(ctx, product.CategoryID)}
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		detail.OrderItems = append(detail.OrderItems, itemDetail)
	}
	return detail, nil
}

// List returns orders newest first with the ordering user's name.
func (s *Service) List(ctx context.Context) ([]domain.OrderSummary, error) {
	return s.summaries(ctx, store.OrderFilter{})
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.OrderSummary, error) {
	return s.summaries(ctx, store.OrderFilter{UserID: userID})
}

func (s *Service) summaries(ctx context.Context, filter store.OrderFilter) ([]domain.OrderSummary, error) {
	orders, err := s.store.Orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	users := make(map[string]*domain.UserRef)
	out := make([]domain.OrderSummary, 0, len(orders))
	for _, o := range orders {
		ref, ok := users[o.UserID]
		if !ok {
			ref = s.userRef(ctx, o.UserID)
			users[o.UserID] = ref
		}
		out = append(out, domain.OrderSummary{Order: o, User: ref})
	}
	return out, nil
}

func (s *Service) userRef(ctx context.Context, id string) *domain.UserRef {
	if id == "" {
		return nil
	}
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrValidation) {
			s.logger.Warn("failed to resolve order user", "error", err, "user_id", id)
		}
		return nil
	}
	return &domain.UserRef{ID: user.ID, Name: user.Name}
}

func (s *Service) category(ctx context.Context, id string) *domain.Category {
	c, err := s.store.Categories.GetByID(ctx, id)
	if err != nil {
		return nil
	}
	return c
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	if status == "" {
		return nil, fmt.Errorf("status is required: %w", domain.ErrValidation)
	}
	return s.store.Orders.UpdateStatus(ctx, id, status)
}

// DeleteReport lists the order items that could not be removed with their
// order.
type DeleteReport struct {
	FailedItems []string
}

// Delete removes the order's items and then the order. Item failures are
// logged and reported; they do not stop the order from being deleted.
func (s *Service) Delete(ctx context.Context, id string) (DeleteReport, error) {
	var report DeleteReport

	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		return report, err
	}

	for _, itemID := range order.OrderItems {
		if err := s.store.OrderItems.Delete(ctx, itemID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("failed to delete order item", "error", err, "order_id", id, "order_item_id", itemID)
			report.FailedItems = append(report.FailedItems, itemID)
		}
	}

	if err := s.store.Orders.Delete(ctx, id); err != nil {
		return report, err
	}
	s.logger.Info("order deleted", "order_id", id, "items", len(order.OrderItems))
	return report, nil
}

func (s *Service) TotalSales(ctx context.Context) (float64, error) {
	return s.store.Orders.TotalSales(ctx)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Orders.Count(ctx)
}
