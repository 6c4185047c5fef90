// Package notify sends order confirmation e-mails for order.placed events.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/store"
)

type Notifier struct {
	users  store.UserRepository
	mailer Mailer
	logger *slog.Logger
}

func NewNotifier(users store.UserRepository, mailer Mailer, logger *slog.Logger) *Notifier {
	return &Notifier{
		users:  users,
		mailer: mailer,
		logger: logger,
	}
}

// HandleOrderPlaced mails the order's user a confirmation. Orders without a
// known user are skipped.
func (n *Notifier) HandleOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error {
	n.logger.Info("processing order placed event", "order_id", event.OrderID, "user_id", event.UserID)

	if event.UserID == "" {
		n.logger.Info("order has no user, skipping confirmation", "order_id", event.OrderID)
		return nil
	}

	user, err := n.users.GetByID(ctx, event.UserID)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
		n.logger.Warn("order user not found, skipping confirmation", "order_id", event.OrderID, "user_id", event.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user %s: %w", event.UserID, err)
	}

	if err := n.mailer.Send(ctx, confirmation(user, event)); err != nil {
		n.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send confirmation email: %w", err)
	}

	n.logger.Info("order confirmation sent", "order_id", event.OrderID)
	return nil
}

func confirmation(user *domain.User, event domain.OrderPlacedEvent) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", user.Name)
	fmt.Fprintf(&b, "Your order %s has been placed with %d items.\n\n", event.OrderID, len(event.Lines))
	for _, line := range event.Lines {
		fmt.Fprintf(&b, "  %d x %s @ %.2f\n", line.Quantity, line.ProductID, line.Price)
	}
	fmt.Fprintf(&b, "\nTotal: %.2f\n", event.TotalPrice)

	return Message{
		To:      user.Email,
		Subject: "Order Confirmation: " + event.OrderID,
		Body:    b.String(),
	}
}
