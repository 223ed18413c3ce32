// Package seed generates notifications on the development server: demo
// messages for every user and updates when laundry orders advance.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/nhle/laundry-notifications/internal/logging"
	"github.com/nhle/laundry-notifications/internal/model"
)

// DemoMessages are cycled through by the Seeder.
var DemoMessages = []string{
	"Your laundry order #1234 is ready for pickup!",
	"Reservation confirmed for tomorrow at 2:00 PM",
	"Special offer: 20% off premium care services",
	"Your order has been picked up and is being processed",
	"Reminder: Your scheduled pickup is in 1 hour",
}

// Store is the persistence the jobs need.
type Store interface {
	GetUsers(ctx context.Context) ([]model.User, error)
	CreateNotification(ctx context.Context, userID, message string) (*model.NotificationRecord, error)
	GetOrdersDue(ctx context.Context, status model.OrderStatus, before time.Time) ([]model.Order, error)
	AdvanceOrder(ctx context.Context, id int64, from, to model.OrderStatus) (bool, error)
}

// Seeder sends the next demo message to every user on each run.
type Seeder struct {
	store  Store
	logger *slog.Logger

	mu   gosync.Mutex
	next int
}

// NewSeeder creates a Seeder.
func NewSeeder(st Store, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Seeder{store: st, logger: logger}
}

// Run creates one notification per user and returns how many were created.
func (s *Seeder) Run(ctx context.Context) (int, error) {
	users, err := s.store.GetUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing users: %w", err)
	}

	s.mu.Lock()
	msg := DemoMessages[s.next%len(DemoMessages)]
	s.next++
	s.mu.Unlock()

	created := 0
	for _, u := range users {
		if _, err := s.store.CreateNotification(ctx, u.ID, msg); err != nil {
			return created, fmt.Errorf("notifying %s: %w", u.Username, err)
		}
		created++
	}
	s.logger.Debug("demo notifications created", "count", created, "message", msg)
	return created, nil
}

// Progressor advances orders through model.OrderProgressions once they have
// spent long enough in their current status, and notifies their owners.
type Progressor struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewProgressor creates a Progressor. now defaults to time.Now.
func NewProgressor(st Store, logger *slog.Logger, now func() time.Time) *Progressor {
	if logger == nil {
		logger = logging.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &Progressor{store: st, logger: logger, now: now}
}

// Run advances every due order by at most one step and returns how many
// orders moved.
func (p *Progressor) Run(ctx context.Context) (int, error) {
	now := p.now()

	type due struct {
		order model.Order
		step  model.Progression
	}
	var pending []due
	for _, step := range model.OrderProgressions {
		orders, err := p.store.GetOrdersDue(ctx, step.From, now.Add(-step.After))
		if err != nil {
			return 0, err
		}
		for _, o := range orders {
			pending = append(pending, due{order: o, step: step})
		}
	}

	moved := 0
	for _, d := range pending {
		ok, err := p.store.AdvanceOrder(ctx, d.order.ID, d.step.From, d.step.To)
		if err != nil {
			return moved, err
		}
		if !ok {
			continue
		}
		moved++
		p.logger.Info("order progressed",
			"order", d.order.OrderNumber,
			"from", d.step.From,
			"to", d.step.To,
		)

		if _, err := p.store.CreateNotification(ctx, d.order.UserID, OrderMessage(d.order, d.step.To)); err != nil {
			return moved, fmt.Errorf("notifying about order %s: %w", d.order.OrderNumber, err)
		}
	}

	if moved == 0 {
		p.logger.Debug("no orders to progress")
	}
	return moved, nil
}

// OrderMessage is the notification text for an order reaching status.
func OrderMessage(o model.Order, status model.OrderStatus) string {
	return fmt.Sprintf("Order #%s is now %s", o.OrderNumber, status.Label())
}
