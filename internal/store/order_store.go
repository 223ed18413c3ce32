package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/laundry-notifications/internal/model"
)

// CreateOrder inserts a pending order for userID and assigns its order
// number from the generated id.
func (s *SQLiteStore) CreateOrder(ctx context.Context, userID string) (*model.Order, error) {
	now := s.now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO orders (user_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		userID, model.OrderPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading order id: %w", err)
	}

	number := model.FormatOrderNumber(id, now)
	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET order_number = ? WHERE id = ?", number, id,
	); err != nil {
		return nil, fmt.Errorf("numbering order %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order: %w", err)
	}

	return &model.Order{
		ID:          id,
		OrderNumber: number,
		UserID:      userID,
		Status:      model.OrderPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetOrders retrieves the orders of userID, newest first.
func (s *SQLiteStore) GetOrders(ctx context.Context, userID string) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	return orders, nil
}

// GetOrdersDue retrieves orders in status that were last updated at or
// before the given time.
func (s *SQLiteStore) GetOrdersDue(
	ctx context.Context,
	status model.OrderStatus,
	before time.Time,
) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE status = ? AND updated_at <= ?
		ORDER BY updated_at, id`,
		status, before.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s orders: %w", status, err)
	}
	return orders, nil
}

// AdvanceOrder moves an order from one status to the next. It reports false
// when the order is no longer in from, so concurrent runs advance it once.
func (s *SQLiteStore) AdvanceOrder(ctx context.Context, id int64, from, to model.OrderStatus) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		to, s.now(), id, from,
	)
	if err != nil {
		return false, fmt.Errorf("advancing order %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
