package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nhle/laundry-notifications/internal/model"
)

// CreateNotification stores a new unread notification for userID. Messages
// longer than model.MaxMessageLength runes are truncated.
func (s *SQLiteStore) CreateNotification(
	ctx context.Context,
	userID, message string,
) (*model.NotificationRecord, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("notification message must not be empty")
	}
	if utf8.RuneCountInString(message) > model.MaxMessageLength {
		message = string([]rune(message)[:model.MaxMessageLength])
	}

	n := model.NotificationRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		Message:   message,
		CreatedAt: s.now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Message, boolToInt(n.IsRead), n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}
	return &n, nil
}

// GetRecentNotifications returns at most limit notifications of userID,
// newest first. A limit <= 0 returns all of them.
func (s *SQLiteStore) GetRecentNotifications(
	ctx context.Context,
	userID string,
	limit int,
) ([]model.NotificationRecord, error) {
	query := `
		SELECT id, user_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.NotificationRecord{}
	for rows.Next() {
		var n model.NotificationRecord
		if err := rows.StructScan(&n); err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks one notification of userID as read. A
// notification owned by another user is reported as not found.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?", id, userID,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of userID as
// read and returns how many changed.
func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0", userID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking notifications as read: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
