package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/laundry-notifications/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned by Authenticate for an unknown user
	// or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Store defines the persistence interface of the development server.
type Store interface {
	// === Users ===

	CreateUser(ctx context.Context, username, password string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUsers(ctx context.Context) ([]model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.User, error)

	// === Sessions ===

	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*model.Session, error)
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error

	// === Notifications ===

	CreateNotification(ctx context.Context, userID, message string) (*model.NotificationRecord, error)
	GetRecentNotifications(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)

	// === Orders ===

	CreateOrder(ctx context.Context, userID string) (*model.Order, error)
	GetOrders(ctx context.Context, userID string) ([]model.Order, error)
	GetOrdersDue(ctx context.Context, status model.OrderStatus, before time.Time) ([]model.Order, error)
	AdvanceOrder(ctx context.Context, id int64, from, to model.OrderStatus) (bool, error)

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
