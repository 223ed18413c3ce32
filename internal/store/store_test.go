package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/laundry-notifications/internal/model"
	"github.com/nhle/laundry-notifications/internal/store"
	"github.com/nhle/laundry-notifications/internal/store/storetest"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newStore(t *testing.T) (*store.SQLiteStore, *clock) {
	t.Helper()
	s := storetest.NewTestStore(t)
	c := &clock{t: time.Date(2024, 10, 19, 12, 0, 0, 0, time.UTC)}
	s.SetClock(c.now)
	return s, c
}

func TestUsers_CreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	u, err := s.CreateUser(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	got, err := s.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "bob", "s3cret")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)

	_, err = s.CreateUser(ctx, "alice", "other")
	assert.Error(t, err)

	users, err := s.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestSessions_Expire(t *testing.T) {
	ctx := context.Background()
	s, c := newStore(t)

	u, err := s.CreateUser(ctx, "alice", "pw")
	require.NoError(t, err)

	sess, err := s.CreateSession(ctx, u.ID, time.Hour)
	require.NoError(t, err)

	got, err := s.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)

	c.advance(time.Hour)
	_, err = s.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetSession(ctx, "unknown")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNotifications_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, c := newStore(t)

	u, err := s.CreateUser(ctx, "alice", "pw")
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		_, err := s.CreateNotification(ctx, u.ID, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
		c.advance(time.Minute)
	}

	recent, err := s.GetRecentNotifications(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 10)
	assert.Equal(t, "message 11", recent[0].Message)
	assert.Equal(t, "message 2", recent[9].Message)
	assert.False(t, recent[0].IsRead)

	all, err := s.GetRecentNotifications(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 12)
}

func TestNotifications_MarkReadIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	alice, err := s.CreateUser(ctx, "alice", "pw")
	require.NoError(t, err)
	bob, err := s.CreateUser(ctx, "bob", "pw")
	require.NoError(t, err)

	n, err := s.CreateNotification(ctx, alice.ID, "Your laundry order #1234 is ready for pickup!")
	require.NoError(t, err)

	err = s.MarkNotificationRead(ctx, bob.ID, n.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.MarkNotificationRead(ctx, alice.ID, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.MarkNotificationRead(ctx, alice.ID, n.ID))
	recent, err := s.GetRecentNotifications(ctx, alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].IsRead)
}

func TestNotifications_MarkAllRead(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	alice, err := s.CreateUser(ctx, "alice", "pw")
	require.NoError(t, err)
	bob, err := s.CreateUser(ctx, "bob", "pw")
	require.NoError(t, err)

	for _, msg := range []string{"one", "two", "three"} {
		_, err := s.CreateNotification(ctx, alice.ID, msg)
		require.NoError(t, err)
	}
	_, err = s.CreateNotification(ctx, bob.ID, "bob's")
	require.NoError(t, err)

	changed, err := s.MarkAllNotificationsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)

	changed, err = s.MarkAllNotificationsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)

	bobs, err := s.GetRecentNotifications(ctx, bob.ID, 10)
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.False(t, bobs[0].IsRead)
}

func TestNotifications_MessageIsBounded(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	u, err := s.CreateUser(ctx, "alice", "pw")
	require.NoError(t, err)

	long := make([]rune, model.MaxMessageLength+20)
	for i := range long {
		long[i] = 'é'
	}
	n, err := s.CreateNotification(ctx, u.ID, string(long))
	require.NoError(t, err)
	assert.Len(t, []rune(n.Message), model.MaxMessageLength)

	_, err = s.CreateNotification(ctx, u.ID, "   ")
	assert.Error(t, err)
}

func TestOrders_ProgressOnce(t *testing.T) {
	ctx := context.Background()
	s, c := newStore(t)

	u, err := s.CreateUser(ctx, "alice", "pw")
	require.NoError(t, err)

	o, err := s.CreateOrder(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormatOrderNumber(o.ID, c.t), o.OrderNumber)
	assert.Equal(t, model.OrderPending, o.Status)

	due, err := s.GetOrdersDue(ctx, model.OrderPending, c.t.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)

	c.advance(5 * time.Minute)
	due, err = s.GetOrdersDue(ctx, model.OrderPending, c.t.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, o.ID, due[0].ID)

	ok, err := s.AdvanceOrder(ctx, o.ID, model.OrderPending, model.OrderConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AdvanceOrder(ctx, o.ID, model.OrderPending, model.OrderConfirmed)
	require.NoError(t, err)
	assert.False(t, ok)

	orders, err := s.GetOrders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderConfirmed, orders[0].Status)
}
