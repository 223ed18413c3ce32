package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/laundry-notifications/internal/model"
)

func TestDecodeFeed(t *testing.T) {
	feed, err := model.DecodeFeed([]byte(`{
		"notifications": [
			{"id": 3, "message": "Reminder: Your scheduled pickup is in 1 hour", "is_read": false,
			 "created_at": "Oct 19, 2024 02:05 PM", "time_ago": "5 minutes ago", "extra": true}
		],
		"unread_count": 12
	}`))
	require.NoError(t, err)

	require.Len(t, feed.Notifications, 1)
	n := feed.Notifications[0]
	assert.Equal(t, model.NotificationID("3"), n.ID)
	assert.Equal(t, "5 minutes ago", n.TimeAgo)
	assert.Equal(t, "Oct 19, 2024 02:05 PM", n.CreatedAt)
	// The server count is kept even when it disagrees with the list.
	assert.Equal(t, 12, feed.UnreadCount)
}

func TestDecodeFeed_Empty(t *testing.T) {
	feed, err := model.DecodeFeed([]byte(`{"notifications": [], "unread_count": 0}`))
	require.NoError(t, err)
	assert.Empty(t, feed.Notifications)
	assert.Empty(t, feed.Unread())
}

func TestDecodeFeed_Malformed(t *testing.T) {
	for _, body := range []string{
		``,
		`[]`,
		`{"notifications": {}, "unread_count": 0}`,
		`{"notifications": [], "unread_count": "3"}`,
		`{"notifications": [{"id": true}], "unread_count": 0}`,
		`{"notifications": [{"message": "Order ready", "is_read": false}], "unread_count": 1}`,
		`{"notifications": [{"id": "", "message": "Order ready", "is_read": false}], "unread_count": 1}`,
		`{"notifications": [{"id": 4, "is_read": false}], "unread_count": 1}`,
		`{"notifications": [{"id": 4, "message": "Order ready"}], "unread_count": 1}`,
	} {
		_, err := model.DecodeFeed([]byte(body))
		assert.ErrorIs(t, err, model.ErrMalformedFeed, body)
	}
}

func TestFormatOrderNumber(t *testing.T) {
	at := mustDate(t, "2024-10-19")
	assert.Equal(t, "LP00421019", model.FormatOrderNumber(42, at))
	assert.Equal(t, "LP123451019", model.FormatOrderNumber(12345, at))
	assert.Equal(t, "Ready for Delivery", model.OrderReady.Label())
}
