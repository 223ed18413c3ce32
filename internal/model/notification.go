package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedFeed is returned when a feed response body is not JSON or is
// missing one of its required fields.
var ErrMalformedFeed = errors.New("malformed notification feed")

// NotificationID is the opaque identifier of a notification. Servers may
// encode it as a JSON number or a JSON string; both decode to the same value.
type NotificationID string

// String returns the identifier as a string.
func (id NotificationID) String() string { return string(id) }

// UnmarshalJSON accepts numeric and string identifiers.
func (id *NotificationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: empty notification id", ErrMalformedFeed)
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFeed, err)
		}
		*id = NotificationID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: notification id %s", ErrMalformedFeed, data)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("%w: notification id %s", ErrMalformedFeed, data)
	}
	*id = NotificationID(n.String())
	return nil
}

// Notification is the client-side projection of a server-owned notification.
type Notification struct {
	// ID is unique within the user's notification set.
	ID NotificationID `json:"id"`

	// Message is the human-readable text, sanitized by the server.
	Message string `json:"message"`

	// IsRead stays false until a mark-read request succeeds.
	IsRead bool `json:"is_read"`

	// TimeAgo is a relative time string formatted by the server.
	TimeAgo string `json:"time_ago"`

	// CreatedAt is the absolute timestamp formatted by the server, if sent.
	CreatedAt string `json:"created_at,omitempty"`
}

// UnmarshalJSON decodes one notification. id, message and is_read are
// required; an empty id is rejected because it cannot be acknowledged.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        *NotificationID `json:"id"`
		Message   *string         `json:"message"`
		IsRead    *bool           `json:"is_read"`
		TimeAgo   string          `json:"time_ago"`
		CreatedAt string          `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		if errors.Is(err, ErrMalformedFeed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	switch {
	case raw.ID == nil || *raw.ID == "":
		return fmt.Errorf("%w: notification without id", ErrMalformedFeed)
	case raw.Message == nil:
		return fmt.Errorf("%w: notification %s without message", ErrMalformedFeed, *raw.ID)
	case raw.IsRead == nil:
		return fmt.Errorf("%w: notification %s without is_read", ErrMalformedFeed, *raw.ID)
	}

	*n = Notification{
		ID:        *raw.ID,
		Message:   *raw.Message,
		IsRead:    *raw.IsRead,
		TimeAgo:   raw.TimeAgo,
		CreatedAt: raw.CreatedAt,
	}
	return nil
}

// Feed is one snapshot of a user's notifications as returned by a single
// fetch. UnreadCount is computed by the server and is never reconciled
// against the length of Notifications.
type Feed struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}

// UnmarshalJSON decodes a feed and rejects bodies that lack either of the
// two required keys.
func (f *Feed) UnmarshalJSON(data []byte) error {
	var raw struct {
		Notifications *[]Notification `json:"notifications"`
		UnreadCount   *int            `json:"unread_count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		if errors.Is(err, ErrMalformedFeed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	if raw.Notifications == nil {
		return fmt.Errorf("%w: missing notifications", ErrMalformedFeed)
	}
	if raw.UnreadCount == nil {
		return fmt.Errorf("%w: missing unread_count", ErrMalformedFeed)
	}

	f.Notifications = *raw.Notifications
	f.UnreadCount = *raw.UnreadCount
	return nil
}

// DecodeFeed decodes a feed response body. Every failure wraps
// ErrMalformedFeed.
func DecodeFeed(body []byte) (*Feed, error) {
	var feed Feed
	if err := json.Unmarshal(body, &feed); err != nil {
		if errors.Is(err, ErrMalformedFeed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	return &feed, nil
}

// Unread returns the notifications in the feed that are not yet read.
func (f Feed) Unread() []Notification {
	var out []Notification
	for _, n := range f.Notifications {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out
}
