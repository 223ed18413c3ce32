package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nhle/laundry-notifications/internal/model"
)

// Endpoint paths of the laundry web application.
const (
	FeedPath        = "/notifications/api/notifications/"
	MarkAllReadPath = "/notifications/api/notifications/mark-all-read/"
	LoginPath       = "/accounts/login/"
	LogoutPath      = "/accounts/logout/"
)

// MarkReadPath returns the path that acknowledges a single notification.
func MarkReadPath(id model.NotificationID) string {
	return "/notifications/api/notifications/" + url.PathEscape(id.String()) + "/read/"
}

// ErrEmptyID is returned by MarkRead for a notification without an id.
var ErrEmptyID = errors.New("notification id is empty")

// DefaultTokenHeader is the header that carries the forgery-protection token.
const DefaultTokenHeader = "X-CSRFToken"

// FetchFeed retrieves the current notification feed.
func (c *Client) FetchFeed(ctx context.Context) (*model.Feed, error) {
	body, err := c.GetRaw(ctx, FeedPath)
	if err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}
	feed, err := model.DecodeFeed(body)
	if err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}
	return feed, nil
}

// MarkRead acknowledges a single notification. token is sent in the
// forgery-protection header even when empty.
func (c *Client) MarkRead(ctx context.Context, id model.NotificationID, token string) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := c.Post(ctx, MarkReadPath(id), c.headerFor(token), nil, nil); err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllRead acknowledges every notification of the current user.
func (c *Client) MarkAllRead(ctx context.Context, token string) error {
	if err := c.Post(ctx, MarkAllReadPath, c.headerFor(token), nil, nil); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// FetchPage retrieves the HTML of a page on the server.
func (c *Client) FetchPage(ctx context.Context, path string) ([]byte, error) {
	body, err := c.GetRaw(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetching page %s: %w", path, err)
	}
	return body, nil
}

// Login submits the login form and returns the resulting session value.
// token is the forgery-protection token scraped from the login page.
func (c *Client) Login(ctx context.Context, username, password, token string) (string, error) {
	form := url.Values{
		"username":            {username},
		"password":            {password},
		"csrfmiddlewaretoken": {token},
	}
	err := c.Post(ctx, LoginPath, c.headerFor(token), form, nil)
	if IsRedirect(err) {
		// A successful form login redirects to the landing page.
		err = nil
	}
	if err != nil {
		return "", fmt.Errorf("logging in as %s: %w", username, err)
	}

	session := c.Session()
	if session == "" {
		return "", fmt.Errorf("logging in as %s: no session cookie returned", username)
	}
	return session, nil
}

// Logout ends the session on the server. The local session cookie is
// dropped even if the request fails.
func (c *Client) Logout(ctx context.Context, token string) error {
	form := url.Values{"csrfmiddlewaretoken": {token}}
	err := c.Post(ctx, LogoutPath, c.headerFor(token), form, nil)
	c.SetSession("")
	if IsRedirect(err) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// IsRedirect reports whether err is a 3xx response. Unauthenticated page
// requests are redirected to the login form.
func IsRedirect(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= 300 && se.StatusCode < 400
}

func (c *Client) headerFor(token string) http.Header {
	h := http.Header{}
	h.Set(c.tokenHeader, token)
	return h
}
