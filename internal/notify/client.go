package notify

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/nhle/laundry-notifications/internal/logging"
	"github.com/nhle/laundry-notifications/internal/model"
	appsync "github.com/nhle/laundry-notifications/internal/sync"
)

// ErrInactive is returned by operations on a client whose page has no
// notifications UI.
var ErrInactive = errors.New("notifications client is inactive")

// Toast messages shown to the user.
const (
	msgLoadFailed     = "Failed to load notifications"
	msgMarkedRead     = "Notification marked as read"
	msgMarkReadFailed = "Failed to mark notification as read"
	msgMarkedAll      = "All notifications marked as read"
	msgMarkAllFailed  = "Failed to mark all notifications as read"
)

// DefaultDropdownSettle is the delay between opening the dropdown and the
// extra refresh it triggers.
const DefaultDropdownSettle = 100 * time.Millisecond

// API is the server contract the client consumes. *api.Client satisfies it.
type API interface {
	FetchFeed(ctx context.Context) (*model.Feed, error)
	MarkRead(ctx context.Context, id model.NotificationID, token string) error
	MarkAllRead(ctx context.Context, token string) error
}

// Options configures a Client.
type Options struct {
	API     API
	Surface Surface

	// Page is checked once at construction for the list container and
	// dropdown toggle, and read for the forgery token on every
	// state-changing request.
	Page     Markers
	Elements model.SurfaceConfig

	// PollInterval defaults to 30 seconds.
	PollInterval time.Duration

	// DropdownSettle defaults to DefaultDropdownSettle; negative means none.
	DropdownSettle time.Duration

	// NewTicker overrides the poll timer, mainly for tests.
	NewTicker appsync.TickerFunc

	Logger  *slog.Logger
	Metrics *Metrics
}

// Client keeps a surface's notification list and unread badge in step with
// the server and forwards read acknowledgements.
type Client struct {
	api      API
	surface  Surface
	page     Markers
	elements model.SurfaceConfig
	settle   time.Duration
	logger   *slog.Logger
	metrics  *Metrics

	// poller is nil when the client is inactive.
	poller *appsync.Poller

	mu        gosync.Mutex
	lastCount int
}

// New creates a client. If the page lacks the list container or the
// dropdown toggle the client is inactive: it never polls, never sends a
// request and never touches the surface.
func New(opts Options) *Client {
	elements := opts.Elements
	if elements.ListID == "" {
		elements = model.DefaultSurfaceConfig()
	}

	settle := opts.DropdownSettle
	switch {
	case settle == 0:
		settle = DefaultDropdownSettle
	case settle < 0:
		settle = 0
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	c := &Client{
		api:      opts.API,
		surface:  opts.Surface,
		page:     opts.Page,
		elements: elements,
		settle:   settle,
		logger:   logger,
		metrics:  opts.Metrics,
	}

	if c.hasUI() {
		c.poller = appsync.New(c.Refresh, opts.PollInterval, opts.NewTicker)
	}
	return c
}

func (c *Client) hasUI() bool {
	return c.page != nil &&
		c.api != nil &&
		c.surface != nil &&
		c.page.HasElement(c.elements.ListID) &&
		c.page.HasElement(c.elements.DropdownID)
}

// Active reports whether the page carries a notifications UI.
func (c *Client) Active() bool {
	return c.poller != nil
}

// Start performs one immediate refresh and arms the recurring refresh.
// It is a no-op on an inactive or already started client.
func (c *Client) Start(ctx context.Context) {
	if !c.Active() {
		return
	}
	if c.poller.Start(ctx) {
		c.logger.Debug("notification polling started",
			"interval", c.poller.Interval())
	}
}

// Stop disarms the recurring refresh and releases its timer. Requests in
// flight are not aborted.
func (c *Client) Stop() {
	if !c.Active() {
		return
	}
	c.poller.Stop()
}

// Wait blocks until every refresh started by the timer has returned.
func (c *Client) Wait() {
	if c.Active() {
		c.poller.Wait()
	}
}

// Status reports the outcome of the timer-driven refreshes.
func (c *Client) Status() appsync.Status {
	if !c.Active() {
		return appsync.Status{}
	}
	return c.poller.Status()
}

// Refresh fetches the feed and, on success, replaces the list and the
// badge. On failure the rendered list is left untouched and an error toast
// is shown. Concurrent calls are independent; whichever completes last
// determines what is displayed.
func (c *Client) Refresh(ctx context.Context) error {
	if !c.Active() {
		return ErrInactive
	}

	feed, err := c.api.FetchFeed(ctx)
	c.metrics.refreshed(err)
	if err != nil {
		c.logger.Error("loading notifications failed", "error", err)
		c.surface.ShowToast(Toast{Kind: ToastError, Message: msgLoadFailed})
		return err
	}

	c.Render(feed.Notifications)
	c.UpdateBadge(feed.UnreadCount)
	return nil
}

// Render replaces the displayed list with one row per notification, in
// server order.
func (c *Client) Render(notifications []model.Notification) {
	if !c.Active() {
		return
	}

	rows := make([]Row, 0, len(notifications))
	for _, n := range notifications {
		rows = append(rows, Row{
			ID:      n.ID,
			Message: n.Message,
			TimeAgo: n.TimeAgo,
			Unread:  !n.IsRead,
		})
	}
	c.surface.ShowNotifications(rows)
}

// UpdateBadge shows count on the unread badge. A count above the previous
// one requests a pulse.
func (c *Client) UpdateBadge(count int) {
	if !c.Active() {
		return
	}
	if count < 0 {
		count = 0
	}

	b := FormatBadge(count)

	c.mu.Lock()
	b.Pulse = count > c.lastCount
	c.lastCount = count
	c.mu.Unlock()

	c.metrics.setUnread(count)
	c.surface.ShowBadge(b)
}

// MarkAsRead acknowledges one notification. On success the list is
// refreshed once from the server; on failure nothing changes locally.
func (c *Client) MarkAsRead(ctx context.Context, id model.NotificationID) error {
	if !c.Active() {
		return ErrInactive
	}

	err := c.api.MarkRead(ctx, id, c.token())
	c.metrics.acked("one", err)
	if err != nil {
		c.logger.Error("marking notification read failed",
			"notification_id", id, "error", err)
		c.surface.ShowToast(Toast{Kind: ToastError, Message: msgMarkReadFailed})
		return err
	}

	_ = c.Refresh(ctx)
	c.surface.ShowToast(Toast{Kind: ToastSuccess, Message: msgMarkedRead})
	return nil
}

// MarkAllAsRead acknowledges every notification of the current user, with
// the same success and failure behaviour as MarkAsRead.
func (c *Client) MarkAllAsRead(ctx context.Context) error {
	if !c.Active() {
		return ErrInactive
	}

	err := c.api.MarkAllRead(ctx, c.token())
	c.metrics.acked("all", err)
	if err != nil {
		c.logger.Error("marking all notifications read failed", "error", err)
		c.surface.ShowToast(Toast{Kind: ToastError, Message: msgMarkAllFailed})
		return err
	}

	_ = c.Refresh(ctx)
	c.surface.ShowToast(Toast{Kind: ToastSuccess, Message: msgMarkedAll})
	return nil
}

// OpenDropdown schedules one extra refresh shortly after the dropdown is
// opened. It does not touch the recurring timer and may race with it.
func (c *Client) OpenDropdown(ctx context.Context) {
	if !c.Active() {
		return
	}

	go func() {
		if c.settle > 0 {
			t := time.NewTimer(c.settle)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
		_ = c.Refresh(ctx)
	}()
}

// token reads the forgery-protection token from the page. A missing field
// yields "", which the server will reject.
func (c *Client) token() string {
	return c.page.FormValue(c.elements.TokenField)
}
