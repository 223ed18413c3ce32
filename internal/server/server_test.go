package server_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/laundry-notifications/internal/api"
	"github.com/nhle/laundry-notifications/internal/model"
	"github.com/nhle/laundry-notifications/internal/notify"
	"github.com/nhle/laundry-notifications/internal/page"
	"github.com/nhle/laundry-notifications/internal/server"
	"github.com/nhle/laundry-notifications/internal/store"
	"github.com/nhle/laundry-notifications/internal/store/storetest"
)

type fixture struct {
	store  *store.SQLiteStore
	http   *httptest.Server
	userID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := storetest.NewTestStore(t)
	u, err := st.CreateUser(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	srv := server.New(server.Options{Store: st})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{store: st, http: ts, userID: u.ID}
}

func (f *fixture) notify(t *testing.T, messages ...string) []string {
	t.Helper()
	var ids []string
	for _, m := range messages {
		n, err := f.store.CreateNotification(context.Background(), f.userID, m)
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	return ids
}

// login signs in through the login form and returns the client and the
// loaded notifications page.
func (f *fixture) login(t *testing.T) (*api.Client, *page.Document) {
	t.Helper()
	ctx := context.Background()

	c, err := api.NewClient(f.http.URL)
	require.NoError(t, err)

	body, err := c.FetchPage(ctx, api.LoginPath)
	require.NoError(t, err)
	form, err := page.Parse(bytes.NewReader(body))
	require.NoError(t, err)

	session, err := c.Login(ctx, "alice", "s3cret", form.FormValue(server.CSRFField))
	require.NoError(t, err)
	require.NotEmpty(t, session)

	body, err = c.FetchPage(ctx, "/notifications/")
	require.NoError(t, err)
	doc, err := page.Parse(bytes.NewReader(body))
	require.NoError(t, err)
	return c, doc
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "Just now"},
		{-time.Minute, "Just now"},
		{60 * time.Second, "Just now"},
		{61 * time.Second, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour, "60 minutes ago"},
		{time.Hour + time.Second, "1 hour ago"},
		{3 * time.Hour, "3 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{50 * time.Hour, "2 days ago"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, server.TimeAgo(now, now.Add(-tt.ago)), "age %s", tt.ago)
	}
}

func TestServer_FeedRequiresLogin(t *testing.T) {
	f := newFixture(t)

	c, err := api.NewClient(f.http.URL)
	require.NoError(t, err)

	_, err = c.FetchFeed(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))

	resp, err := http.Get(f.http.URL + "/notifications/api/notifications/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_PageRedirectsBrowsersToLogin(t *testing.T) {
	f := newFixture(t)

	hc := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := hc.Get(f.http.URL + "/notifications/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/accounts/login/?next=%2Fnotifications%2F", resp.Header.Get("Location"))
}

func TestServer_WrongPasswordIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := api.NewClient(f.http.URL)
	require.NoError(t, err)
	body, err := c.FetchPage(ctx, api.LoginPath)
	require.NoError(t, err)
	form, err := page.Parse(bytes.NewReader(body))
	require.NoError(t, err)

	_, err = c.Login(ctx, "alice", "wrong", form.FormValue(server.CSRFField))
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))
	assert.Empty(t, c.Session())
}

func TestServer_PageCarriesMarkers(t *testing.T) {
	f := newFixture(t)
	_, doc := f.login(t)

	elements := model.DefaultSurfaceConfig()
	for _, id := range []string{
		elements.ListID, elements.DropdownID, elements.BadgeID,
		elements.NavBadgeID, elements.MarkAllID,
	} {
		assert.True(t, doc.HasElement(id), id)
	}
	assert.NotEmpty(t, doc.FormValue(elements.TokenField))
}

func TestServer_FeedIsNewestTenWithUnreadCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clock := time.Date(2024, 10, 19, 12, 0, 0, 0, time.UTC)
	f.store.SetClock(func() time.Time { return clock })
	var ids []string
	for i := 0; i < 12; i++ {
		ids = append(ids, f.notify(t, fmt.Sprintf("message %d", i))...)
		clock = clock.Add(time.Minute)
	}
	// The oldest two fall outside the feed; only unread ones among the
	// newest ten are counted.
	require.NoError(t, f.store.MarkNotificationRead(ctx, f.userID, ids[11]))

	c, _ := f.login(t)
	feed, err := c.FetchFeed(ctx)
	require.NoError(t, err)

	require.Len(t, feed.Notifications, 10)
	assert.Equal(t, "message 11", feed.Notifications[0].Message)
	assert.True(t, feed.Notifications[0].IsRead)
	assert.Equal(t, "message 2", feed.Notifications[9].Message)
	assert.Equal(t, 9, feed.UnreadCount)
	assert.NotEmpty(t, feed.Notifications[0].TimeAgo)
	assert.NotEmpty(t, feed.Notifications[0].CreatedAt)
}

func TestServer_MarkReadRequiresToken(t *testing.T) {
	f := newFixture(t)
	ids := f.notify(t, "Reservation confirmed for tomorrow at 2:00 PM")

	c, _ := f.login(t)
	err := c.MarkRead(context.Background(), model.NotificationID(ids[0]), "")
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))

	err = c.MarkAllRead(context.Background(), "forged")
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))
}

func TestServer_MarkReadUnknownIDIsNotFound(t *testing.T) {
	f := newFixture(t)

	c, doc := f.login(t)
	err := c.MarkRead(context.Background(), "does-not-exist", doc.FormValue(server.CSRFField))

	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestServer_ClientEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.notify(t,
		"Your laundry order #1234 is ready for pickup!",
		"Special offer: 20% off premium care services",
	)

	c, doc := f.login(t)
	surface := page.NewSurface(doc, model.DefaultSurfaceConfig(), 0)
	client := notify.New(notify.Options{API: c, Surface: surface, Page: doc})
	require.True(t, client.Active())

	require.NoError(t, client.Refresh(ctx))
	assert.Len(t, doc.Query("notificationsList", page.ClassItem), 2)
	assert.Len(t, doc.Query("notificationsList", page.ClassMarkRead), 2)
	assert.Equal(t, "2", doc.Text("notificationBadge"))

	require.NoError(t, client.MarkAsRead(ctx, model.NotificationID(ids[0])))
	assert.Len(t, doc.Query("notificationsList", page.ClassMarkRead), 1)
	assert.Equal(t, "1", doc.Text("notificationBadge"))

	require.NoError(t, client.MarkAllAsRead(ctx))
	assert.Empty(t, doc.Query("notificationsList", page.ClassMarkRead))
	assert.Equal(t, "none", doc.Style("notificationBadge", "display"))

	toasts := doc.Query("", page.ClassToast)
	require.Len(t, toasts, 2)
	assert.Equal(t, "success", toasts[1].Attrs["data-toast-kind"])
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	resp, err := http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `notifyd_logins_total{result="ok"} 1`)
	assert.Contains(t, buf.String(), "notifyd_http_requests_total")
}
