package page_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/laundry-notifications/internal/model"
	"github.com/nhle/laundry-notifications/internal/notify"
	"github.com/nhle/laundry-notifications/internal/page"
)

const dropdownPage = `<!DOCTYPE html>
<html><head><title>Laundry Pal</title></head><body>
<span id="navNotificationBadge"></span>
<a id="notificationsDropdown">Bell <span id="notificationBadge" style="display: none"></span></a>
<div id="notificationsList"><p>loading</p></div>
<input type="hidden" name="csrfmiddlewaretoken" value="abc">
</body></html>`

func newSurface(t *testing.T) (*page.Document, *page.Surface) {
	t.Helper()
	doc, err := page.ParseString(dropdownPage)
	require.NoError(t, err)
	return doc, page.NewSurface(doc, model.DefaultSurfaceConfig(), 0)
}

func TestDocument_Markers(t *testing.T) {
	doc, err := page.ParseString(dropdownPage)
	require.NoError(t, err)

	assert.True(t, doc.HasElement("notificationsList"))
	assert.True(t, doc.HasElement("notificationsDropdown"))
	assert.False(t, doc.HasElement("markAllRead"))
	assert.False(t, doc.HasElement(""))
	assert.Equal(t, "abc", doc.FormValue("csrfmiddlewaretoken"))
	assert.Equal(t, "", doc.FormValue("missing"))
}

func TestSurface_EmptyStateRendersPlaceholder(t *testing.T) {
	doc, s := newSurface(t)

	s.ShowNotifications(nil)

	assert.Empty(t, doc.Query("notificationsList", page.ClassItem))
	empty := doc.Query("notificationsList", page.ClassEmpty)
	require.Len(t, empty, 1)
	assert.Equal(t, page.EmptyText, empty[0].Text)
	assert.NotContains(t, doc.Text("notificationsList"), "loading")
}

func TestSurface_RowShapeFollowsReadState(t *testing.T) {
	doc, s := newSurface(t)

	s.ShowNotifications([]notify.Row{
		{ID: "11", Message: "Your order has been picked up", TimeAgo: "5 minutes ago", Unread: true},
		{ID: "12", Message: "Special offer: 20% off premium care services", TimeAgo: "1 day ago"},
	})

	items := doc.Query("notificationsList", page.ClassItem)
	require.Len(t, items, 2)
	assert.Equal(t, "11", items[0].Attrs[page.AttrNotification])
	assert.Contains(t, items[0].Text, "Your order has been picked up")
	assert.Contains(t, items[0].Text, "5 minutes ago")
	assert.Equal(t, "12", items[1].Attrs[page.AttrNotification])
	assert.True(t, items[1].HasClass("read"))

	buttons := doc.Query("notificationsList", page.ClassMarkRead)
	require.Len(t, buttons, 1)
	assert.Equal(t, "11", buttons[0].Attrs[page.AttrNotification])
	assert.Empty(t, doc.Query("notificationsList", page.ClassEmpty))
}

func TestSurface_MessageIsRenderedAsText(t *testing.T) {
	doc, s := newSurface(t)

	s.ShowNotifications([]notify.Row{{ID: "1", Message: "<b>Ready</b> & waiting", Unread: true}})

	out := doc.String()
	assert.Contains(t, out, "&lt;b&gt;Ready&lt;/b&gt; &amp; waiting")
	assert.Len(t, doc.Query("notificationsList", page.ClassItem), 1)
}

func TestSurface_BadgeCapping(t *testing.T) {
	tests := []struct {
		count   int
		display string
		text    string
	}{
		{0, "none", ""},
		{1, "block", "1"},
		{99, "block", "99"},
		{100, "block", "99+"},
		{250, "block", "99+"},
	}

	for _, tt := range tests {
		doc, s := newSurface(t)
		s.ShowBadge(notify.FormatBadge(tt.count))

		for _, id := range []string{"notificationBadge", "navNotificationBadge"} {
			assert.Equal(t, tt.display, doc.Style(id, "display"), "count %d", tt.count)
			if tt.display == "block" {
				assert.Equal(t, tt.text, doc.Text(id), "count %d", tt.count)
			}
		}
	}
}

func TestSurface_PulseIsTransient(t *testing.T) {
	doc, s := newSurface(t)

	b := notify.FormatBadge(3)
	b.Pulse = true
	s.ShowBadge(b)

	assert.Equal(t, "3", doc.Text("notificationBadge"))
	assert.Equal(t, "pulse 1s ease-in-out", doc.Style("notificationBadge", "animation"))
	assert.Eventually(t, func() bool {
		return doc.Style("notificationBadge", "animation") == ""
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "block", doc.Style("notificationBadge", "display"))
}

func TestSurface_NewerPulseOutlivesEarlierTimer(t *testing.T) {
	doc, s := newSurface(t)

	b := notify.FormatBadge(1)
	b.Pulse = true
	s.ShowBadge(b)

	time.Sleep(600 * time.Millisecond)
	b = notify.FormatBadge(2)
	b.Pulse = true
	s.ShowBadge(b)

	// The first pulse's timer has fired by now; the second is still running.
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, "pulse 1s ease-in-out", doc.Style("notificationBadge", "animation"))
	assert.Equal(t, "pulse 1s ease-in-out", doc.Style("navNotificationBadge", "animation"))

	assert.Eventually(t, func() bool {
		return doc.Style("notificationBadge", "animation") == ""
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "2", doc.Text("notificationBadge"))
}

func TestSurface_ToastContainerCreatedOnDemand(t *testing.T) {
	doc, err := page.ParseString(dropdownPage)
	require.NoError(t, err)
	s := page.NewSurface(doc, model.DefaultSurfaceConfig(), 50*time.Millisecond)

	var mu sync.Mutex
	changes := 0
	s.OnChange(func(*page.Document) {
		mu.Lock()
		changes++
		mu.Unlock()
	})

	s.ShowToast(notify.Toast{Kind: notify.ToastError, Message: "Failed to load notifications"})
	s.ShowToast(notify.Toast{Kind: notify.ToastSuccess, Message: "All notifications marked as read"})

	require.Len(t, doc.Query("", "toast-container"), 1)
	toasts := doc.Query("", page.ClassToast)
	require.Len(t, toasts, 2)
	assert.True(t, toasts[0].HasClass("bg-danger"))
	assert.True(t, toasts[1].HasClass("bg-success"))

	assert.Eventually(t, func() bool {
		return len(doc.Query("", page.ClassToast)) == 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, changes, 4)
}

func TestDocument_RenderRoundTrip(t *testing.T) {
	doc, s := newSurface(t)
	s.ShowNotifications([]notify.Row{{ID: "5", Message: "Reminder", Unread: true}})

	again, err := page.ParseString(doc.String())
	require.NoError(t, err)

	assert.True(t, strings.Contains(again.String(), `data-notification-id="5"`))
	assert.Len(t, again.Query("notificationsList", page.ClassMarkRead), 1)
}
