package notify

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/nhle/laundry-notifications/internal/model"
)

// BadgeCap is the largest count shown literally on the badge.
const BadgeCap = 99

// Row is the view model of one rendered notification.
type Row struct {
	ID      model.NotificationID
	Message string
	TimeAgo string
	Unread  bool
}

// CanMarkRead reports whether the row exposes a mark-read control.
func (r Row) CanMarkRead() bool { return r.Unread }

// Badge is the view model of the unread counter.
type Badge struct {
	Count   int
	Text    string
	Visible bool

	// Pulse asks the surface for a short emphasis animation. It never
	// delays Text from being shown.
	Pulse bool
}

// FormatBadge computes the badge for an unread count: hidden at zero,
// the literal count up to BadgeCap, "99+" above it.
func FormatBadge(count int) Badge {
	if count <= 0 {
		return Badge{}
	}
	text := strconv.Itoa(count)
	if count > BadgeCap {
		text = strconv.Itoa(BadgeCap) + "+"
	}
	return Badge{Count: count, Text: text, Visible: true}
}

// ToastKind distinguishes success and error toasts.
type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastError
)

func (k ToastKind) String() string {
	if k == ToastError {
		return "error"
	}
	return "success"
}

// Toast is a transient, self-dismissing notice.
type Toast struct {
	Kind    ToastKind
	Message string
}

// Surface displays what the client renders. Implementations own their
// display and must accept calls from multiple goroutines; the last call
// wins.
type Surface interface {
	// ShowNotifications replaces the list. An empty slice means the
	// "no notifications" placeholder.
	ShowNotifications(rows []Row)
	ShowBadge(b Badge)
	ShowToast(t Toast)
}

// Markers answers questions about the page the client is attached to.
// *page.Document satisfies it.
type Markers interface {
	HasElement(id string) bool
	FormValue(name string) string
}

// Surfaces fans every call out to several surfaces in order.
type Surfaces []Surface

func (s Surfaces) ShowNotifications(rows []Row) {
	for _, sf := range s {
		sf.ShowNotifications(rows)
	}
}

func (s Surfaces) ShowBadge(b Badge) {
	for _, sf := range s {
		sf.ShowBadge(b)
	}
}

func (s Surfaces) ShowToast(t Toast) {
	for _, sf := range s {
		sf.ShowToast(t)
	}
}

// LogSurface records what would be displayed as structured log lines.
type LogSurface struct {
	Logger *slog.Logger
}

func (s LogSurface) ShowNotifications(rows []Row) {
	unread := 0
	for _, r := range rows {
		if r.Unread {
			unread++
		}
	}
	s.Logger.Info("notifications rendered", "rows", len(rows), "unread_rows", unread)
	for _, r := range rows {
		if r.Unread {
			s.Logger.Debug("unread notification", "id", r.ID, "message", r.Message, "time_ago", r.TimeAgo)
		}
	}
}

func (s LogSurface) ShowBadge(b Badge) {
	s.Logger.Info("badge updated", "count", b.Count, "text", b.Text, "visible", b.Visible, "pulse", b.Pulse)
}

func (s LogSurface) ShowToast(t Toast) {
	level := slog.LevelInfo
	if t.Kind == ToastError {
		level = slog.LevelWarn
	}
	s.Logger.Log(context.Background(), level, t.Message, "toast", t.Kind.String())
}
