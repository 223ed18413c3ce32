package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/laundry-notifications/internal/notify"
	appsync "github.com/nhle/laundry-notifications/internal/sync"
	"github.com/nhle/laundry-notifications/internal/theme"
)

const bell = "🔔 "

// Layout holds the terminal size and splits it into a one-line header, the
// content area and a one-line status bar.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout for a terminal of the given size.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the width of the content area.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left between header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-2, 0)
}

// SyncState describes the polling client shown in the header.
type SyncState struct {
	// Connected is false until a session and page have been loaded.
	Connected bool

	// Active is false when the loaded page has no notifications UI.
	Active bool

	Status appsync.Status
}

// String returns the short label shown at the right of the header.
func (s SyncState) String() string {
	switch {
	case !s.Connected:
		return "offline"
	case !s.Active:
		return "no notifications UI"
	}

	switch s.Status.State {
	case appsync.StateRunning:
		return "syncing"
	case appsync.StateError:
		return "⚠ unreachable"
	}
	if !s.Status.LastOK.IsZero() {
		return "updated " + s.Status.LastOK.Local().Format("15:04:05")
	}
	return "idle"
}

// Header is the content of the top bar.
type Header struct {
	Title string
	Badge notify.Badge

	// Pulsing draws the badge highlighted right after the count grew.
	Pulsing bool

	Sync SyncState
}

// RenderBadge renders the bell and unread count, or "" when the badge is
// hidden.
func RenderBadge(b notify.Badge, pulsing bool) string {
	if !b.Visible {
		return ""
	}
	if pulsing {
		return theme.PulseStyle.Render(bell + b.Text)
	}
	return theme.BadgeStyle.Render(bell + b.Text)
}

// RenderHeader renders the title and badge on the left and the sync state
// on the right.
func (l Layout) RenderHeader(h Header) string {
	left := theme.HeaderStyle.Render(h.Title)
	if badge := RenderBadge(h.Badge, h.Pulsing); badge != "" {
		left = lipgloss.JoinHorizontal(lipgloss.Top, left, badge)
	}
	right := theme.HeaderStyle.Align(lipgloss.Right).Render(h.Sync.String())

	return lipgloss.JoinHorizontal(lipgloss.Top,
		left,
		fill(theme.HeaderStyle, l.Width-lipgloss.Width(left)-lipgloss.Width(right)),
		right,
	)
}

// RenderStatusBar renders the newest toast, if any, followed by the hints.
func (l Layout) RenderStatusBar(toast *notify.Toast, hints string) string {
	bar := theme.StatusBarStyle.Render(hints)
	if toast != nil {
		notice := theme.ToastStyle(toast.Kind == notify.ToastSuccess).Render(toast.Message)
		bar = lipgloss.JoinHorizontal(lipgloss.Top, notice, bar)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		bar,
		fill(theme.StatusBarStyle, l.Width-lipgloss.Width(bar)),
	)
}

// Frame stacks header, content and status bar.
func (l Layout) Frame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

// fill pads a bar to the terminal width in the bar's background.
func fill(style lipgloss.Style, width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Width(width).
		Background(style.GetBackground()).
		Render("")
}
