package dropdown

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/laundry-notifications/internal/notify"
	"github.com/nhle/laundry-notifications/internal/theme"
)

// RowItem wraps a notify.Row so it can be used in a bubbles/list.
type RowItem struct {
	Row notify.Row
}

// FilterValue returns the string used for fuzzy filtering.
func (i RowItem) FilterValue() string { return i.Row.Message }

// Title returns the notification message.
func (i RowItem) Title() string { return i.Row.Message }

// Description returns the relative time of the notification.
func (i RowItem) Description() string { return i.Row.TimeAgo }

// RowDelegate implements list.ItemDelegate for notification rows.
type RowDelegate struct{}

// Height returns the number of lines each item takes.
func (d RowDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d RowDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d RowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single notification line: an unread marker, the
// message and its relative time.
func (d RowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ri, ok := item.(RowItem)
	if !ok {
		return
	}
	r := ri.Row

	marker := " "
	message := r.Message
	if r.CanMarkRead() {
		marker = theme.UnreadMarkerStyle.Render("●")
	} else {
		message = theme.ReadStyle.Render(message)
	}

	line := fmt.Sprintf("%s %s %s", marker, message, theme.TimeStyle.Render(r.TimeAgo))

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}
