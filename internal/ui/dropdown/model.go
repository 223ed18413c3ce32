package dropdown

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/laundry-notifications/internal/keys"
	"github.com/nhle/laundry-notifications/internal/model"
	"github.com/nhle/laundry-notifications/internal/notify"
	"github.com/nhle/laundry-notifications/internal/theme"
)

// EmptyText is shown when the user has no notifications.
const EmptyText = "No notifications yet"

// MarkReadMsg is sent when the user acknowledges the selected row.
type MarkReadMsg struct {
	ID model.NotificationID
}

// Model is the notifications dropdown.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	open   bool
	loaded bool
	width  int
	height int
}

// New creates a closed dropdown.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, RowDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetRows replaces the rows, keeping the cursor in range.
func (m *Model) SetRows(rows []notify.Row) tea.Cmd {
	m.loaded = true
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = RowItem{Row: r}
	}
	return m.list.SetItems(items)
}

// Rows returns the rows currently shown.
func (m Model) Rows() []notify.Row {
	items := m.list.Items()
	rows := make([]notify.Row, 0, len(items))
	for _, it := range items {
		if ri, ok := it.(RowItem); ok {
			rows = append(rows, ri.Row)
		}
	}
	return rows
}

// Selected returns the row under the cursor.
func (m Model) Selected() (notify.Row, bool) {
	ri, ok := m.list.SelectedItem().(RowItem)
	if !ok {
		return notify.Row{}, false
	}
	return ri.Row, true
}

// Open reports whether the dropdown is expanded.
func (m Model) Open() bool { return m.open }

// Toggle opens or closes the dropdown and reports the new state.
func (m *Model) Toggle() bool {
	m.open = !m.open
	return m.open
}

// Close collapses the dropdown.
func (m *Model) Close() { m.open = false }

// Update handles messages for the dropdown.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.open {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, m.keys.MarkRead) {
			row, ok := m.Selected()
			if !ok || !row.CanMarkRead() {
				return m, nil
			}
			return m, func() tea.Msg { return MarkReadMsg{ID: row.ID} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the dropdown, or a hint while it is closed.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if !m.open {
		return style.Render("Press o to open notifications.")
	}
	if !m.loaded {
		return style.Render("Loading notifications...")
	}
	if len(m.list.Items()) == 0 {
		return style.Render(EmptyText)
	}
	return m.list.View()
}

// SetSize updates the dropdown dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
