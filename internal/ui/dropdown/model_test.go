package dropdown_test

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/laundry-notifications/internal/keys"
	"github.com/nhle/laundry-notifications/internal/notify"
	"github.com/nhle/laundry-notifications/internal/ui/dropdown"
)

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func TestDropdown_ClosedIgnoresKeys(t *testing.T) {
	m := dropdown.New(keys.DefaultKeyMap(), 80, 20)
	m.SetRows([]notify.Row{{ID: "1", Message: "Ready", Unread: true}})

	m, cmd := m.Update(enter())
	assert.Nil(t, cmd)
	assert.False(t, m.Open())
	assert.Contains(t, m.View(), "Press o")
}

func TestDropdown_EmptyState(t *testing.T) {
	m := dropdown.New(keys.DefaultKeyMap(), 80, 20)
	m.Toggle()
	assert.Contains(t, m.View(), "Loading")

	m.SetRows(nil)
	assert.Contains(t, m.View(), dropdown.EmptyText)
}

func TestDropdown_MarkReadOnlyForUnreadRows(t *testing.T) {
	m := dropdown.New(keys.DefaultKeyMap(), 80, 20)
	m.SetRows([]notify.Row{
		{ID: "7", Message: "Your order is ready", TimeAgo: "Just now", Unread: true},
		{ID: "3", Message: "Older", TimeAgo: "1 day ago"},
	})
	require.True(t, m.Toggle())

	m, cmd := m.Update(enter())
	require.NotNil(t, cmd)
	assert.Equal(t, dropdown.MarkReadMsg{ID: "7"}, cmd())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	row, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "3", row.ID.String())

	_, cmd = m.Update(enter())
	assert.Nil(t, cmd)
}

func TestDropdown_RowsRoundTrip(t *testing.T) {
	m := dropdown.New(keys.DefaultKeyMap(), 80, 20)
	rows := []notify.Row{{ID: "1", Message: "a"}, {ID: "2", Message: "b", Unread: true}}
	m.SetRows(rows)
	assert.Equal(t, rows, m.Rows())
}
