package ui_test

import (
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/nhle/laundry-notifications/internal/notify"
	appsync "github.com/nhle/laundry-notifications/internal/sync"
	"github.com/nhle/laundry-notifications/internal/ui"
)

func TestSyncState_String(t *testing.T) {
	lastOK := time.Date(2024, 10, 19, 14, 5, 9, 0, time.Local)

	tests := []struct {
		name  string
		state ui.SyncState
		want  string
	}{
		{"not connected", ui.SyncState{}, "offline"},
		{"page without dropdown", ui.SyncState{Connected: true}, "no notifications UI"},
		{"never polled", ui.SyncState{Connected: true, Active: true}, "idle"},
		{"request in flight", ui.SyncState{
			Connected: true, Active: true,
			Status: appsync.Status{State: appsync.StateRunning},
		}, "syncing"},
		{"last poll failed", ui.SyncState{
			Connected: true, Active: true,
			Status: appsync.Status{State: appsync.StateError, LastError: errors.New("boom"), LastOK: lastOK},
		}, "⚠ unreachable"},
		{"last poll ok", ui.SyncState{
			Connected: true, Active: true,
			Status: appsync.Status{State: appsync.StateIdle, LastOK: lastOK},
		}, "updated 14:05:09"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestRenderBadge(t *testing.T) {
	assert.Empty(t, ui.RenderBadge(notify.FormatBadge(0), true))
	assert.Contains(t, ui.RenderBadge(notify.FormatBadge(7), false), "7")
	assert.Contains(t, ui.RenderBadge(notify.FormatBadge(120), true), "99+")
}

func TestLayout_HeaderSpansWidth(t *testing.T) {
	l := ui.NewLayout(80, 24)
	assert.Equal(t, 22, l.ContentHeight())
	assert.Equal(t, 0, ui.NewLayout(80, 1).ContentHeight())

	header := l.RenderHeader(ui.Header{
		Title: "Laundry Pal",
		Badge: notify.FormatBadge(3),
		Sync:  ui.SyncState{Connected: true, Active: true},
	})
	assert.Contains(t, header, "Laundry Pal")
	assert.Contains(t, header, "3")
	assert.Contains(t, header, "idle")
	assert.Equal(t, 80, lipgloss.Width(header))
}

func TestLayout_StatusBarShowsToast(t *testing.T) {
	l := ui.NewLayout(80, 24)

	bar := l.RenderStatusBar(nil, "o open")
	assert.Contains(t, bar, "o open")
	assert.Equal(t, 80, lipgloss.Width(bar))

	bar = l.RenderStatusBar(&notify.Toast{Kind: notify.ToastError, Message: "Failed to load notifications"}, "o open")
	assert.Contains(t, bar, "Failed to load notifications")
	assert.Contains(t, bar, "o open")
}
