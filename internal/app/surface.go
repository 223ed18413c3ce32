package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/laundry-notifications/internal/notify"
)

// surfaceBuffer bounds how far the client may run ahead of the UI.
const surfaceBuffer = 64

// rowsMsg, badgeMsg and toastMsg carry client output into the Bubble Tea
// loop.
type rowsMsg struct{ rows []notify.Row }

type badgeMsg struct{ badge notify.Badge }

type toastMsg struct{ toast notify.Toast }

// surface is a notify.Surface that forwards every call as a tea.Msg.
type surface struct {
	ch chan tea.Msg
}

var _ notify.Surface = (*surface)(nil)

func newSurface() *surface {
	return &surface{ch: make(chan tea.Msg, surfaceBuffer)}
}

func (s *surface) ShowNotifications(rows []notify.Row) {
	s.send(rowsMsg{rows: append([]notify.Row(nil), rows...)})
}

func (s *surface) ShowBadge(b notify.Badge) { s.send(badgeMsg{badge: b}) }

func (s *surface) ShowToast(t notify.Toast) { s.send(toastMsg{toast: t}) }

// send never blocks; if the UI is not draining the channel the update is
// dropped.
func (s *surface) send(msg tea.Msg) {
	select {
	case s.ch <- msg:
	default:
	}
}

// wait returns a tea.Cmd that blocks until the next surface update. It
// must be re-issued after each message is handled.
func (s *surface) wait() tea.Cmd {
	ch := s.ch
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
