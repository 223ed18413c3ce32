package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/laundry-notifications/internal/api"
	"github.com/nhle/laundry-notifications/internal/keys"
	"github.com/nhle/laundry-notifications/internal/logging"
	"github.com/nhle/laundry-notifications/internal/model"
	"github.com/nhle/laundry-notifications/internal/notify"
	"github.com/nhle/laundry-notifications/internal/session"
	"github.com/nhle/laundry-notifications/internal/ui"
	"github.com/nhle/laundry-notifications/internal/ui/command"
	"github.com/nhle/laundry-notifications/internal/ui/dropdown"
	helpview "github.com/nhle/laundry-notifications/internal/ui/help"
	"github.com/nhle/laundry-notifications/internal/ui/login"
)

const appTitle = "Laundry Pal"

// pulseDuration matches the badge animation of the web page.
const pulseDuration = time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewMain ViewState = iota
	ViewHelp
	ViewCommand
	ViewLogin
)

// connectedMsg is sent when a connection attempt finishes.
type connectedMsg struct {
	conn *session.Conn
	err  error
}

// loginDoneMsg is sent when a login attempt finishes.
type loginDoneMsg struct {
	err error
}

// logoutDoneMsg is sent when the session has been ended.
type logoutDoneMsg struct {
	err error
}

// actionDoneMsg is sent when a refresh or acknowledgement returns. Its
// visible outcome already arrived through the surface.
type actionDoneMsg struct {
	err error
}

type toastExpiredMsg struct {
	id int
}

type pulseDoneMsg struct{}

type toastEntry struct {
	id    int
	toast notify.Toast
}

// Options configures the root model.
type Options struct {
	Config *model.AppConfig

	// ConfigPath receives the server settings after an interactive login.
	// Empty means they are not persisted.
	ConfigPath string

	Connector *session.Connector
	Logger    *slog.Logger
	Metrics   *notify.Metrics
}

// Model is the root Bubble Tea model that manages view routing, layout and
// the notifications client.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	dropdown     dropdown.Model
	helpView     helpview.Model
	commandView  command.Model
	loginView    login.Model

	cfg        *model.AppConfig
	configPath string
	connector  *session.Connector
	logger     *slog.Logger
	metrics    *notify.Metrics

	ctx     context.Context
	cancel  context.CancelFunc
	surface *surface
	conn    *session.Conn
	client  *notify.Client

	badge     notify.Badge
	pulsing   bool
	toasts    []toastEntry
	nextToast int
	statusMsg string
	ready     bool
}

// New creates the root model. Nothing touches the network until Init.
func New(opts Options) Model {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	k := keys.DefaultKeyMap()
	ctx, cancel := context.WithCancel(context.Background())

	server := opts.Connector.Server()

	return Model{
		currentView: ViewMain,
		keys:        k,
		dropdown:    dropdown.New(k, 80, 22),
		helpView:    helpview.New(k, 80, 22),
		commandView: command.New(80, 22),
		loginView:   login.New(server.BaseURL, server.Username, 80, 22),
		cfg:         cfg,
		configPath:  opts.ConfigPath,
		connector:   opts.Connector,
		logger:      logger,
		metrics:     opts.Metrics,
		ctx:         ctx,
		cancel:      cancel,
		surface:     newSurface(),
	}
}

// Init starts listening to the surface and connects to the server.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.surface.wait(),
		m.connect(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.dropdown.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.loginView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case connectedMsg:
		return m.handleConnected(msg)

	case rowsMsg:
		cmd := m.dropdown.SetRows(msg.rows)
		return m, tea.Batch(cmd, m.surface.wait())

	case badgeMsg:
		m.badge = msg.badge
		cmds := []tea.Cmd{m.surface.wait()}
		if msg.badge.Pulse && msg.badge.Visible {
			m.pulsing = true
			cmds = append(cmds, tea.Tick(pulseDuration, func(time.Time) tea.Msg {
				return pulseDoneMsg{}
			}))
		}
		return m, tea.Batch(cmds...)

	case toastMsg:
		m.nextToast++
		id := m.nextToast
		m.toasts = append(m.toasts, toastEntry{id: id, toast: msg.toast})
		return m, tea.Batch(
			m.surface.wait(),
			tea.Tick(m.cfg.Display.ToastDuration(), func(time.Time) tea.Msg {
				return toastExpiredMsg{id: id}
			}),
		)

	case toastExpiredMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case pulseDoneMsg:
		m.pulsing = false
		return m, nil

	case actionDoneMsg:
		if api.IsAuthError(msg.err) || api.IsRedirect(msg.err) {
			m.statusMsg = "Session expired. Press L to log in."
		}
		return m, nil

	case dropdown.MarkReadMsg:
		return m, m.action(func(ctx context.Context, c *notify.Client) error {
			return c.MarkAsRead(ctx, msg.ID)
		})

	case login.SubmitMsg:
		return m, m.submitLogin(msg)

	case loginDoneMsg:
		if msg.err != nil {
			var cmd tea.Cmd
			m.loginView, cmd = m.loginView.Failed(msg.err)
			return m, cmd
		}
		m.saveServerConfig()
		m.statusMsg = ""
		m.currentView = ViewMain
		return m, m.connect()

	case login.CancelMsg:
		m.currentView = ViewMain
		if m.client == nil {
			m.statusMsg = "Not signed in. Press L to log in."
		}
		return m, nil

	case logoutDoneMsg:
		if msg.err != nil {
			m.logger.Warn("logout failed", "error", msg.err)
		}
		return m.openLogin()

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}
		if m.currentView == ViewLogin {
			if key.Matches(msg, m.keys.Back) {
				return m, func() tea.Msg { return login.CancelMsg{} }
			}
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.currentView == ViewMain {
				m.shutdown()
				return m, tea.Quit
			}
		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewCommand {
				break
			}
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil
		case key.Matches(msg, m.keys.Command):
			if m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()
		case key.Matches(msg, m.keys.Back):
			switch m.currentView {
			case ViewHelp, ViewCommand:
				m.currentView = m.previousView
				return m, nil
			case ViewMain:
				m.dropdown.Close()
				return m, nil
			}
		}

		if m.currentView == ViewMain {
			if next, cmd, ok := m.handleMainKeys(msg); ok {
				return next, cmd
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleMainKeys processes the notification keys of the main view.
func (m Model) handleMainKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Open):
		cmd := m.toggleDropdown()
		return m, cmd, true
	case key.Matches(msg, m.keys.MarkAll):
		return m, m.markAll(), true
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh(), true
	case key.Matches(msg, m.keys.Login):
		next, cmd := m.openLogin()
		return next, cmd, true
	}
	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewMain:
		m.dropdown, cmd = m.dropdown.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	}
	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(ui.Header{
		Title:   appTitle,
		Badge:   m.badge,
		Pulsing: m.pulsing,
		Sync:    m.syncState(),
	})
	statusBar := m.layout.RenderStatusBar(m.currentToast(), m.keyHints())

	return m.layout.Frame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewMain:
		return m.dropdown.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewLogin:
		return m.loginView.View()
	default:
		return ""
	}
}

// currentToast returns the newest live toast, or nil.
func (m Model) currentToast() *notify.Toast {
	if len(m.toasts) == 0 {
		return nil
	}
	t := m.toasts[len(m.toasts)-1].toast
	return &t
}

// syncState reports the polling state for the header.
func (m Model) syncState() ui.SyncState {
	if m.client == nil {
		return ui.SyncState{}
	}
	return ui.SyncState{
		Connected: true,
		Active:    m.client.Active(),
		Status:    m.client.Status(),
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMsg != "" && m.currentView == ViewMain {
		return m.statusMsg
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewLogin:
		return "enter next | esc cancel"
	default:
		if m.dropdown.Open() {
			return "x mark read | A mark all | r refresh | esc close | q quit"
		}
		return "o open | A mark all | r refresh | ? help | q quit"
	}
}

// connect returns a command that signs in with stored credentials and
// loads the notifications page.
func (m Model) connect() tea.Cmd {
	ctx, c := m.ctx, m.connector
	return func() tea.Msg {
		conn, err := c.Connect(ctx)
		return connectedMsg{conn: conn, err: err}
	}
}

func (m Model) handleConnected(msg connectedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, session.ErrLoginRequired) {
			return m.openLogin()
		}
		m.logger.Error("connecting failed", "error", msg.err)
		m.statusMsg = fmt.Sprintf("Cannot reach server: %v (r to retry)", msg.err)
		return m, nil
	}

	m.stopClient()
	m.conn = msg.conn
	m.client = notify.New(notify.Options{
		API:          msg.conn.API,
		Surface:      m.surface,
		Page:         msg.conn.Page,
		Elements:     m.cfg.Surface,
		PollInterval: m.cfg.Server.PollInterval(),
		Logger:       m.logger,
		Metrics:      m.metrics,
	})
	if !m.client.Active() {
		m.statusMsg = "This page has no notifications."
		return m, nil
	}

	m.statusMsg = ""
	m.client.Start(m.ctx)
	return m, nil
}

func (m Model) openLogin() (tea.Model, tea.Cmd) {
	server := m.connector.Server()
	m.loginView = login.New(server.BaseURL, server.Username,
		m.layout.ContentWidth(), m.layout.ContentHeight())
	m.currentView = ViewLogin
	return m, m.loginView.Init()
}

func (m Model) submitLogin(msg login.SubmitMsg) tea.Cmd {
	ctx, c := m.ctx, m.connector
	return func() tea.Msg {
		return loginDoneMsg{err: c.Login(ctx, msg.BaseURL, msg.Username, msg.Password)}
	}
}

// saveServerConfig persists the server chosen at login.
func (m Model) saveServerConfig() {
	m.cfg.Server = m.connector.Server()
	if m.configPath == "" {
		return
	}
	if err := model.SaveConfig(m.configPath, m.cfg); err != nil {
		m.logger.Warn("saving config failed", "path", m.configPath, "error", err)
	}
}

// toggleDropdown opens or closes the list. Opening triggers one extra
// refresh shortly after.
func (m *Model) toggleDropdown() tea.Cmd {
	if m.dropdown.Toggle() && m.client != nil {
		m.client.OpenDropdown(m.ctx)
	}
	return nil
}

func (m Model) markAll() tea.Cmd {
	return m.action(func(ctx context.Context, c *notify.Client) error {
		return c.MarkAllAsRead(ctx)
	})
}

func (m Model) refresh() tea.Cmd {
	if m.client == nil {
		return m.connect()
	}
	return m.action(func(ctx context.Context, c *notify.Client) error {
		return c.Refresh(ctx)
	})
}

// action runs fn against the client off the UI goroutine.
func (m Model) action(fn func(context.Context, *notify.Client) error) tea.Cmd {
	c := m.client
	if c == nil || !c.Active() {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{err: fn(ctx, c)}
	}
}

func (m Model) logout() tea.Cmd {
	ctx, c, conn := m.ctx, m.connector, m.conn
	return func() tea.Msg {
		return logoutDoneMsg{err: c.Logout(ctx, conn)}
	}
}

// executeCommand handles a command from the command palette.
func (m Model) executeCommand(cmd command.CommandMsg) (tea.Model, tea.Cmd) {
	switch cmd {
	case command.Refresh:
		return m, m.refresh()
	case command.ReadAll:
		return m, m.markAll()
	case command.Open:
		cmd := m.toggleDropdown()
		return m, cmd
	case command.Login:
		return m.openLogin()
	case command.Logout:
		m.stopClient()
		m.client = nil
		m.badge = notify.Badge{}
		m.dropdown.SetRows(nil)
		m.dropdown.Close()
		cmd := m.logout()
		m.conn = nil
		return m, cmd
	case command.Quit:
		m.shutdown()
		return m, tea.Quit
	default:
		m.statusMsg = fmt.Sprintf("Unknown command %q", string(cmd))
		return m, nil
	}
}

func (m Model) stopClient() {
	if m.client != nil {
		m.client.Stop()
	}
}

// shutdown stops polling and abandons requests in flight.
func (m Model) shutdown() {
	m.stopClient()
	m.cancel()
}
