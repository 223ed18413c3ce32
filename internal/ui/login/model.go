package login

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/laundry-notifications/internal/theme"
)

// Mode is the current state of the login view.
type Mode int

const (
	ModeForm       Mode = iota // Editing the form
	ModeSubmitting             // Waiting for the server
)

// SubmitMsg carries the completed form.
type SubmitMsg struct {
	BaseURL  string
	Username string
	Password string
}

// CancelMsg signals the form was aborted.
type CancelMsg struct{}

type values struct {
	baseURL  string
	username string
	password string
}

// Model is the login form.
type Model struct {
	mode    Mode
	form    *huh.Form
	spinner spinner.Model

	// values is shared by every copy of the model; the form writes to it.
	values *values
	errMsg string

	width  int
	height int
}

// New creates a login form prefilled with baseURL and username.
func New(baseURL, username string, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		spinner: sp,
		values:  &values{baseURL: baseURL, username: username},
		width:   width,
		height:  height,
	}
	m.form = m.buildForm()
	return m
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server").
				Description("Laundry web application URL").
				Placeholder("http://localhost:8000").
				Value(&m.values.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Username").
				Value(&m.values.username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.values.password).
				Validate(validateRequired("Password")),
		),
	).WithWidth(m.formWidth())
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Failed returns the form to editing with errMsg shown above it. The
// password is cleared.
func (m Model) Failed(err error) (Model, tea.Cmd) {
	m.mode = ModeForm
	m.errMsg = err.Error()
	m.values.password = ""
	m.form = m.buildForm()
	return m, m.form.Init()
}

// Update handles messages for the login view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.mode == ModeSubmitting {
		if msg, ok := msg.(spinner.TickMsg); ok {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.mode = ModeSubmitting
		m.errMsg = ""
		submit := SubmitMsg{
			BaseURL:  strings.TrimRight(strings.TrimSpace(m.values.baseURL), "/"),
			Username: strings.TrimSpace(m.values.username),
			Password: m.values.password,
		}
		return m, tea.Batch(
			m.spinner.Tick,
			func() tea.Msg { return submit },
		)
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the login form.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	if m.mode == ModeSubmitting {
		return style.Render(fmt.Sprintf("%s Signing in to %s...", m.spinner.View(), m.values.baseURL))
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Sign in")

	parts := []string{title}
	if m.errMsg != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.errMsg))
	}
	parts = append(parts, m.form.View())

	return style.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., http://localhost:8000)")
	}
	return nil
}
