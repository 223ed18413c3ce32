// Command notify keeps a terminal in step with the laundry notifications of
// the signed-in user.
//
// Usage:
//
//	notify [tui]            interactive dropdown (default)
//	notify login            sign in and store the session in the keyring
//	notify logout           end the session
//	notify watch            headless polling with structured logs
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nhle/laundry-notifications/internal/app"
	"github.com/nhle/laundry-notifications/internal/credential"
	"github.com/nhle/laundry-notifications/internal/logging"
	"github.com/nhle/laundry-notifications/internal/model"
	"github.com/nhle/laundry-notifications/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "notify:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	name := "tui"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		name, args = args[0], args[1:]
	}

	switch name {
	case "tui":
		return runTUI(ctx, args)
	case "login":
		return runLogin(ctx, args)
	case "logout":
		return runLogout(ctx, args)
	case "watch":
		return runWatch(ctx, args)
	default:
		return fmt.Errorf("unknown command %q (want tui, login, logout or watch)", name)
	}
}

// env is what every subcommand starts from.
type env struct {
	cfg        *model.AppConfig
	configPath string
	logger     *slog.Logger
	closeLog   io.Closer
	creds      *credential.Store
	connector  *session.Connector
}

func (e *env) Close() error {
	return e.closeLog.Close()
}

// newFlagSet returns the flags shared by every subcommand.
func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", model.DefaultConfigPath(), "config file")
	fs.String("base-url", "", "laundry web application URL")
	fs.StringP("username", "u", "", "username")
	fs.Int("interval", 0, "poll interval in seconds")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-file", "", "append logs to this file")
	return fs
}

// bindFlags maps flags onto config keys so that set flags win over the
// file and the environment.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"server.base_url":          "base-url",
		"server.username":          "username",
		"server.poll_interval_sec": "interval",
		"log.level":                "log-level",
		"log.file":                 "log-file",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// setup parses args, loads configuration and opens the keyring. logOut is
// where logs go when no log file is configured.
func setup(fs *pflag.FlagSet, args []string, logOut io.Writer) (*env, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := model.NewViper()
	if err := bindFlags(v, fs); err != nil {
		return nil, err
	}
	configPath, _ := fs.GetString("config")
	cfg, err := model.LoadConfigWith(v, configPath)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.Open(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	creds, err := credential.Open()
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	return &env{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		closeLog:   closer,
		creds:      creds,
		connector:  session.New(cfg.Server, cfg.Surface, creds, logger),
	}, nil
}

func runTUI(ctx context.Context, args []string) error {
	fs := newFlagSet("tui")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// The terminal belongs to Bubble Tea, so logs default to a file.
	logFile, _ := fs.GetString("log-file")
	if logFile == "" && os.Getenv(model.EnvPrefix+"_LOG_FILE") == "" {
		configPath, _ := fs.GetString("config")
		if err := fs.Set("log-file", filepath.Join(filepath.Dir(configPath), "notify.log")); err != nil {
			return err
		}
	}

	e, err := setup(fs, nil, io.Discard)
	if err != nil {
		return err
	}
	defer e.Close()

	m := app.New(app.Options{
		Config:     e.cfg,
		ConfigPath: e.configPath,
		Connector:  e.connector,
		Logger:     e.logger,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}

func runLogin(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	fs.Bool("password-stdin", false, "read the password from stdin")
	e, err := setup(fs, args, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	server := e.cfg.Server
	username := server.Username
	var password string

	fromStdin, _ := fs.GetBool("password-stdin")
	if fromStdin {
		if username == "" {
			return errors.New("--username is required with --password-stdin")
		}
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = trimNewline(string(b))
	} else {
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Username").Value(&username),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password),
		))
		if err := form.RunWithContext(ctx); err != nil {
			return fmt.Errorf("reading credentials: %w", err)
		}
	}

	if err := e.connector.Login(ctx, server.BaseURL, username, password); err != nil {
		return err
	}

	e.cfg.Server = e.connector.Server()
	if err := model.SaveConfig(e.configPath, e.cfg); err != nil {
		return err
	}
	fmt.Printf("Signed in to %s as %s\n", e.cfg.Server.BaseURL, username)
	return nil
}

func runLogout(ctx context.Context, args []string) error {
	e, err := setup(newFlagSet("logout"), args, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	conn, err := e.connector.Connect(ctx)
	if err != nil {
		e.logger.Debug("no live session to end", "error", err)
		conn = nil
	}
	return e.connector.Logout(ctx, conn)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
