// Package session signs the notifications client in to the laundry web
// application and loads the page that hosts the notifications UI.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"

	"github.com/nhle/laundry-notifications/internal/api"
	"github.com/nhle/laundry-notifications/internal/credential"
	"github.com/nhle/laundry-notifications/internal/logging"
	"github.com/nhle/laundry-notifications/internal/model"
	"github.com/nhle/laundry-notifications/internal/page"
)

// ErrLoginRequired is returned when no usable session or stored password
// exists for the configured server.
var ErrLoginRequired = errors.New("login required")

// Credentials persists sessions and passwords per server.
// *credential.Store satisfies it.
type Credentials interface {
	Session(baseURL string) (string, error)
	SetSession(baseURL, value string) error
	DeleteSession(baseURL string) error
	Password(baseURL, username string) (string, error)
	SetPassword(baseURL, username, password string) error
}

var _ Credentials = (*credential.Store)(nil)

// Conn is an authenticated API client together with the page it loaded.
type Conn struct {
	API  *api.Client
	Page *page.Document
}

// Connector builds authenticated connections from configuration and
// stored credentials.
type Connector struct {
	surface model.SurfaceConfig
	creds   Credentials
	logger  *slog.Logger
	opts    []api.Option

	mu     gosync.Mutex
	server model.ServerConfig
}

// New creates a connector. creds may be nil, in which case every connect
// needs an explicit Login first.
func New(server model.ServerConfig, surface model.SurfaceConfig, creds Credentials, logger *slog.Logger, opts ...api.Option) *Connector {
	if logger == nil {
		logger = logging.Discard()
	}
	if surface.TokenField == "" {
		surface = model.DefaultSurfaceConfig()
	}
	return &Connector{
		server:  server,
		surface: surface,
		creds:   creds,
		logger:  logger,
		opts:    opts,
	}
}

// Server returns the server configuration currently in use, including
// changes made by Login.
func (c *Connector) Server() model.ServerConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.server
}

func (c *Connector) newClient(server model.ServerConfig) (*api.Client, error) {
	opts := append([]api.Option{
		api.WithTimeout(server.Timeout()),
		api.WithTokenHeader(c.surface.TokenHeader),
	}, c.opts...)
	return api.NewClient(server.BaseURL, opts...)
}

// Connect restores the stored session and loads the notifications page.
// If the session is missing or expired and a password is stored, it logs
// in again once. Otherwise it returns ErrLoginRequired.
func (c *Connector) Connect(ctx context.Context) (*Conn, error) {
	server := c.Server()

	client, err := c.newClient(server)
	if err != nil {
		return nil, err
	}

	if c.creds != nil {
		if s, err := c.creds.Session(server.BaseURL); err == nil && s != "" {
			client.SetSession(s)
		}
	}

	doc, err := loadPage(ctx, client, server.PagePath)
	if err == nil {
		return &Conn{API: client, Page: doc}, nil
	}
	if !needsLogin(err) {
		return nil, err
	}

	password := ""
	if c.creds != nil && server.Username != "" {
		password, _ = c.creds.Password(server.BaseURL, server.Username)
	}
	if password == "" {
		return nil, fmt.Errorf("%w for %s", ErrLoginRequired, server.BaseURL)
	}

	c.logger.Info("session expired, logging in again",
		"base_url", server.BaseURL, "username", server.Username)
	if err := c.signIn(ctx, client, server, server.Username, password); err != nil {
		return nil, err
	}

	doc, err = loadPage(ctx, client, server.PagePath)
	if err != nil {
		return nil, err
	}
	return &Conn{API: client, Page: doc}, nil
}

// Login signs in to baseURL with username and password, stores the
// resulting session and the password, and makes baseURL and username the
// connector's server. An empty baseURL keeps the current one.
func (c *Connector) Login(ctx context.Context, baseURL, username, password string) error {
	server := c.Server()
	if baseURL != "" {
		server.BaseURL = baseURL
	}
	server.Username = username

	client, err := c.newClient(server)
	if err != nil {
		return err
	}
	if err := c.signIn(ctx, client, server, username, password); err != nil {
		return err
	}

	if c.creds != nil {
		if err := c.creds.SetPassword(server.BaseURL, username, password); err != nil {
			c.logger.Warn("storing password failed", "error", err)
		}
	}

	c.mu.Lock()
	c.server = server
	c.mu.Unlock()
	return nil
}

// Logout ends the session on the server and forgets the stored session.
// conn may be nil when there is nothing to end remotely.
func (c *Connector) Logout(ctx context.Context, conn *Conn) error {
	server := c.Server()

	var err error
	if conn != nil {
		err = conn.API.Logout(ctx, conn.Page.FormValue(c.surface.TokenField))
	}
	if c.creds != nil {
		if derr := c.creds.DeleteSession(server.BaseURL); derr != nil {
			err = errors.Join(err, derr)
		}
	}
	return err
}

func (c *Connector) signIn(ctx context.Context, client *api.Client, server model.ServerConfig, username, password string) error {
	form, err := loadPage(ctx, client, api.LoginPath)
	if err != nil {
		return fmt.Errorf("loading login form: %w", err)
	}

	session, err := client.Login(ctx, username, password, form.FormValue(c.surface.TokenField))
	if err != nil {
		if api.IsAuthError(err) {
			return fmt.Errorf("%w: %v", ErrLoginRequired, err)
		}
		return err
	}

	if c.creds != nil {
		if err := c.creds.SetSession(server.BaseURL, session); err != nil {
			c.logger.Warn("storing session failed", "error", err)
		}
	}
	c.logger.Info("logged in", "base_url", server.BaseURL, "username", username)
	return nil
}

func loadPage(ctx context.Context, client *api.Client, path string) (*page.Document, error) {
	body, err := client.FetchPage(ctx, path)
	if err != nil {
		return nil, err
	}
	return page.Parse(bytes.NewReader(body))
}

// needsLogin reports whether a page request failed because the session is
// missing or expired.
func needsLogin(err error) bool {
	return api.IsRedirect(err) || api.IsAuthError(err)
}
