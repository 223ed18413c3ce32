// Package server is a development server for the notifications endpoints,
// backed by SQLite. It serves the page that hosts the dropdown, the JSON
// feed and the acknowledgement endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhle/laundry-notifications/internal/logging"
	"github.com/nhle/laundry-notifications/internal/model"
	"github.com/nhle/laundry-notifications/internal/store"
)

// Routes.
const (
	loginPath  = "/accounts/login/"
	logoutPath = "/accounts/logout/"
	pagePath   = "/notifications/"
	apiPrefix  = "/notifications/api/"
)

// Defaults.
const (
	DefaultFeedLimit  = 10
	DefaultSessionTTL = 14 * 24 * time.Hour
	shutdownTimeout   = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	Store    store.Store
	Logger   *slog.Logger
	Elements model.SurfaceConfig

	// FeedLimit caps the notifications returned by the feed.
	FeedLimit  int
	SessionTTL time.Duration

	// Registry receives the server metrics and is exposed on /metrics.
	// A fresh registry is created when nil.
	Registry *prometheus.Registry

	Now func() time.Time
}

// Server serves the notifications page and API.
type Server struct {
	store      store.Store
	logger     *slog.Logger
	elements   model.SurfaceConfig
	feedLimit  int
	sessionTTL time.Duration
	now        func() time.Time

	registry *prometheus.Registry
	metrics  *metrics
	engine   *gin.Engine
}

// New builds the server and its routes.
func New(opts Options) *Server {
	s := &Server{
		store:      opts.Store,
		logger:     opts.Logger,
		elements:   opts.Elements,
		feedLimit:  opts.FeedLimit,
		sessionTTL: opts.SessionTTL,
		now:        opts.Now,
		registry:   opts.Registry,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.elements.ListID == "" {
		s.elements = model.DefaultSurfaceConfig()
	}
	if s.feedLimit <= 0 {
		s.feedLimit = DefaultFeedLimit
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = DefaultSessionTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	app := gin.New()
	app.Use(recovery(s.logger), requestLogger(s.logger), s.metrics.middleware())
	app.SetHTMLTemplate(template.Must(template.New("").Parse(templates)))

	app.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	app.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, pagePath) })

	web := app.Group("/", csrf())
	{
		web.GET(loginPath, s.loginForm)
		web.POST(loginPath, s.login)
		web.POST(logoutPath, s.logout)
	}

	authed := app.Group("/", csrf(), s.requireLogin())
	{
		authed.GET(pagePath, s.notificationsPage)

		api := authed.Group(apiPrefix + "notifications")
		api.GET("/", s.notificationList)
		api.POST("/mark-all-read/", s.markAllRead)
		api.POST("/:id/read/", s.markAsRead)
	}

	return app
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("notifyd listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	s.logger.Info("notifyd stopped")
	return nil
}
