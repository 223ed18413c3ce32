package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhle/laundry-notifications/internal/notify"
	"github.com/nhle/laundry-notifications/internal/page"
)

// runWatch polls without a terminal UI. Every render is logged and, with
// --html-out, the page with the rendered dropdown is written to a file.
func runWatch(ctx context.Context, args []string) error {
	fs := newFlagSet("watch")
	fs.String("html-out", "", "write the rendered page here after every change")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	e, err := setup(fs, args, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	conn, err := e.connector.Connect(ctx)
	if err != nil {
		return err
	}

	surface := page.NewSurface(conn.Page, e.cfg.Surface, e.cfg.Display.ToastDuration())
	if out, _ := fs.GetString("html-out"); out != "" {
		surface.OnChange(func(doc *page.Document) {
			if err := writeAtomic(out, doc); err != nil {
				e.logger.Error("writing page failed", "path", out, "error", err)
			}
		})
	}

	registry := prometheus.NewRegistry()
	metrics := notify.NewMetrics(registry)
	if addr, _ := fs.GetString("metrics-addr"); addr != "" {
		go serveMetrics(ctx, addr, registry, e)
	}

	client := notify.New(notify.Options{
		API:          conn.API,
		Surface:      notify.Surfaces{surface, notify.LogSurface{Logger: e.logger}},
		Page:         conn.Page,
		Elements:     e.cfg.Surface,
		PollInterval: e.cfg.Server.PollInterval(),
		Logger:       e.logger,
		Metrics:      metrics,
	})
	if !client.Active() {
		return fmt.Errorf("%s has no notifications UI", e.cfg.Server.PagePath)
	}

	e.logger.Info("watching notifications",
		"base_url", conn.API.BaseURL(),
		"interval", e.cfg.Server.PollInterval())
	client.Start(ctx)

	<-ctx.Done()
	client.Stop()
	client.Wait()
	return nil
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, e *env) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	e.logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.logger.Error("metrics server failed", "addr", addr, "error", err)
	}
}

// writeAtomic replaces path with the rendered document.
func writeAtomic(path string, doc *page.Document) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".notify-*.html")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := doc.Render(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
