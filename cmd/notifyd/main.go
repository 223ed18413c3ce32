// Command notifyd is a development server for the laundry notifications
// endpoints, backed by SQLite.
//
// Usage:
//
//	notifyd serve                      serve the page and API
//	notifyd adduser <name> <password>  create a user
//	notifyd notify <name> <message>    add a notification for a user
//	notifyd order <name>               place a laundry order for a user
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/laundry-notifications/internal/logging"
	"github.com/nhle/laundry-notifications/internal/model"
	"github.com/nhle/laundry-notifications/internal/seed"
	"github.com/nhle/laundry-notifications/internal/server"
	"github.com/nhle/laundry-notifications/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "notifyd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: notifyd serve|adduser|notify|order [flags]")
	}
	name, args := args[0], args[1:]

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", model.DefaultConfigPath(), "config file")
	fs.String("addr", "", "listen address")
	fs.String("db", "", "SQLite database path")
	fs.String("seed-schedule", "", "cron schedule of demo notifications")
	fs.String("order-schedule", "", "cron schedule of order progress")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := open(fs)
	if err != nil {
		return err
	}
	defer d.Close()

	rest := fs.Args()
	switch name {
	case "serve":
		return d.serve(ctx)
	case "adduser":
		if len(rest) != 2 {
			return fmt.Errorf("usage: notifyd adduser <name> <password>")
		}
		u, err := d.store.CreateUser(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Printf("created user %s (%s)\n", u.Username, u.ID)
		return nil
	case "notify":
		if len(rest) != 2 {
			return fmt.Errorf("usage: notifyd notify <name> <message>")
		}
		u, err := d.store.GetUserByUsername(ctx, rest[0])
		if err != nil {
			return fmt.Errorf("looking up %s: %w", rest[0], err)
		}
		n, err := d.store.CreateNotification(ctx, u.ID, rest[1])
		if err != nil {
			return err
		}
		fmt.Printf("notification %s created for %s\n", n.ID, u.Username)
		return nil
	case "order":
		if len(rest) != 1 {
			return fmt.Errorf("usage: notifyd order <name>")
		}
		u, err := d.store.GetUserByUsername(ctx, rest[0])
		if err != nil {
			return fmt.Errorf("looking up %s: %w", rest[0], err)
		}
		o, err := d.store.CreateOrder(ctx, u.ID)
		if err != nil {
			return err
		}
		fmt.Printf("order #%s placed for %s\n", o.OrderNumber, u.Username)
		return nil
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

type daemon struct {
	cfg      *model.AppConfig
	logger   *slog.Logger
	closeLog io.Closer
	store    *store.SQLiteStore
}

func open(fs *pflag.FlagSet) (*daemon, error) {
	v := model.NewViper()
	bindings := map[string]string{
		"daemon.addr":           "addr",
		"daemon.db_path":        "db",
		"daemon.seed_schedule":  "seed-schedule",
		"daemon.order_schedule": "order-schedule",
		"log.level":             "log-level",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("binding --%s: %w", flag, err)
		}
	}

	configPath, _ := fs.GetString("config")
	cfg, err := model.LoadConfigWith(v, configPath)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.Open(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	st, err := store.NewSQLiteStore(cfg.Daemon.DBPath)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	return &daemon{cfg: cfg, logger: logger, closeLog: closer, store: st}, nil
}

func (d *daemon) Close() error {
	err := d.store.Close()
	_ = d.closeLog.Close()
	return err
}

// serve runs the HTTP server and the scheduled jobs until ctx ends.
func (d *daemon) serve(ctx context.Context) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := server.New(server.Options{
		Store:     d.store,
		Logger:    d.logger,
		Elements:  d.cfg.Surface,
		FeedLimit: d.cfg.Daemon.FeedLimit,
		Registry:  registry,
	})

	sched := seed.NewScheduler(d.logger)
	if err := sched.Add("demo-notifications", d.cfg.Daemon.SeedSchedule,
		seed.NewSeeder(d.store, d.logger).Run); err != nil {
		return err
	}
	if err := sched.Add("order-progress", d.cfg.Daemon.OrderSchedule,
		seed.NewProgressor(d.store, d.logger, time.Now).Run); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx, d.cfg.Daemon.Addr) })
	g.Go(func() error { return sched.Run(ctx) })
	return g.Wait()
}
