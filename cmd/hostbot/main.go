package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hoardbot/ghostbot/internal/config"
	"github.com/hoardbot/ghostbot/internal/db"
	"github.com/hoardbot/ghostbot/internal/host"
	"github.com/hoardbot/ghostbot/internal/realm"
)

const defaultConfigPath = "default.cfg"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := defaultConfigPath
	if p := os.Getenv("GHOSTBOT_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("hostbot starting", "log_level", cfg.LogLevel, "hostport", cfg.HostPort)

	if err := db.RunMigrations(ctx, cfg.Database.Primary.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	primary, err := db.NewPostgresStore(ctx, cfg.Database.Primary.DSN())
	if err != nil {
		return fmt.Errorf("connecting to primary database: %w", err)
	}

	local, err := db.NewLocalStore(ctx, cfg.Database.Local.DSN())
	if err != nil {
		primary.Close()
		return fmt.Errorf("connecting to local database: %w", err)
	}

	database := db.New(primary, local)
	defer database.Shutdown(host.CallablesDrainTimeout)

	realms := make([]*realm.Connection, 0, len(cfg.Realms))
	for _, rc := range cfg.Realms {
		realms = append(realms, realm.NewConnection(rc))
	}

	h := host.New(cfg, database, realms)

	g, gctx := errgroup.WithContext(ctx)

	for i, rc := range cfg.Realms {
		conn := realms[i]
		server := rc.Server
		g.Go(func() error {
			slog.Info("starting realm connection", "server", server)
			conn.Run(gctx, noopHandshake)
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("starting host reactor", "port", cfg.HostPort)
		return h.Run(gctx)
	})

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return fmt.Errorf("subsystem error: %w", err)
	}
	return nil
}

// noopHandshake is the default Handshake for a realm connection: it
// leaves the socket open and idle until ctx is cancelled or the realm
// drops it. The chat/login protocol itself is out of scope (spec.md §1);
// a deployment wanting real realm connectivity supplies its own
// realm.Handshake here.
func noopHandshake(ctx context.Context, conn net.Conn) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	return err
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
