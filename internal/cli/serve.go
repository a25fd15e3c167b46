package cli

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/v3/websocket"
	fiberzap "github.com/gofiber/contrib/v3/zap"
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pimalab/pimadash/internal/aggregate"
	"github.com/pimalab/pimadash/internal/dashboard"
	"github.com/pimalab/pimadash/internal/handlers"
	"github.com/pimalab/pimadash/internal/logging"
	"github.com/pimalab/pimadash/internal/realtime"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the dashboard server.

The serve command loads the patient records once, then serves the dashboard
page, the chart and session API, and the realtime channel on /ws. When the
database cannot be reached the dashboard still starts and every chart shows
"No data available".

Environment variables:
  DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_TABLE
  DATABASE_URL          Connection URL, overrides the DB_* settings
  PORT                  Server port (default: 8050)
  SESSION_IDLE_TIMEOUT  Idle time before a session is dropped (default: 30m)

Example:
  DB_USER=analyst pimadash serve --password-prompt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(commandContext(cmd))
	},
}

// runServe runs the dashboard until the process is interrupted.
func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	page, err := parseDashboardTemplate(DashboardTemplate)
	if err != nil {
		return err
	}

	layout := dashboard.DefaultLayout()
	if err := layout.Validate(); err != nil {
		return fmt.Errorf("invalid dashboard layout: %w", err)
	}

	table := loadTable(ctx, cfg.Database)
	if table.IsEmpty() {
		logging.L().Warn("no patient records loaded, charts will show placeholders")
	}
	registry := dashboard.NewRegistry(table, aggregate.Summarize(table), layout)

	janitor := dashboard.NewJanitor(registry, cfg.SessionIdleTimeout)
	janitor.Start()

	hub := realtime.NewHub()
	app := newApp(registry, hub, page)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := "0.0.0.0:" + cfg.Port
		logging.L().Info("pimadash starting", "addr", addr, "records", table.Len(), "version", Version)
		return app.Listen(addr, createListenConfig())
	})

	g.Go(func() error {
		<-gctx.Done()
		logging.L().Info("shutting down", "sessions", registry.Len(), "clients", hub.GetClientCount())
		hub.Shutdown()
		janitor.Stop()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

func parseDashboardTemplate(src []byte) (*template.Template, error) {
	if len(src) == 0 {
		return nil, errors.New("dashboard template is missing")
	}
	page, err := template.New("dashboard").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}
	return page, nil
}

// newApp builds the fiber app with every route mounted.
func newApp(registry *dashboard.Registry, hub *realtime.Hub, page *template.Template) *fiber.App {
	app := fiber.New(createFiberConfig("pimadash"))

	// Middleware
	app.Use(recoverer.New())
	app.Use(fiberzap.New(fiberzap.Config{
		Logger: logging.Zap(),
	}))

	// Add version header to all responses
	app.Use(func(c fiber.Ctx) error {
		c.Set("X-Pimadash-Version", Version)
		return c.Next()
	})

	handlers.New(registry, page, Version).Mount(app)

	// Realtime channel
	app.Use("/ws", func(c fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", hub.Handler(registry))

	return app
}
