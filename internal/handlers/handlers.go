package handlers

import (
	"html/template"

	"github.com/gofiber/fiber/v3"

	"github.com/pimalab/pimadash/internal/dashboard"
)

// Handlers serves the dashboard over HTTP. The registry's table is loaded
// once at startup and never changes.
type Handlers struct {
	registry *dashboard.Registry
	page     *template.Template
	version  string
}

func New(registry *dashboard.Registry, page *template.Template, version string) *Handlers {
	return &Handlers{
		registry: registry,
		page:     page,
		version:  version,
	}
}

// Mount registers every HTTP route on app. The websocket route is mounted
// separately because it needs the realtime hub.
func (h *Handlers) Mount(app *fiber.App) {
	app.Get("/", h.HandleIndex)
	app.Get("/health", h.HandleHealth)
	app.Get("/up", h.HandleUp) // Docker health check
	app.Get("/api/version", h.HandleVersion)

	api := app.Group("/api")
	api.Get("/summary", h.HandleSummary)
	api.Get("/widgets", h.HandleWidgets)
	api.Get("/charts/:widget_id", h.HandleChart)
	api.Get("/records", h.HandleRecords)
	api.Get("/export.xlsx", h.HandleExport)

	api.Post("/sessions", h.HandleCreateSession)
	api.Get("/sessions/:session_id", h.HandleGetSession)
	api.Post("/sessions/:session_id/events", h.HandleSessionEvent)
	api.Get("/sessions/:session_id/charts/:widget_id", h.HandleSessionChart)
}
