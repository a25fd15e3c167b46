package handlers

import (
	"bytes"

	"github.com/gofiber/fiber/v3"

	"github.com/pimalab/pimadash/internal/chart"
	"github.com/pimalab/pimadash/internal/logging"
)

// HandleSessionChart renders the session's current figure for a widget.
func (h *Handlers) HandleSessionChart(c fiber.Ctx) error {
	s, ok := h.registry.Lookup(c.Params("session_id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	fig, ok := s.Figure(c.Params("widget_id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{
			"error": "Widget not found",
		})
	}
	return sendSVG(c, fig)
}

// HandleChart renders a widget without a session. The x and y query
// parameters fill the widget's selectors in order; a missing or unusable
// selection renders the initial figure.
func (h *Handlers) HandleChart(c fiber.Ctx) error {
	widgetID := c.Params("widget_id")
	spec, ok := h.registry.Layout().Find(widgetID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{
			"error": "Widget not found",
		})
	}

	overrides := make(map[string]string, len(spec.Selectors))
	for i, key := range []string{"x", "y"} {
		if i < len(spec.Selectors) {
			overrides[spec.Selectors[i]] = c.Query(key)
		}
	}

	fig, _ := h.registry.Initial().Preview(widgetID, overrides)
	return sendSVG(c, fig)
}

func sendSVG(c fiber.Ctx, fig chart.Figure) error {
	var buf bytes.Buffer
	if err := chart.RenderSVG(fig, &buf); err != nil {
		logging.L().Warn("failed to render chart", "title", fig.Title, "error", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to render chart",
		})
	}

	c.Set("Content-Type", "image/svg+xml")
	c.Set("Cache-Control", "no-store")
	return c.Send(buf.Bytes())
}
