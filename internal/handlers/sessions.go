package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/pimalab/pimadash/internal/dashboard"
)

// HandleCreateSession starts a dashboard session for a client that does not
// load the HTML page.
func (h *Handlers) HandleCreateSession(c fiber.Ctx) error {
	s := h.registry.Create()
	return c.Status(201).JSON(s.Snapshot())
}

func (h *Handlers) HandleGetSession(c fiber.Ctx) error {
	s, ok := h.registry.Lookup(c.Params("session_id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	return c.JSON(s.Snapshot())
}

// HandleSessionEvent applies a selector change. A change that does not
// produce a new figure answers updated=false and no figure.
func (h *Handlers) HandleSessionEvent(c fiber.Ctx) error {
	s, ok := h.registry.Lookup(c.Params("session_id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	var ev dashboard.Event
	if err := c.Bind().JSON(&ev); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	ev.Selector = strings.TrimSpace(ev.Selector)
	if ev.Selector == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "selector is required",
		})
	}

	update, updated := s.Apply(ev)
	if !updated {
		return c.JSON(EventResponse{Updated: false})
	}
	return c.JSON(EventResponse{
		Updated: true,
		Widget:  update.Widget,
		Figure:  &update.Figure,
	})
}
