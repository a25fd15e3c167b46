package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// HandleSummary returns the aggregate views of the table.
func (h *Handlers) HandleSummary(c fiber.Ctx) error {
	return c.JSON(h.registry.Summary())
}

// HandleWidgets returns the initial figure of every widget.
func (h *Handlers) HandleWidgets(c fiber.Ctx) error {
	initial := h.registry.Initial()
	options := initial.Options()
	if options == nil {
		options = []string{}
	}
	return c.JSON(WidgetsResponse{
		Widgets:    initial.Widgets(),
		Selections: initial.Selections(),
		Options:    options,
	})
}
