package handlers

import (
	"github.com/gofiber/fiber/v3"
)

func (h *Handlers) HandleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "pimadash",
	})
}

// HandleUp answers the container health check. The table is in memory, so
// being able to answer at all is the signal.
func (h *Handlers) HandleUp(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"records": h.registry.Table().Len(),
	})
}

func (h *Handlers) HandleVersion(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version": h.version,
	})
}
