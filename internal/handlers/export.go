package handlers

import (
	"bytes"

	"github.com/gofiber/fiber/v3"

	"github.com/pimalab/pimadash/internal/export"
	"github.com/pimalab/pimadash/internal/logging"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HandleExport downloads the table and summary as a workbook.
func (h *Handlers) HandleExport(c fiber.Ctx) error {
	var buf bytes.Buffer
	if err := export.Write(&buf, h.registry.Table(), h.registry.Summary()); err != nil {
		logging.L().Error("failed to build workbook", "error", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to export records",
		})
	}

	c.Set("Content-Type", xlsxContentType)
	c.Set("Content-Disposition", `attachment; filename="pima-diabetes.xlsx"`)
	return c.Send(buf.Bytes())
}
