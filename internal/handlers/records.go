package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v3"

	"github.com/pimalab/pimadash/internal/dataset"
)

// HandleRecords pages through the patient rows. Sorting accepts any column
// and filtering accepts outcome or an exact column name.
func (h *Handlers) HandleRecords(c fiber.Ctx) error {
	t := h.registry.Table()

	defaultSort := dataset.ColumnPatientID
	params := ValidateSortColumn(ParsePaginationParams(c, defaultSort), t.Columns())

	rows := matchingRows(t, buildRecordFilters(c, t))
	if params.SortBy != "" {
		sortRows(t, rows, params.SortBy, params.SortOrder)
	}

	total := int64(len(rows))
	start := min(max(params.Offset, 0), len(rows))
	end := min(start+params.Per, len(rows))

	data := make([]Record, 0, end-start)
	for _, i := range rows[start:end] {
		data = append(data, Record(t.Record(i)))
	}

	return c.JSON(NewPaginatedResponse(data, params, total))
}

func sortRows(t *dataset.Table, rows []int, column string, order SortDirection) {
	sort.SliceStable(rows, func(a, b int) bool {
		va, _ := t.Value(rows[a], column)
		vb, _ := t.Value(rows[b], column)
		if order == SortDesc {
			return dataset.Less(vb, va)
		}
		return dataset.Less(va, vb)
	})
}
