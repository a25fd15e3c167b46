package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/pimalab/pimadash/internal/dataset"
)

type recordFilter struct {
	column string
	value  dataset.Value
}

// buildRecordFilters reads equality filters from the query string. The
// outcome parameter filters on Outcome; any exact column name filters on
// that column.
func buildRecordFilters(c fiber.Ctx, t *dataset.Table) []recordFilter {
	var filters []recordFilter

	addFilter := func(column, raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || !t.Has(column) {
			return
		}
		filters = append(filters, recordFilter{column: column, value: dataset.Parse(raw)})
	}

	addFilter(dataset.ColumnOutcome, c.Query("outcome"))
	for _, column := range t.Columns() {
		addFilter(column, c.Query(column))
	}
	return filters
}

// matchingRows returns the indexes of rows passing every filter.
func matchingRows(t *dataset.Table, filters []recordFilter) []int {
	rows := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		keep := true
		for _, f := range filters {
			v, _ := t.Value(i, f.column)
			if v.String() != f.value.String() || v.Kind != f.value.Kind {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, i)
		}
	}
	return rows
}
