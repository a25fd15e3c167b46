package dataset

import (
	"errors"
	"fmt"
)

// Well-known column names of the patient table.
const (
	ColumnPatientID     = "PatientID"
	ColumnPregnancies   = "Pregnancies"
	ColumnGlucose       = "Glucose"
	ColumnBloodPressure = "BloodPressure"
	ColumnSkinThickness = "SkinThickness"
	ColumnInsulin       = "Insulin"
	ColumnBMI           = "BMI"
	ColumnPedigree      = "DiabetesPedigreeFunction"
	ColumnAge           = "Age"
	ColumnOutcome       = "Outcome"
)

// IdentifierColumns are never offered as chart features or zero-counted.
var IdentifierColumns = []string{ColumnPatientID}

var ErrRaggedRow = errors.New("row length does not match column count")

// Table is the immutable in-memory copy of the patient records.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// NewTable copies columns and rows into a new Table. Every row must have one
// value per column.
func NewTable(columns []string, rows [][]Value) (*Table, error) {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
		rows:    make([][]Value, 0, len(rows)),
	}
	for i, name := range t.columns {
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		t.index[name] = i
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrRaggedRow, i, len(row), len(columns))
		}
		t.rows = append(t.rows, append([]Value(nil), row...))
	}
	return t, nil
}

// MustTable is NewTable for literals known to be rectangular.
func MustTable(columns []string, rows [][]Value) *Table {
	t, err := NewTable(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{index: map[string]int{}}
}

func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the row count.
func (t *Table) Len() int {
	return len(t.rows)
}

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool {
	return len(t.rows) == 0
}

func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value {
	return append([]Value(nil), t.rows[i]...)
}

// Record returns row i keyed by column name.
func (t *Table) Record(i int) map[string]Value {
	record := make(map[string]Value, len(t.columns))
	for j, name := range t.columns {
		record[name] = t.rows[i][j]
	}
	return record
}

// Column returns a copy of every cell in column.
func (t *Table) Column(column string) ([]Value, bool) {
	j, ok := t.index[column]
	if !ok {
		return nil, false
	}
	values := make([]Value, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[j]
	}
	return values, true
}

// Value returns the cell at row i in column.
func (t *Table) Value(i int, column string) (Value, bool) {
	j, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.rows) {
		return Value{}, false
	}
	return t.rows[i][j], true
}

// Floats returns the numeric cells of column, skipping nulls and text.
func (t *Table) Floats(column string) ([]float64, bool) {
	j, ok := t.index[column]
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(t.rows))
	for _, row := range t.rows {
		if f, ok := row[j].Float(); ok {
			out = append(out, f)
		}
	}
	return out, true
}

// IsNumeric reports whether column has at least one number and no text.
func (t *Table) IsNumeric(column string) bool {
	j, ok := t.index[column]
	if !ok {
		return false
	}
	numbers := 0
	for _, row := range t.rows {
		switch row[j].Kind {
		case KindText:
			return false
		case KindNumber:
			numbers++
		}
	}
	return numbers > 0
}

// NumericColumns lists the numeric columns in table order, leaving out the
// identifier columns.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, name := range t.columns {
		if IsIdentifier(name) || !t.IsNumeric(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// IsIdentifier reports whether column is one of IdentifierColumns.
func IsIdentifier(column string) bool {
	for _, id := range IdentifierColumns {
		if column == id {
			return true
		}
	}
	return false
}
