// Package chart builds renderer-neutral figures from the patient table and
// renders them to SVG.
package chart

import "errors"

// Kind is the chart type of a figure.
type Kind string

const (
	KindHistogram Kind = "histogram"
	KindScatter   Kind = "scatter"
	KindBox       Kind = "box"
	KindBar       Kind = "bar"
	KindPie       Kind = "pie"
	KindConfusion Kind = "confusion"
)

// PlaceholderTitle is shown on every chart when there is nothing to plot.
const PlaceholderTitle = "No data available"

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrNotNumeric    = errors.New("column is not numeric")
	ErrNoData        = errors.New("no data to plot")
	ErrNotBinary     = errors.New("outcome is not binary")
)

// Point is one plotted value. Label carries the category or bin range.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

// BoxStats is the five-number summary of one box.
type BoxStats struct {
	N            int       `json:"n"`
	Min          float64   `json:"min"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Max          float64   `json:"max"`
	Mean         float64   `json:"mean"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []float64 `json:"outliers"`
}

// Series is one trace of a figure. Exactly one of Points, Box or Matrix is set.
type Series struct {
	Name   string    `json:"name"`
	Points []Point   `json:"points,omitempty"`
	Box    *BoxStats `json:"box,omitempty"`
	Matrix [][]int   `json:"matrix,omitempty"`
	Labels []string  `json:"labels,omitempty"`
}

// Figure is a plain value; two figures built from the same inputs are deeply equal.
type Figure struct {
	Kind        Kind               `json:"kind"`
	Title       string             `json:"title"`
	XAxis       string             `json:"x_axis,omitempty"`
	YAxis       string             `json:"y_axis,omitempty"`
	Series      []Series           `json:"series"`
	Stats       map[string]float64 `json:"stats,omitempty"`
	Placeholder bool               `json:"placeholder,omitempty"`
}

// Placeholder returns the empty figure of the given kind.
func Placeholder(kind Kind) Figure {
	return Figure{
		Kind:        kind,
		Title:       PlaceholderTitle,
		Series:      []Series{},
		Placeholder: true,
	}
}
