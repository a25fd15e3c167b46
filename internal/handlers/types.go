package handlers

import (
	"github.com/pimalab/pimadash/internal/chart"
	"github.com/pimalab/pimadash/internal/dashboard"
	"github.com/pimalab/pimadash/internal/dataset"
)

// EventResponse is returned by the session event endpoint.
type EventResponse struct {
	Updated bool          `json:"updated"`
	Widget  string        `json:"widget"`
	Figure  *chart.Figure `json:"figure"`
}

// WidgetsResponse lists the initial dashboard.
type WidgetsResponse struct {
	Widgets    []dashboard.Widget `json:"widgets"`
	Selections map[string]string  `json:"selections"`
	Options    []string           `json:"options"`
}

// Record is one patient row keyed by column.
type Record map[string]dataset.Value

// PageData feeds the dashboard template.
type PageData struct {
	Title     string
	Version   string
	SessionID string
	Rows      int
	Means     []MeanCard
	Widgets   []WidgetCard
}

// MeanCard is one of the summary cards above the charts.
type MeanCard struct {
	Label string
	Value float64
}

// WidgetCard is a chart card with its selector dropdowns.
type WidgetCard struct {
	ID        string
	Title     string
	Kind      chart.Kind
	ChartURL  string
	Selectors []SelectorControl
}

// SelectorControl is one dropdown bound to a widget.
type SelectorControl struct {
	ID      string
	Label   string
	Value   string
	Options []string
}
