package dashboard

import (
	"fmt"

	"github.com/pimalab/pimadash/internal/chart"
	"github.com/pimalab/pimadash/internal/dataset"
)

// Source says where a widget's data comes from.
type Source string

const (
	SourceTable           Source = "table"
	SourceOutcome         Source = "outcome"
	SourceZeros           Source = "zeros"
	SourceAgeDistribution Source = "age_distribution"
)

// Selector IDs of the default layout.
const (
	SelectorHistogramX       = "histogram-x"
	SelectorScatterX         = "scatter-x"
	SelectorScatterY         = "scatter-y"
	SelectorBoxplotX         = "boxplot-x"
	SelectorConfusionFeature = "confusion-feature"
)

// WidgetSpec declares one chart card. Selectors lists the selector IDs whose
// values feed the builder, in argument order. Widgets without selectors plot
// the fixed Columns or an aggregate Source.
type WidgetSpec struct {
	ID        string     `json:"id"`
	Kind      chart.Kind `json:"kind"`
	Title     string     `json:"title"`
	Source    Source     `json:"source"`
	Columns   []string   `json:"columns,omitempty"`
	GroupBy   string     `json:"group_by,omitempty"`
	Selectors []string   `json:"selectors,omitempty"`
}

// Layout is the ordered list of widgets on the page.
type Layout []WidgetSpec

// DefaultLayout is the diabetes dashboard.
func DefaultLayout() Layout {
	return Layout{
		{ID: "outcome-pie", Kind: chart.KindPie, Title: "Binary Feature Outcome", Source: SourceOutcome},
		{ID: "zero-counts", Kind: chart.KindBar, Title: "Number of Zeros per Feature", Source: SourceZeros},
		{
			ID: "age-by-outcome", Kind: chart.KindBox, Title: "Age Distribution by Diabetes Outcome",
			Source: SourceTable, Columns: []string{dataset.ColumnAge}, GroupBy: dataset.ColumnOutcome,
		},
		{ID: "age-distribution", Kind: chart.KindBar, Title: "Age Distribution", Source: SourceAgeDistribution},
		{
			ID: "histogram", Kind: chart.KindHistogram, Title: "Histogram",
			Source: SourceTable, Selectors: []string{SelectorHistogramX},
		},
		{
			ID: "scatter-chart", Kind: chart.KindScatter, Title: "Scatter Chart",
			Source: SourceTable, Selectors: []string{SelectorScatterX, SelectorScatterY},
		},
		{
			ID: "boxplot", Kind: chart.KindBox, Title: "Box Plot",
			Source: SourceTable, Selectors: []string{SelectorBoxplotX},
		},
		{
			ID: "confusion-matrix", Kind: chart.KindConfusion, Title: "Confusion Matrix",
			Source: SourceTable, Selectors: []string{SelectorConfusionFeature},
		},
	}
}

// Validate checks that widget IDs are unique and each selector drives one widget.
func (l Layout) Validate() error {
	widgets := make(map[string]bool, len(l))
	selectors := make(map[string]string)
	for _, spec := range l {
		if spec.ID == "" {
			return fmt.Errorf("widget without id")
		}
		if widgets[spec.ID] {
			return fmt.Errorf("duplicate widget %q", spec.ID)
		}
		widgets[spec.ID] = true

		if need := selectorArity(spec); need != len(spec.Selectors) && len(spec.Selectors) > 0 {
			return fmt.Errorf("widget %q: %s takes %d selectors, got %d", spec.ID, spec.Kind, need, len(spec.Selectors))
		}
		for _, sel := range spec.Selectors {
			if owner, taken := selectors[sel]; taken {
				return fmt.Errorf("selector %q bound to both %q and %q", sel, owner, spec.ID)
			}
			selectors[sel] = spec.ID
		}
	}
	return nil
}

// Find returns the spec with the given ID.
func (l Layout) Find(id string) (WidgetSpec, bool) {
	for _, spec := range l {
		if spec.ID == id {
			return spec, true
		}
	}
	return WidgetSpec{}, false
}

func selectorArity(spec WidgetSpec) int {
	if spec.Kind == chart.KindScatter {
		return 2
	}
	return 1
}
