package dashboard

import (
	"fmt"

	"github.com/pimalab/pimadash/internal/aggregate"
	"github.com/pimalab/pimadash/internal/chart"
	"github.com/pimalab/pimadash/internal/dataset"
	"github.com/pimalab/pimadash/internal/logging"
)

// State is the lifecycle of a widget's figure.
type State int

const (
	StateInitial State = iota
	StateUpdated
)

func (s State) String() string {
	if s == StateUpdated {
		return "updated"
	}
	return "initial"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event is a selector change coming from the page.
type Event struct {
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

// Update carries the figure that replaced a widget's previous one.
type Update struct {
	Widget string       `json:"widget"`
	Figure chart.Figure `json:"figure"`
}

// Widget is one chart card with its current figure.
type Widget struct {
	Spec   WidgetSpec   `json:"spec"`
	Figure chart.Figure `json:"figure"`
	Values []string     `json:"values,omitempty"`
	State  State        `json:"state"`
}

// Controller owns the widget states of one page. It is not safe for
// concurrent use; Session serializes access.
type Controller struct {
	table     *dataset.Table
	summary   aggregate.Summary
	layout    Layout
	widgets   map[string]*Widget
	owners    map[string]string
	selection map[string]string
}

// NewController builds the initial figure of every widget. An empty table or
// a failed build yields the placeholder figure.
func NewController(t *dataset.Table, summary aggregate.Summary, layout Layout) *Controller {
	c := &Controller{
		table:     t,
		summary:   summary,
		layout:    layout,
		widgets:   make(map[string]*Widget, len(layout)),
		owners:    make(map[string]string),
		selection: DefaultSelections(t, layout),
	}

	for _, spec := range layout {
		for _, sel := range spec.Selectors {
			c.owners[sel] = spec.ID
		}

		values := c.bound(spec, nil)
		w := &Widget{
			Spec:   spec,
			Figure: chart.Placeholder(spec.Kind),
			Values: values,
			State:  StateInitial,
		}
		if c.ready(values) {
			if fig, err := c.build(spec, values); err == nil {
				w.Figure = fig
			} else {
				logging.L().Debug("initial figure unavailable", "widget", spec.ID, "error", err)
			}
		}
		c.widgets[spec.ID] = w
	}
	return c
}

// DefaultSelections picks the first and second numeric feature columns for
// the selectors. The confusion matrix starts on Glucose when it exists.
func DefaultSelections(t *dataset.Table, layout Layout) map[string]string {
	features := t.NumericColumns()
	first, second := "", ""
	if len(features) > 0 {
		first = features[0]
		second = features[0]
	}
	if len(features) > 1 {
		second = features[1]
	}

	selection := make(map[string]string)
	for _, spec := range layout {
		for i, sel := range spec.Selectors {
			selection[sel] = first
			if i == 1 {
				selection[sel] = second
			}
			if spec.Kind == chart.KindConfusion && t.IsNumeric(dataset.ColumnGlucose) {
				selection[sel] = dataset.ColumnGlucose
			}
		}
	}
	return selection
}

// Apply records the selector value and recomputes the widget it drives. It
// returns false, leaving every figure untouched, when the selector is unknown,
// a bound selector is empty, the table is empty, or the build fails.
func (c *Controller) Apply(ev Event) (Update, bool) {
	id, ok := c.owners[ev.Selector]
	if !ok {
		return Update{}, false
	}
	c.selection[ev.Selector] = ev.Value

	w := c.widgets[id]
	values := c.bound(w.Spec, nil)
	if !c.ready(values) {
		return Update{}, false
	}

	fig, err := c.build(w.Spec, values)
	if err != nil {
		logging.L().Debug("selection ignored", "widget", id, "selector", ev.Selector, "value", ev.Value, "error", err)
		return Update{}, false
	}

	w.Figure = fig
	w.Values = values
	w.State = StateUpdated
	return Update{Widget: id, Figure: fig}, true
}

// Preview builds a widget's figure for the given selector values without
// changing any state. Missing values fall back to the current selection and
// any failure returns the current figure.
func (c *Controller) Preview(id string, overrides map[string]string) (chart.Figure, bool) {
	w, ok := c.widgets[id]
	if !ok {
		return chart.Figure{}, false
	}
	values := c.bound(w.Spec, overrides)
	if !c.ready(values) {
		return w.Figure, true
	}
	fig, err := c.build(w.Spec, values)
	if err != nil {
		return w.Figure, true
	}
	return fig, true
}

// Figure returns the current figure of widget id.
func (c *Controller) Figure(id string) (chart.Figure, bool) {
	w, ok := c.widgets[id]
	if !ok {
		return chart.Figure{}, false
	}
	return w.Figure, true
}

// Widgets returns copies of the widgets in layout order.
func (c *Controller) Widgets() []Widget {
	out := make([]Widget, 0, len(c.layout))
	for _, spec := range c.layout {
		w := *c.widgets[spec.ID]
		w.Values = append([]string(nil), w.Values...)
		out = append(out, w)
	}
	return out
}

// Selections returns a copy of the current selector values.
func (c *Controller) Selections() map[string]string {
	out := make(map[string]string, len(c.selection))
	for k, v := range c.selection {
		out[k] = v
	}
	return out
}

// Options lists the columns a selector may choose from.
func (c *Controller) Options() []string {
	return c.table.NumericColumns()
}

func (c *Controller) bound(spec WidgetSpec, overrides map[string]string) []string {
	if len(spec.Selectors) == 0 {
		return nil
	}
	values := make([]string, len(spec.Selectors))
	for i, sel := range spec.Selectors {
		values[i] = c.selection[sel]
		if v, ok := overrides[sel]; ok && v != "" {
			values[i] = v
		}
	}
	return values
}

func (c *Controller) ready(values []string) bool {
	if c.table.IsEmpty() {
		return false
	}
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}

func (c *Controller) build(spec WidgetSpec, values []string) (chart.Figure, error) {
	column := func(i int) string {
		if i < len(values) {
			return values[i]
		}
		if i < len(spec.Columns) {
			return spec.Columns[i]
		}
		return ""
	}

	fig, err := func() (fig chart.Figure, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("building %s figure: %v", spec.Kind, r)
			}
		}()

		switch spec.Kind {
		case chart.KindHistogram:
			return chart.Histogram(c.table, column(0))
		case chart.KindScatter:
			return chart.Scatter(c.table, column(0), column(1))
		case chart.KindBox:
			return chart.Box(c.table, column(0), spec.GroupBy)
		case chart.KindConfusion:
			return chart.ConfusionMatrix(c.table, column(0))
		case chart.KindPie:
			return chart.Pie(spec.Title, c.counts(spec.Source))
		case chart.KindBar:
			switch spec.Source {
			case SourceZeros:
				return chart.Bar(spec.Title, "Features", "Number of Zeros", c.counts(spec.Source))
			default:
				return chart.Bar(spec.Title, dataset.ColumnAge, "Count", c.counts(spec.Source))
			}
		default:
			return chart.Figure{}, fmt.Errorf("unsupported widget kind %q", spec.Kind)
		}
	}()
	if err != nil {
		return chart.Figure{}, err
	}

	// Fixed widgets carry their card title; selector-driven titles follow the selection.
	if len(spec.Selectors) == 0 && spec.Title != "" {
		fig.Title = spec.Title
	}
	return fig, nil
}

func (c *Controller) counts(source Source) []aggregate.Count {
	switch source {
	case SourceOutcome:
		return c.summary.Outcome
	case SourceAgeDistribution:
		return c.summary.AgeDistribution
	case SourceZeros:
		out := make([]aggregate.Count, len(c.summary.Zeros))
		for i, z := range c.summary.Zeros {
			out[i] = aggregate.Count{Category: z.Feature, Count: z.Count}
		}
		return out
	default:
		return nil
	}
}
