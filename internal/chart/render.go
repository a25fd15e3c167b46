package chart

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/pimalab/pimadash/internal/logging"
)

const (
	Width  = 600
	Height = 400
)

var palette = []drawing.Color{
	drawing.ColorFromHex("ea8c55"),
	drawing.ColorFromHex("ea526f"),
	drawing.ColorFromHex("5c7aea"),
	drawing.ColorFromHex("4caf7d"),
}

func color(i int) drawing.Color {
	return palette[i%len(palette)]
}

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">` +
	`<rect width="100%%" height="100%%" fill="#ffffff"/>` +
	`<text x="50%%" y="50%%" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="16" fill="#888888">%s</text>` +
	`</svg>`

// PlaceholderSVG returns a static image carrying title.
func PlaceholderSVG(title string) []byte {
	return []byte(fmt.Sprintf(placeholderSVG, Width, Height, Width, Height, html.EscapeString(title)))
}

// RenderSVG writes fig as SVG. Figures go-chart cannot draw (single points,
// zero ranges) fall back to the placeholder image, so the only error returned
// is a write error.
func RenderSVG(fig Figure, w io.Writer) error {
	if fig.Placeholder || len(fig.Series) == 0 {
		_, err := w.Write(PlaceholderSVG(fig.Title))
		return err
	}

	var buf bytes.Buffer
	if err := render(fig, &buf); err != nil {
		logging.L().Debug("chart render failed, using placeholder",
			"kind", fig.Kind,
			"title", fig.Title,
			"error", err,
		)
		_, err := w.Write(PlaceholderSVG(fig.Title))
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func render(fig Figure, w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart renderer panicked: %v", r)
		}
	}()

	switch fig.Kind {
	case KindHistogram, KindBar:
		return renderBars(fig, w)
	case KindPie:
		return renderPie(fig, w)
	case KindScatter:
		return renderScatter(fig, w)
	case KindBox:
		return renderBox(fig, w)
	case KindConfusion:
		return renderConfusion(fig, w)
	default:
		return fmt.Errorf("unsupported figure kind %q", fig.Kind)
	}
}

func renderBars(fig Figure, w io.Writer) error {
	points := fig.Series[0].Points
	bars := make([]gochart.Value, len(points))
	for i, p := range points {
		bars[i] = gochart.Value{
			Value: p.Y,
			Label: p.Label,
			Style: gochart.Style{FillColor: color(0), StrokeColor: color(0)},
		}
	}
	return barChart(fig.Title, bars).Render(gochart.SVG, w)
}

func barChart(title string, bars []gochart.Value) gochart.BarChart {
	barWidth := (Width - 100) / (len(bars) + 1)
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 4 {
		barWidth = 4
	}
	return gochart.BarChart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		BarWidth:   barWidth,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		Bars:       bars,
	}
}

func renderPie(fig Figure, w io.Writer) error {
	points := fig.Series[0].Points
	values := make([]gochart.Value, len(points))
	for i, p := range points {
		values[i] = gochart.Value{
			Value: p.Y,
			Label: fmt.Sprintf("%s (%s)", p.Label, formatNumber(p.Y)),
			Style: gochart.Style{FillColor: color(i)},
		}
	}
	pie := gochart.PieChart{
		Title:  fig.Title,
		Width:  Width,
		Height: Height,
		Values: values,
	}
	return pie.Render(gochart.SVG, w)
}

func renderScatter(fig Figure, w io.Writer) error {
	points := fig.Series[0].Points
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}

	title := fig.Title
	if r, ok := fig.Stats["pearson_r"]; ok {
		title = fmt.Sprintf("%s (r = %s)", fig.Title, formatNumber(r))
	}

	ch := gochart.Chart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 10}},
		XAxis:      gochart.XAxis{Name: fig.XAxis, Range: paddedRange(xs)},
		YAxis:      gochart.YAxis{Name: fig.YAxis, Range: paddedRange(ys)},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    fig.Series[0].Name,
				XValues: xs,
				YValues: ys,
				Style:   pointStyle(color(0)),
			},
		},
	}
	return ch.Render(gochart.SVG, w)
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    3,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
	}
}

func renderBox(fig Figure, w io.Writer) error {
	var (
		series []gochart.Series
		ticks  []gochart.Tick
		ys     []float64
	)
	for i, s := range fig.Series {
		if s.Box == nil {
			continue
		}
		b := s.Box
		x := float64(i + 1)
		col := color(i)
		ys = append(ys, b.Min, b.Max)

		series = append(series,
			gochart.ContinuousSeries{
				Name:    s.Name,
				XValues: []float64{x - 0.25, x + 0.25, x + 0.25, x - 0.25, x - 0.25},
				YValues: []float64{b.Q1, b.Q1, b.Q3, b.Q3, b.Q1},
				Style:   lineStyle(col),
			},
			gochart.ContinuousSeries{
				XValues: []float64{x - 0.25, x + 0.25},
				YValues: []float64{b.Median, b.Median},
				Style:   lineStyle(col),
			},
			gochart.ContinuousSeries{
				XValues: []float64{x, x},
				YValues: []float64{b.LowerWhisker, b.Q1},
				Style:   lineStyle(col),
			},
			gochart.ContinuousSeries{
				XValues: []float64{x, x},
				YValues: []float64{b.Q3, b.UpperWhisker},
				Style:   lineStyle(col),
			},
		)
		if len(b.Outliers) > 0 {
			ox := make([]float64, len(b.Outliers))
			for j := range ox {
				ox[j] = x
			}
			series = append(series, gochart.ContinuousSeries{
				XValues: ox,
				YValues: b.Outliers,
				Style:   pointStyle(col),
			})
		}
		ticks = append(ticks, gochart.Tick{Value: x, Label: s.Name})
	}
	if len(series) == 0 {
		return fmt.Errorf("box figure %q has no boxes", fig.Title)
	}

	ch := gochart.Chart{
		Title:      fig.Title,
		Width:      Width,
		Height:     Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 10}},
		XAxis: gochart.XAxis{
			Name:  fig.XAxis,
			Ticks: ticks,
			Range: &gochart.ContinuousRange{Min: 0.5, Max: float64(len(fig.Series)) + 0.5},
		},
		YAxis:  gochart.YAxis{Name: fig.YAxis, Range: paddedRange(ys)},
		Series: series,
	}
	return ch.Render(gochart.SVG, w)
}

func renderConfusion(fig Figure, w io.Writer) error {
	m := fig.Series[0].Matrix
	if len(m) != 2 || len(m[0]) != 2 || len(m[1]) != 2 {
		return fmt.Errorf("confusion figure %q is not 2x2", fig.Title)
	}
	cells := []struct {
		label string
		count int
		good  bool
	}{
		{"TN", m[0][0], true},
		{"FP", m[0][1], false},
		{"FN", m[1][0], false},
		{"TP", m[1][1], true},
	}
	bars := make([]gochart.Value, len(cells))
	for i, c := range cells {
		col := color(1)
		if c.good {
			col = color(0)
		}
		bars[i] = gochart.Value{
			Value: float64(c.count),
			Label: fmt.Sprintf("%s (%d)", c.label, c.count),
			Style: gochart.Style{FillColor: col, StrokeColor: col},
		}
	}

	title := fig.Title
	if acc, ok := fig.Stats["accuracy"]; ok {
		title = fmt.Sprintf("%s, accuracy %s", fig.Title, formatNumber(acc))
	}
	return barChart(title, bars).Render(gochart.SVG, w)
}

// paddedRange widens a degenerate or tight range so go-chart never sees a
// zero-width axis.
func paddedRange(values []float64) *gochart.ContinuousRange {
	if len(values) == 0 {
		return &gochart.ContinuousRange{Min: 0, Max: 1}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(lo)*0.1, 1)
	}
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
