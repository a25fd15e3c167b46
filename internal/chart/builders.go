package chart

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pimalab/pimadash/internal/aggregate"
	"github.com/pimalab/pimadash/internal/dataset"
)

const maxBins = 50

// SturgesBins returns ceil(log2 n)+1 bins, capped at maxBins.
func SturgesBins(n int) int {
	if n <= 1 {
		return 1
	}
	bins := int(math.Ceil(math.Log2(float64(n)))) + 1
	if bins > maxBins {
		return maxBins
	}
	return bins
}

func numericColumn(t *dataset.Table, column string) ([]float64, error) {
	cells, ok := t.Column(column)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	values := make([]float64, 0, len(cells))
	for _, v := range cells {
		if v.Kind == dataset.KindText {
			return nil, fmt.Errorf("%w: %s", ErrNotNumeric, column)
		}
		if f, ok := v.Float(); ok {
			values = append(values, f)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, column)
	}
	return values, nil
}

// Histogram bins the numeric values of column.
func Histogram(t *dataset.Table, column string) (Figure, error) {
	values, err := numericColumn(t, column)
	if err != nil {
		return Figure{}, err
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]

	var dividers []float64
	if lo == hi {
		from, to := lo-0.5, hi+0.5
		// Beyond 2^52 the half-unit offset is absorbed by rounding.
		if from >= lo {
			from = math.Nextafter(lo, math.Inf(-1))
		}
		if to <= hi {
			to = math.Nextafter(hi, math.Inf(1))
		}
		dividers = []float64{from, to}
	} else {
		dividers = floats.Span(make([]float64, SturgesBins(len(sorted))+1), lo, hi)
		// The last bin is half-open in gonum; nudge it so max lands inside.
		dividers[len(dividers)-1] = math.Nextafter(hi, math.Inf(1))
	}
	counts := stat.Histogram(nil, dividers, sorted, nil)

	points := make([]Point, len(counts))
	for i, c := range counts {
		from, to := dividers[i], dividers[i+1]
		points[i] = Point{
			X:     (from + to) / 2,
			Y:     c,
			Label: roundedLabel(from) + "-" + roundedLabel(to),
		}
	}

	return Figure{
		Kind:   KindHistogram,
		Title:  "Histogram - " + column,
		XAxis:  column,
		YAxis:  "count",
		Series: []Series{{Name: column, Points: points}},
	}, nil
}

// Scatter plots x against y for rows where both are numeric and reports the
// Pearson correlation when it is defined.
func Scatter(t *dataset.Table, x, y string) (Figure, error) {
	if _, err := numericColumn(t, x); err != nil {
		return Figure{}, err
	}
	if _, err := numericColumn(t, y); err != nil {
		return Figure{}, err
	}

	var xs, ys []float64
	for i := 0; i < t.Len(); i++ {
		xv, _ := t.Value(i, x)
		yv, _ := t.Value(i, y)
		xf, xok := xv.Float()
		yf, yok := yv.Float()
		if xok && yok {
			xs = append(xs, xf)
			ys = append(ys, yf)
		}
	}
	if len(xs) == 0 {
		return Figure{}, fmt.Errorf("%w: %s vs %s", ErrNoData, x, y)
	}

	points := make([]Point, len(xs))
	for i := range xs {
		points[i] = Point{X: xs[i], Y: ys[i]}
	}

	fig := Figure{
		Kind:   KindScatter,
		Title:  x + " vs " + y,
		XAxis:  x,
		YAxis:  y,
		Series: []Series{{Name: y, Points: points}},
	}
	if len(xs) >= 2 && stat.Variance(xs, nil) > 0 && stat.Variance(ys, nil) > 0 {
		r, err := stats.Round(stat.Correlation(xs, ys, nil), 4)
		if err == nil {
			fig.Stats = map[string]float64{"pearson_r": r}
		}
	}
	return fig, nil
}

// Box summarizes column, optionally split by the categories of groupBy.
func Box(t *dataset.Table, column, groupBy string) (Figure, error) {
	values, err := numericColumn(t, column)
	if err != nil {
		return Figure{}, err
	}

	fig := Figure{
		Kind:  KindBox,
		Title: column,
		YAxis: column,
	}

	if groupBy == "" {
		box, err := boxStats(values)
		if err != nil {
			return Figure{}, err
		}
		fig.Series = []Series{{Name: column, Box: box}}
		return fig, nil
	}

	if !t.Has(groupBy) {
		return Figure{}, fmt.Errorf("%w: %s", ErrUnknownColumn, groupBy)
	}
	fig.Title = column + " by " + groupBy
	fig.XAxis = groupBy

	groups := make(map[string][]float64)
	keys := make(map[string]dataset.Value)
	for i := 0; i < t.Len(); i++ {
		g, _ := t.Value(i, groupBy)
		v, _ := t.Value(i, column)
		f, ok := v.Float()
		if g.IsNull() || !ok {
			continue
		}
		label := g.String()
		groups[label] = append(groups[label], f)
		keys[label] = g
	}
	if len(groups) == 0 {
		return Figure{}, fmt.Errorf("%w: %s by %s", ErrNoData, column, groupBy)
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		return dataset.Less(keys[labels[i]], keys[labels[j]])
	})

	for _, label := range labels {
		box, err := boxStats(groups[label])
		if err != nil {
			return Figure{}, err
		}
		fig.Series = append(fig.Series, Series{Name: label, Box: box})
	}
	return fig, nil
}

func boxStats(values []float64) (*BoxStats, error) {
	if len(values) == 0 {
		return nil, ErrNoData
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	data := stats.Float64Data(sorted)
	median, err := data.Median()
	if err != nil {
		return nil, err
	}
	mean, err := data.Mean()
	if err != nil {
		return nil, err
	}
	q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	iqr := q3 - q1
	lowFence, highFence := q1-1.5*iqr, q3+1.5*iqr

	box := &BoxStats{
		N:            len(sorted),
		Min:          sorted[0],
		Q1:           q1,
		Median:       median,
		Q3:           q3,
		Max:          sorted[len(sorted)-1],
		Mean:         mean,
		LowerWhisker: q1,
		UpperWhisker: q3,
		Outliers:     []float64{},
	}
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			box.Outliers = append(box.Outliers, v)
			continue
		}
		box.LowerWhisker = math.Min(box.LowerWhisker, v)
		box.UpperWhisker = math.Max(box.UpperWhisker, v)
	}
	return box, nil
}

// Bar draws one bar per count.
func Bar(title, xLabel, yLabel string, counts []aggregate.Count) (Figure, error) {
	if len(counts) == 0 {
		return Figure{}, fmt.Errorf("%w: %s", ErrNoData, title)
	}
	return Figure{
		Kind:   KindBar,
		Title:  title,
		XAxis:  xLabel,
		YAxis:  yLabel,
		Series: []Series{{Name: yLabel, Points: countPoints(counts)}},
	}, nil
}

// Pie draws one slice per count.
func Pie(title string, counts []aggregate.Count) (Figure, error) {
	if aggregate.Total(counts) == 0 {
		return Figure{}, fmt.Errorf("%w: %s", ErrNoData, title)
	}
	return Figure{
		Kind:   KindPie,
		Title:  title,
		Series: []Series{{Name: title, Points: countPoints(counts)}},
	}, nil
}

func countPoints(counts []aggregate.Count) []Point {
	points := make([]Point, len(counts))
	for i, c := range counts {
		points[i] = Point{X: float64(i), Y: float64(c.Count), Label: c.Category}
	}
	return points
}

// ConfusionMatrix scores the rule "feature above its mean predicts a positive
// outcome" against the Outcome column. The matrix is [[TN, FP], [FN, TP]].
func ConfusionMatrix(t *dataset.Table, feature string) (Figure, error) {
	values, err := numericColumn(t, feature)
	if err != nil {
		return Figure{}, err
	}
	if !t.Has(dataset.ColumnOutcome) {
		return Figure{}, fmt.Errorf("%w: %s", ErrUnknownColumn, dataset.ColumnOutcome)
	}

	threshold, err := stats.Mean(values)
	if err != nil {
		return Figure{}, fmt.Errorf("%w: %s", ErrNoData, feature)
	}

	var matrix [2][2]int
	n := 0
	for i := 0; i < t.Len(); i++ {
		fv, _ := t.Value(i, feature)
		ov, _ := t.Value(i, dataset.ColumnOutcome)
		f, fok := fv.Float()
		if !fok || ov.IsNull() {
			continue
		}
		o, ook := ov.Float()
		if !ook || (o != 0 && o != 1) {
			return Figure{}, fmt.Errorf("%w: saw %q", ErrNotBinary, ov.String())
		}
		actual := int(o)
		predicted := 0
		if f > threshold {
			predicted = 1
		}
		matrix[actual][predicted]++
		n++
	}
	if n == 0 {
		return Figure{}, fmt.Errorf("%w: %s", ErrNoData, feature)
	}

	accuracy, _ := stats.Round(float64(matrix[0][0]+matrix[1][1])/float64(n), 4)
	rounded, _ := stats.Round(threshold, 2)

	return Figure{
		Kind:  KindConfusion,
		Title: fmt.Sprintf("Confusion Matrix - %s > %s", feature, formatNumber(rounded)),
		XAxis: "predicted",
		YAxis: "actual",
		Series: []Series{{
			Name:   feature,
			Matrix: [][]int{{matrix[0][0], matrix[0][1]}, {matrix[1][0], matrix[1][1]}},
			Labels: []string{"0", "1"},
		}},
		Stats: map[string]float64{
			"accuracy":  accuracy,
			"threshold": rounded,
		},
	}, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func roundedLabel(f float64) string {
	r, err := stats.Round(f, 2)
	if err != nil {
		return formatNumber(f)
	}
	return formatNumber(r)
}
