// Package aggregate computes the summary views shown on the dashboard.
package aggregate

import (
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/pimalab/pimadash/internal/dataset"
)

// MeanColumns are the features summarized on the mean cards.
var MeanColumns = []string{
	dataset.ColumnPregnancies,
	dataset.ColumnGlucose,
	dataset.ColumnBloodPressure,
	dataset.ColumnInsulin,
	dataset.ColumnBMI,
	dataset.ColumnAge,
}

// Count is the number of rows holding one category.
type Count struct {
	Category string `json:"category" yaml:"category"`
	Count    int    `json:"count" yaml:"count"`
}

// ZeroCount is the number of rows where Feature is exactly zero.
type ZeroCount struct {
	Feature string `json:"feature" yaml:"feature"`
	Count   int    `json:"count" yaml:"count"`
}

// Mean is a column mean rounded to two decimals.
type Mean struct {
	Column string  `json:"column" yaml:"column"`
	Value  float64 `json:"value" yaml:"value"`
}

// Summary bundles every aggregate view of a table.
type Summary struct {
	Rows            int         `json:"rows" yaml:"rows"`
	Outcome         []Count     `json:"outcome" yaml:"outcome"`
	Zeros           []ZeroCount `json:"zeros" yaml:"zeros"`
	Means           []Mean      `json:"means" yaml:"means"`
	AgeDistribution []Count     `json:"age_distribution" yaml:"age_distribution"`
}

// Summarize computes every view. Slices are never nil.
func Summarize(t *dataset.Table) Summary {
	return Summary{
		Rows:            t.Len(),
		Outcome:         OutcomeDistribution(t),
		Zeros:           ZeroCounts(t),
		Means:           Means(t, MeanColumns...),
		AgeDistribution: ValueCounts(t, dataset.ColumnAge),
	}
}

// OutcomeDistribution counts rows per Outcome category, most frequent first.
// Ties are broken by category so the order is stable.
func OutcomeDistribution(t *dataset.Table) []Count {
	values, ok := t.Column(dataset.ColumnOutcome)
	if !ok {
		return []Count{}
	}

	counts := make(map[string]int)
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		counts[v.String()]++
	}

	out := make([]Count, 0, len(counts))
	for category, n := range counts {
		out = append(out, Count{Category: category, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ZeroCounts counts numeric zeros per column, skipping the identifier columns
// and any column named in exclude. Columns keep table order.
func ZeroCounts(t *dataset.Table, exclude ...string) []ZeroCount {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	out := make([]ZeroCount, 0, len(t.Columns()))
	for _, name := range t.Columns() {
		if skip[name] || dataset.IsIdentifier(name) {
			continue
		}
		values, _ := t.Column(name)
		n := 0
		for _, v := range values {
			if v.IsZero() {
				n++
			}
		}
		out = append(out, ZeroCount{Feature: name, Count: n})
	}
	return out
}

// Means returns the rounded mean of each listed column that is present and
// has numeric values.
func Means(t *dataset.Table, columns ...string) []Mean {
	out := make([]Mean, 0, len(columns))
	for _, name := range columns {
		values, ok := t.Floats(name)
		if !ok || len(values) == 0 {
			continue
		}
		mean, err := stats.Mean(values)
		if err != nil {
			continue
		}
		rounded, err := stats.Round(mean, 2)
		if err != nil {
			continue
		}
		out = append(out, Mean{Column: name, Value: rounded})
	}
	return out
}

// ValueCounts counts occurrences of each value of column, ordered by value.
func ValueCounts(t *dataset.Table, column string) []Count {
	values, ok := t.Column(column)
	if !ok {
		return []Count{}
	}

	type bucket struct {
		value dataset.Value
		count int
	}
	buckets := make(map[string]*bucket)
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		key := v.String()
		if b, ok := buckets[key]; ok {
			b.count++
			continue
		}
		buckets[key] = &bucket{value: v, count: 1}
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return dataset.Less(ordered[i].value, ordered[j].value)
	})

	out := make([]Count, len(ordered))
	for i, b := range ordered {
		out[i] = Count{Category: b.value.String(), Count: b.count}
	}
	return out
}

// Total sums the counts.
func Total(counts []Count) int {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total
}
