// Package stats computes the descriptive statistics behind the dashboard's
// Stations, Trains and Schedules tabs. Results are plain data; renderers
// decide how to draw them.
package stats

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Count is a labelled frequency
type Count struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Value is a labelled measurement
type Value struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Bin is one histogram bucket covering [Lo, Hi)
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram is an equal-width histogram of one numeric column
type Histogram struct {
	Column string  `json:"column"`
	Total  int     `json:"total"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Bins   []Bin   `json:"bins"`
}

// Matrix is a two-way frequency table
type Matrix struct {
	Rows  []string `json:"rows"`
	Cols  []string `json:"cols"`
	Cells [][]int  `json:"cells"`
}

// CountBy tallies values, ignoring blanks. Sorted by count descending,
// ties by label.
func CountBy(values []string) []Count {
	tally := make(map[string]int)
	for _, v := range values {
		if v == "" {
			continue
		}
		tally[v]++
	}
	return sortCounts(tally)
}

func sortCounts(tally map[string]int) []Count {
	out := make([]Count, 0, len(tally))
	for label, n := range tally {
		out = append(out, Count{Label: label, Value: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Top returns at most n leading counts
func Top(counts []Count, n int) []Count {
	if n >= 0 && len(counts) > n {
		return counts[:n]
	}
	return counts
}

// MeanBy averages values per label, returning the n largest means
func MeanBy(labels []string, values []*float64, n int) []Value {
	groups := make(map[string][]float64)
	for i, label := range labels {
		if label == "" || i >= len(values) || values[i] == nil {
			continue
		}
		groups[label] = append(groups[label], *values[i])
	}

	out := make([]Value, 0, len(groups))
	for label, xs := range groups {
		out = append(out, Value{Label: label, Value: stat.Mean(xs, nil)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// NewHistogram buckets the present values into at most bins equal-width bins.
// Nil values are ignored; it returns nil when nothing is left.
func NewHistogram(column string, values []*float64, bins int) *Histogram {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil && !math.IsInf(*v, 0) && !math.IsNaN(*v) {
			xs = append(xs, *v)
		}
	}
	if len(xs) == 0 {
		return nil
	}
	if bins < 1 {
		bins = 1
	}
	sort.Float64s(xs)

	lo, hi := floats.Min(xs), floats.Max(xs)
	if lo == hi {
		bins = 1
	}

	dividers := make([]float64, bins+1)
	if bins == 1 {
		dividers[0] = lo
	} else {
		floats.Span(dividers, lo, hi)
	}
	// the top divider is exclusive
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, xs, nil)

	h := &Histogram{
		Column: column,
		Total:  len(xs),
		Min:    lo,
		Max:    hi,
		Mean:   stat.Mean(xs, nil),
		Bins:   make([]Bin, bins),
	}
	for i := range h.Bins {
		h.Bins[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: int(counts[i])}
	}
	return h
}

// CrossTab builds a row × column frequency matrix, skipping blank pairs
func CrossTab(rows, cols []string) *Matrix {
	rowSet := make(map[string]bool)
	colSet := make(map[string]bool)
	cells := make(map[[2]string]int)
	for i := range rows {
		if i >= len(cols) || rows[i] == "" || cols[i] == "" {
			continue
		}
		rowSet[rows[i]] = true
		colSet[cols[i]] = true
		cells[[2]string{rows[i], cols[i]}]++
	}

	m := &Matrix{Rows: sortedKeys(rowSet), Cols: sortedKeys(colSet)}
	m.Cells = make([][]int, len(m.Rows))
	for i, r := range m.Rows {
		m.Cells[i] = make([]int, len(m.Cols))
		for j, c := range m.Cols {
			m.Cells[i][j] = cells[[2]string{r, c}]
		}
	}
	return m
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var clockLayouts = []string{"15:04:05", "15:04"}

// ParseClock returns minutes after midnight for "HH:MM[:SS]" values
func ParseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// HourCounts tallies clock values per hour of day, 24 buckets in order
func HourCounts(values []string) []Count {
	var hours [24]int
	for _, v := range values {
		if m, ok := ParseClock(v); ok {
			hours[m/60]++
		}
	}
	out := make([]Count, 24)
	for h := range hours {
		out[h] = Count{Label: strconv.Itoa(h), Value: hours[h]}
	}
	return out
}
