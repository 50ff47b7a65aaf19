package dataprep

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"laptopprice/pkg/stats"
)

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "na", "NA", "NaN", "nan", "null":
		return true
	}
	return false
}

// Imputation strategies for numeric columns.
const (
	StrategyMean   = "mean"
	StrategyMedian = "median"
)

// NumericImputer fills missing numeric cells with a statistic learned at fit time.
type NumericImputer struct {
	Strategy string
	Value    float64
}

// Fit learns the fill value from the non-missing cells of col.
func (m *NumericImputer) Fit(col []float64) {
	var nums []float64
	for _, v := range col {
		if !math.IsNaN(v) {
			nums = append(nums, v)
		}
	}
	if m.Strategy == StrategyMean {
		m.Value = stats.Mean(nums)
	} else {
		m.Value = stats.Median(nums)
	}
}

// Fill returns v, or the learned value when v is NaN.
func (m *NumericImputer) Fill(v float64) float64 {
	if math.IsNaN(v) {
		return m.Value
	}
	return v
}

// CategoricalImputer fills missing categorical cells with the most frequent
// value seen at fit time. Ties go to the lexically smallest value.
type CategoricalImputer struct {
	Value string
}

func (m *CategoricalImputer) Fit(col []string) {
	counts := map[string]int{}
	for _, v := range col {
		if !IsMissing(v) {
			counts[v]++
		}
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best, bestN := "Unknown", 0
	for _, k := range keys {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	m.Value = best
}

func (m *CategoricalImputer) Fill(v string) string {
	if IsMissing(v) {
		return m.Value
	}
	return v
}

// ParseNumeric parses a cell, mapping missing cells to NaN.
func ParseNumeric(v string) (float64, error) {
	if IsMissing(v) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}
