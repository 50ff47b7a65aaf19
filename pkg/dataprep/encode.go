package dataprep

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCategory is returned when a value outside the fitted vocabulary is
// encoded with the error policy.
var ErrUnknownCategory = errors.New("dataprep: unknown category")

// Policies for categories not seen during fit.
const (
	UnknownIgnore = "ignore" // encode as all zeros
	UnknownError  = "error"
)

// OneHotEncoder maps a category to a one-hot vector over a sorted vocabulary.
type OneHotEncoder struct {
	Categories []string
	Unknown    string
}

// Fit collects the vocabulary of col. Sorting keeps the layout independent of
// row order.
func (e *OneHotEncoder) Fit(col []string) {
	unique := map[string]struct{}{}
	for _, v := range col {
		unique[v] = struct{}{}
	}
	e.Categories = make([]string, 0, len(unique))
	for v := range unique {
		e.Categories = append(e.Categories, v)
	}
	sort.Strings(e.Categories)
}

// Width is the number of output columns.
func (e *OneHotEncoder) Width() int { return len(e.Categories) }

// Encode writes the one-hot vector for v into dst[:Width()].
func (e *OneHotEncoder) Encode(dst []float64, v string) error {
	for i := range e.Categories {
		dst[i] = 0
	}
	i := sort.SearchStrings(e.Categories, v)
	if i < len(e.Categories) && e.Categories[i] == v {
		dst[i] = 1
		return nil
	}
	if e.Unknown == UnknownError {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, v)
	}
	return nil
}
