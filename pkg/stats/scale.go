package stats

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler centres each column on its training mean and divides by its
// training standard deviation. Fields are exported so the fitted scaler can be
// gob-encoded as part of a model bundle.
type StandardScaler struct {
	Mean   []float64
	Std    []float64
	Fitted bool
}

var ErrNotFitted = errors.New("stats: scaler not fitted")

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

// Fit learns per-column mean and std. Columns with zero variance get std 1.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("stats: cannot fit scaler on empty data")
	}
	r, c := len(X), len(X[0])
	s.Mean = make([]float64, c)
	s.Std = make([]float64, c)
	for i := range r {
		if len(X[i]) != c {
			return fmt.Errorf("stats: row %d has %d columns, want %d", i, len(X[i]), c)
		}
	}
	col := make([]float64, r)
	for j := range c {
		for i := range r {
			col[i] = X[i][j]
		}
		s.Mean[j] = Mean(col)
		s.Std[j] = Std(col)
		if s.Std[j] == 0 || math.IsNaN(s.Std[j]) {
			s.Std[j] = 1
		}
	}
	s.Fitted = true
	return nil
}

// TransformRow scales a single row into dst, which must have len(row) capacity.
func (s *StandardScaler) TransformRow(dst, row []float64) error {
	if !s.Fitted {
		return ErrNotFitted
	}
	if len(row) != len(s.Mean) {
		return fmt.Errorf("stats: row has %d columns, scaler fitted on %d", len(row), len(s.Mean))
	}
	for j, v := range row {
		dst[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return nil
}

func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	Y := make([][]float64, len(X))
	for i, row := range X {
		Y[i] = make([]float64, len(row))
		if err := s.TransformRow(Y[i], row); err != nil {
			return nil, err
		}
	}
	return Y, nil
}

func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
