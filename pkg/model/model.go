package model

import (
	"errors"
	"fmt"
	"math"
)

// Estimator fits a linear regressor on a design matrix and targets.
type Estimator interface {
	Name() string
	Fit(X [][]float64, y []float64) (*Linear, error)
}

// Linear is a fitted linear regressor: y = W·x + B.
// Every estimator in this package produces one, so a trained model is plain data.
type Linear struct {
	Algorithm string
	W         []float64
	B         float64
}

// PredictRow returns the prediction for one transformed row.
func (m *Linear) PredictRow(x []float64) (float64, error) {
	if len(x) != len(m.W) {
		return 0, fmt.Errorf("model: row has %d features, model expects %d", len(x), len(m.W))
	}
	sum := m.B
	for j, v := range x {
		sum += m.W[j] * v
	}
	return sum, nil
}

// Predict returns predictions for rows in X.
func (m *Linear) Predict(X [][]float64) ([]float64, error) {
	pred := make([]float64, len(X))
	for i, row := range X {
		p, err := m.PredictRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		pred[i] = p
	}
	return pred, nil
}

func checkXY(X [][]float64, y []float64) (n, p int, err error) {
	if len(X) == 0 {
		return 0, 0, errors.New("model: empty X")
	}
	if len(y) != len(X) {
		return 0, 0, fmt.Errorf("model: X has %d rows but y has %d", len(X), len(y))
	}
	p = len(X[0])
	for i, row := range X {
		if len(row) != p {
			return 0, 0, fmt.Errorf("model: inconsistent number of features in row %d", i)
		}
	}
	return len(X), p, nil
}

func checkFinite(m *Linear) error {
	if math.IsNaN(m.B) || math.IsInf(m.B, 0) {
		return errors.New("model: non-finite bias after fit")
	}
	for j, w := range m.W {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("model: non-finite weight %d after fit", j)
		}
	}
	return nil
}
