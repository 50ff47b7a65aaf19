package model

import (
	"math/rand"

	"laptopprice/pkg/optim"
)

// SGD fits a linear regressor via mini-batch gradient descent on the MSE loss.
// Initial weights and batch order come from a source seeded with Seed, so two
// fits on the same data are identical.
type SGD struct {
	Lr          float64
	Epochs      int
	BatchSize   int
	WeightDecay float64
	Seed        int64
}

// NewSGD initializes a new mini-batch SGD estimator with the specified parameters.
func NewSGD(lr float64, epochs, batchSize int, weightDecay float64, seed int64) *SGD {
	return &SGD{Lr: lr, Epochs: epochs, BatchSize: batchSize, WeightDecay: weightDecay, Seed: seed}
}

func (s *SGD) Name() string { return "sgd" }

func (s *SGD) Fit(X [][]float64, y []float64) (*Linear, error) {
	n, p, err := checkXY(X, y)
	if err != nil {
		return nil, err
	}
	rnd := rand.New(rand.NewSource(s.Seed))
	m := &Linear{Algorithm: s.Name(), W: make([]float64, p)}
	for j := range m.W {
		m.W[j] = rnd.NormFloat64() * 0.01
	}
	// Start from the target mean so prices in the tens of thousands do not
	// dominate the first epochs.
	for _, v := range y {
		m.B += v
	}
	m.B /= float64(n)

	batch := s.BatchSize
	if batch <= 0 || batch > n {
		batch = n
	}
	opt := optim.NewSGD(s.Lr, s.WeightDecay)
	gW := make([]float64, p)

	for ep := 0; ep < s.Epochs; ep++ {
		order := rnd.Perm(n)
		for start := 0; start < n; start += batch {
			end := min(start+batch, n)
			for j := range gW {
				gW[j] = 0
			}
			gb := 0.0
			size := float64(end - start)
			for _, i := range order[start:end] {
				yhat, _ := m.PredictRow(X[i])
				d := 2 * (yhat - y[i]) / size
				for j, xij := range X[i] {
					gW[j] += d * xij
				}
				gb += d
			}
			opt.Step(m.W, gW)
			m.B -= s.Lr * gb
		}
	}
	return m, checkFinite(m)
}
