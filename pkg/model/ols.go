package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// OLS solves the ridge-regularised normal equations
//
//	(XcᵀXc + αI) w = Xcᵀ yc
//
// on centred data, then recovers the intercept from the means. A small α keeps
// the system solvable when one-hot blocks are collinear. The fit is exact and
// deterministic.
type OLS struct {
	Alpha float64
}

func NewOLS(alpha float64) *OLS { return &OLS{Alpha: alpha} }

func (o *OLS) Name() string { return "ols" }

func (o *OLS) Fit(X [][]float64, y []float64) (*Linear, error) {
	n, p, err := checkXY(X, y)
	if err != nil {
		return nil, err
	}

	xMean := make([]float64, p)
	yMean := 0.0
	for i := range n {
		for j := range p {
			xMean[j] += X[i][j]
		}
		yMean += y[i]
	}
	for j := range p {
		xMean[j] /= float64(n)
	}
	yMean /= float64(n)

	xc := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i := range n {
		for j := range p {
			xc.Set(i, j, X[i][j]-xMean[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	var gram mat.SymDense
	gram.SymOuterK(1, xc.T())
	for j := range p {
		gram.SetSym(j, j, gram.At(j, j)+o.Alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(xc.T(), yc)

	var chol mat.Cholesky
	var w mat.VecDense
	if ok := chol.Factorize(&gram); ok {
		if err := chol.SolveVecTo(&w, &rhs); err != nil {
			return nil, fmt.Errorf("model: cholesky solve: %w", err)
		}
	} else if err := w.SolveVec(&gram, &rhs); err != nil {
		return nil, fmt.Errorf("model: normal equations are singular: %w", err)
	}

	m := &Linear{Algorithm: o.Name(), W: make([]float64, p)}
	m.B = yMean
	for j := range p {
		m.W[j] = w.AtVec(j)
		m.B -= m.W[j] * xMean[j]
	}
	return m, checkFinite(m)
}
