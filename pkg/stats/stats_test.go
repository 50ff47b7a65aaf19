package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestDescribe(t *testing.T) {
	s := Describe([]float64{4, math.NaN(), 1, 3, 2})
	if s.Count != 4 || s.Min != 1 || s.Max != 4 || s.Median != 2.5 || s.Mean != 2.5 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if !almostEqual(s.Std, math.Sqrt(1.25), 1e-12) {
		t.Fatalf("std = %v", s.Std)
	}
	if got := Describe([]float64{math.NaN()}); got.Count != 0 {
		t.Fatalf("all-NaN column should be empty, got %+v", got)
	}
}

func TestMeanShift(t *testing.T) {
	a := Summary{Mean: 10, Std: 2}
	if got := MeanShift(a, Summary{Mean: 13}); got != 1.5 {
		t.Fatalf("shift = %v, want 1.5", got)
	}
	constant := Summary{Mean: 5, Std: 0}
	if got := MeanShift(constant, Summary{Mean: 5}); got != 0 {
		t.Fatalf("equal constant columns should not shift, got %v", got)
	}
	if got := MeanShift(constant, Summary{Mean: 6}); !math.IsInf(got, 1) {
		t.Fatalf("moved constant column should be +Inf, got %v", got)
	}
}

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 7}, {2, 7}, {3, 7}}
	s := NewStandardScaler()
	if err := s.TransformRow(make([]float64, 2), X[0]); err != ErrNotFitted {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
	Y, err := s.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if s.Std[1] != 1 {
		t.Fatalf("constant column std should be 1, got %v", s.Std[1])
	}
	if !almostEqual(Y[0][0]+Y[2][0], 0, 1e-12) || Y[1][0] != 0 || Y[0][1] != 0 {
		t.Fatalf("unexpected scaled values %v", Y)
	}
	if err := s.TransformRow(make([]float64, 1), []float64{1}); err == nil {
		t.Fatal("expected width mismatch error")
	}
}
