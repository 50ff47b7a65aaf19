package optim

import "testing"

func TestStep(t *testing.T) {
	w := []float64{1, -2}
	NewSGD(0.1, 0.5).Step(w, []float64{2, 0})
	// w0 = 1 - 0.1*(2 + 0.5*1), w1 = -2 - 0.1*(0 + 0.5*-2)
	if w[0] != 0.75 || w[1] != -1.9 {
		t.Fatalf("weights after step = %v", w)
	}
}
