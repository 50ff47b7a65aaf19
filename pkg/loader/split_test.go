package loader

import (
	"slices"
	"strconv"
	"testing"

	"laptopprice/pkg/data"
)

func frame(n int) *data.Frame {
	f := &data.Frame{Columns: []string{"id"}}
	for i := range n {
		f.Rows = append(f.Rows, []string{strconv.Itoa(i)})
	}
	return f
}

func TestTrainTestSplit(t *testing.T) {
	f := frame(100)
	train, test, err := TrainTestSplit(f, 0.2, 7)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if train.Len() != 80 || test.Len() != 20 {
		t.Fatalf("sizes %d/%d, want 80/20", train.Len(), test.Len())
	}

	seen := map[string]bool{}
	for _, r := range append(slices.Clone(train.Rows), test.Rows...) {
		if seen[r[0]] {
			t.Fatalf("row %s appears twice", r[0])
		}
		seen[r[0]] = true
	}
	if len(seen) != 100 {
		t.Fatalf("split lost rows: %d", len(seen))
	}

	_, again, _ := TrainTestSplit(f, 0.2, 7)
	if !slices.EqualFunc(test.Rows, again.Rows, slices.Equal[[]string]) {
		t.Fatal("same seed produced a different split")
	}
}

func TestTrainTestSplitRejects(t *testing.T) {
	for _, ratio := range []float64{0, 1, -0.1} {
		if _, _, err := TrainTestSplit(frame(10), ratio, 1); err == nil {
			t.Fatalf("ratio %v accepted", ratio)
		}
	}
	if _, _, err := TrainTestSplit(frame(3), 0.2, 1); err == nil {
		t.Fatal("split leaving an empty test set was accepted")
	}
}
