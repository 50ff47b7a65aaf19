package loader

import (
	"fmt"
	"math/rand"

	"laptopprice/pkg/data"
)

// TrainTestSplit shuffles the rows of f with a seeded source and splits them
// by ratio. The same seed over the same frame always produces the same split.
func TrainTestSplit(f *data.Frame, testRatio float64, seed int64) (train, test *data.Frame, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("loader: test ratio %.3f outside (0, 1)", testRatio)
	}
	n := f.Len()
	nTest := int(float64(n) * testRatio)
	if nTest == 0 || nTest == n {
		return nil, nil, fmt.Errorf("loader: %d rows cannot be split at ratio %.3f", n, testRatio)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	return f.Take(indices[nTest:]), f.Take(indices[:nTest]), nil
}
