package artifact

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"laptopprice/pkg/data"
	"laptopprice/pkg/dataprep"
	"laptopprice/pkg/model"
)

// Bundle pairs a fitted preprocessor with the model trained on its output.
// It is stored and loaded as one object, so the two can never drift apart.
type Bundle struct {
	Version      string
	RunID        string
	CreatedAt    time.Time
	Target       string
	Preprocessor *dataprep.Preprocessor
	Model        *model.Linear
	Metrics      model.Metrics
}

// Predict scores one engineered feature record.
func (b *Bundle) Predict(rec map[string]string) (float64, error) {
	x, err := b.Preprocessor.TransformRecord(rec)
	if err != nil {
		return 0, err
	}
	return b.Model.PredictRow(x)
}

// PredictFrame scores every row of a raw or engineered frame.
func (b *Bundle) PredictFrame(f *data.Frame) ([]float64, error) {
	feat, err := dataprep.Engineer(f)
	if err != nil {
		return nil, err
	}
	X, err := b.Preprocessor.Transform(feat)
	if err != nil {
		return nil, err
	}
	return b.Model.Predict(X)
}

// bundleWire breaks the MarshalBinary recursion when gob encodes the struct.
type bundleWire Bundle

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	if b.Preprocessor == nil || b.Model == nil {
		return nil, errors.New("artifact: bundle needs both preprocessor and model")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode((*bundleWire)(b)); err != nil {
		return nil, fmt.Errorf("artifact: encode bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (b *Bundle) UnmarshalBinary(p []byte) error {
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode((*bundleWire)(b)); err != nil {
		return fmt.Errorf("%w: decode bundle: %w", ErrCorrupt, err)
	}
	if b.Preprocessor == nil || b.Model == nil {
		return fmt.Errorf("%w: decoded bundle is incomplete", ErrCorrupt)
	}
	return nil
}
