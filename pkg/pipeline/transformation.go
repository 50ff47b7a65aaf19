package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"laptopprice/pkg/data"
	"laptopprice/pkg/dataprep"
)

type TransformationConfig struct {
	Unknown string // dataprep.UnknownIgnore or dataprep.UnknownError
}

// Transformation engineers features from raw listings and fits the preprocessor on train.
type Transformation struct {
	cfg    TransformationConfig
	schema *Schema
	log    *slog.Logger
}

func NewTransformation(cfg TransformationConfig, schema *Schema, log *slog.Logger) *Transformation {
	return &Transformation{cfg: cfg, schema: schema, log: log}
}

// Features turns a raw frame into engineered features plus the target vector.
func (s *Transformation) Features(raw *data.Frame) (*data.Frame, []float64, error) {
	feat, err := dataprep.Engineer(raw)
	if err != nil {
		return nil, nil, err
	}
	feat = feat.Drop(s.schema.DropColumns...)
	y, err := Target(feat, s.schema.TargetColumn)
	if err != nil {
		return nil, nil, err
	}
	return feat.Drop(s.schema.TargetColumn), y, nil
}

// Target parses the label column. Every row needs a numeric label.
func Target(f *data.Frame, name string) ([]float64, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("target column %s not found", name)
	}
	y := make([]float64, len(col))
	for i, v := range col {
		if dataprep.IsMissing(v) {
			return nil, fmt.Errorf("row %d: missing target", i)
		}
		x, err := dataprep.ParseNumeric(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: target %q: %w", i, v, err)
		}
		y[i] = x
	}
	return y, nil
}

func (s *Transformation) Run(ing *IngestionArtifact) (*TransformationArtifact, error) {
	trainFeat, yTrain, err := s.Features(ing.Train)
	if err != nil {
		return nil, fail(KindTransformation, StageTransformation, err, "split", "train")
	}
	testFeat, yTest, err := s.Features(ing.Test)
	if err != nil {
		return nil, fail(KindTransformation, StageTransformation, err, "split", "test")
	}
	s.log.Debug("features engineered", "columns", trainFeat.Columns)

	pre := dataprep.NewPreprocessor(s.schema.FeatureSpec(s.cfg.Unknown))
	XTrain, err := pre.FitTransform(trainFeat)
	if err != nil {
		return nil, fail(KindTransformation, StageTransformation, err, "split", "train")
	}
	XTest, err := pre.Transform(testFeat)
	if err != nil {
		kv := []string{"split", "test"}
		if errors.Is(err, dataprep.ErrUnknownCategory) {
			kv = append(kv, "policy", s.cfg.Unknown)
		}
		return nil, fail(KindTransformation, StageTransformation, err, kv...)
	}
	s.log.Info("preprocessor fitted", "features", pre.Width(), "train_rows", len(XTrain), "test_rows", len(XTest))

	return &TransformationArtifact{
		Preprocessor: pre,
		XTrain:       XTrain,
		YTrain:       yTrain,
		XTest:        XTest,
		YTest:        yTest,
	}, nil
}
