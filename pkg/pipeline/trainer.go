package pipeline

import (
	"fmt"
	"log/slog"
	"strconv"

	"laptopprice/pkg/model"
)

// Supported estimators.
const (
	AlgorithmOLS = "ols"
	AlgorithmSGD = "sgd"
)

type TrainerConfig struct {
	Algorithm     string
	Alpha         float64
	LearningRate  float64
	Epochs        int
	BatchSize     int
	WeightDecay   float64
	Seed          int64
	ExpectedScore float64
}

// Estimator builds the configured estimator.
func (c TrainerConfig) Estimator() (model.Estimator, error) {
	switch c.Algorithm {
	case AlgorithmOLS, "":
		return model.NewOLS(c.Alpha), nil
	case AlgorithmSGD:
		return model.NewSGD(c.LearningRate, c.Epochs, c.BatchSize, c.WeightDecay, c.Seed), nil
	}
	return nil, fmt.Errorf("unknown algorithm %q", c.Algorithm)
}

type Trainer struct {
	cfg TrainerConfig
	log *slog.Logger
}

func NewTrainer(cfg TrainerConfig, log *slog.Logger) *Trainer {
	return &Trainer{cfg: cfg, log: log}
}

// Run fits on the train matrix and scores on both halves. A test R² below the
// expected score fails the run.
func (s *Trainer) Run(t *TransformationArtifact) (*TrainerArtifact, error) {
	est, err := s.cfg.Estimator()
	if err != nil {
		return nil, fail(KindConfig, StageTraining, err)
	}
	m, err := est.Fit(t.XTrain, t.YTrain)
	if err != nil {
		return nil, fail(KindTraining, StageTraining, err, "algorithm", est.Name())
	}

	trainPred, err := m.Predict(t.XTrain)
	if err != nil {
		return nil, fail(KindTraining, StageTraining, err)
	}
	testPred, err := m.Predict(t.XTest)
	if err != nil {
		return nil, fail(KindTraining, StageTraining, err)
	}
	trainMetrics, err := model.Score(t.YTrain, trainPred)
	if err != nil {
		return nil, fail(KindTraining, StageTraining, err, "split", "train")
	}
	testMetrics, err := model.Score(t.YTest, testPred)
	if err != nil {
		return nil, fail(KindTraining, StageTraining, err, "split", "test")
	}
	s.log.Info("model trained",
		"algorithm", est.Name(),
		"train_r2", trainMetrics.R2,
		"test_r2", testMetrics.R2,
		"test_rmse", testMetrics.RMSE,
	)

	if testMetrics.R2 < s.cfg.ExpectedScore {
		return nil, fail(KindTraining, StageTraining,
			fmt.Errorf("test r2 %.4f below expected score %.4f", testMetrics.R2, s.cfg.ExpectedScore),
			"expected_score", strconv.FormatFloat(s.cfg.ExpectedScore, 'f', -1, 64))
	}
	return &TrainerArtifact{Model: m, TrainMetrics: trainMetrics, TestMetrics: testMetrics, TestPred: testPred}, nil
}
