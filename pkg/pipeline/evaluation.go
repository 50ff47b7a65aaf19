package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"laptopprice/pkg/artifact"
	"laptopprice/pkg/model"
)

type EvaluationConfig struct {
	Threshold float64
}

// Decide applies the acceptance rule: a candidate replaces the deployed model
// only if it improves R² by at least threshold. With nothing deployed the
// candidate always wins.
func Decide(candidate float64, deployed *float64, threshold float64) (accepted bool, difference float64) {
	if deployed == nil {
		return true, candidate
	}
	difference = candidate - *deployed
	return difference >= threshold, difference
}

type Evaluation struct {
	cfg      EvaluationConfig
	registry *artifact.Registry
	log      *slog.Logger
}

func NewEvaluation(cfg EvaluationConfig, registry *artifact.Registry, log *slog.Logger) *Evaluation {
	return &Evaluation{cfg: cfg, registry: registry, log: log}
}

// Run scores the deployed bundle on the same raw test split the candidate was
// scored on, then decides. A deployed bundle that cannot be decoded or cannot
// score the split counts as nothing deployed and is reported in DeployedError.
// Any other read failure aborts the run.
func (s *Evaluation) Run(ctx context.Context, ing *IngestionArtifact, yTest []float64, candidate *TrainerArtifact, dir string) (*EvaluationReport, error) {
	report := &EvaluationReport{CandidateR2: candidate.TestMetrics.R2, Threshold: s.cfg.Threshold}

	deployed, err := s.registry.LoadCurrent(ctx)
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		s.log.Info("no deployed model, candidate accepted by default")
	case errors.Is(err, artifact.ErrCorrupt):
		// An unreadable deployed model has no score and must stay replaceable.
		report.DeployedError = err.Error()
		s.log.Warn("deployed model cannot be decoded", "err", err)
	case err != nil:
		return nil, fail(KindStorage, StageEvaluation, err)
	default:
		report.DeployedVersion = deployed.Version
		pred, perr := deployed.PredictFrame(ing.Test)
		if perr != nil {
			report.DeployedError = perr.Error()
			s.log.Warn("deployed model cannot score current test split", "version", deployed.Version, "err", perr)
			break
		}
		r2 := model.R2(yTest, pred)
		report.DeployedR2 = &r2
	}

	report.Accepted, report.Difference = Decide(report.CandidateR2, report.DeployedR2, s.cfg.Threshold)

	plotPath := filepath.Join(dir, "evaluation", "predicted_vs_actual.png")
	if err := plotPredictions(plotPath, yTest, candidate.TestPred); err != nil {
		s.log.Warn("evaluation plot failed", "err", err)
	} else {
		report.PlotPath = plotPath
	}

	attrs := []any{"accepted", report.Accepted, "candidate_r2", report.CandidateR2, "difference", report.Difference, "threshold", report.Threshold}
	if report.DeployedR2 != nil {
		attrs = append(attrs, "deployed_r2", *report.DeployedR2, "deployed_version", report.DeployedVersion)
	}
	s.log.Info("evaluation finished", attrs...)
	return report, nil
}
