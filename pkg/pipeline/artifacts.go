package pipeline

import (
	"laptopprice/pkg/artifact"
	"laptopprice/pkg/data"
	"laptopprice/pkg/dataprep"
	"laptopprice/pkg/model"
	"laptopprice/pkg/stats"
)

// Stage names, as they appear in logs, errors and run history.
const (
	StageIngestion      = "ingestion"
	StageValidation     = "validation"
	StageTransformation = "transformation"
	StageTraining       = "training"
	StageEvaluation     = "evaluation"
	StagePush           = "push"
)

// IngestionArtifact is the snapshot of one run's data, split once.
type IngestionArtifact struct {
	Train     *data.Frame
	Test      *data.Frame
	TrainPath string
	TestPath  string
}

// DriftResult compares one numeric column across the split.
type DriftResult struct {
	Train   stats.Summary `yaml:"train"`
	Test    stats.Summary `yaml:"test"`
	Shift   float64       `yaml:"shift"`
	Drifted bool          `yaml:"drifted"`
}

// ValidationReport is written to the run directory as YAML.
type ValidationReport struct {
	Valid         bool                   `yaml:"validation_status"`
	Message       string                 `yaml:"message"`
	DriftDetected bool                   `yaml:"drift_detected"`
	Drift         map[string]DriftResult `yaml:"drift,omitempty"`
}

type ValidationArtifact struct {
	Report     ValidationReport
	ReportPath string
}

// TransformationArtifact carries the fitted preprocessor and the matrices it produced.
type TransformationArtifact struct {
	Preprocessor *dataprep.Preprocessor
	XTrain       [][]float64
	YTrain       []float64
	XTest        [][]float64
	YTest        []float64
}

type TrainerArtifact struct {
	Model        *model.Linear
	TrainMetrics model.Metrics
	TestMetrics  model.Metrics
	TestPred     []float64
}

// EvaluationReport records the accept/reject decision.
type EvaluationReport struct {
	Accepted        bool     `json:"accepted"`
	CandidateR2     float64  `json:"candidate_r2"`
	DeployedR2      *float64 `json:"deployed_r2,omitempty"`
	DeployedVersion string   `json:"deployed_version,omitempty"`
	DeployedError   string   `json:"deployed_error,omitempty"`
	Difference      float64  `json:"difference"`
	Threshold       float64  `json:"threshold"`
	PlotPath        string   `json:"plot_path,omitempty"`
}

type PushArtifact struct {
	Pointer artifact.Pointer
}

// Result summarises a finished run.
type Result struct {
	RunID      string            `json:"run_id"`
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Metrics    model.Metrics     `json:"metrics"`
	Evaluation EvaluationReport  `json:"evaluation"`
	Pointer    *artifact.Pointer `json:"pointer,omitempty"`
	RunDir     string            `json:"run_dir"`
}
