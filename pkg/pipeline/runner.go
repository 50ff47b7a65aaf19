package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"laptopprice/pkg/artifact"
	"laptopprice/pkg/data"
	"laptopprice/pkg/runlog"
)

// History records run outcomes. *runlog.Store satisfies it.
type History interface {
	Begin(ctx context.Context, r runlog.Run) error
	Complete(ctx context.Context, r runlog.Run) error
}

// Options wires a Runner. Schema, Source and Registry are required.
type Options struct {
	Schema      *Schema
	Source      data.Source
	Registry    *artifact.Registry
	History     History
	Logger      *slog.Logger
	ArtifactDir string

	Ingestion      IngestionConfig
	Validation     ValidationConfig
	Transformation TransformationConfig
	Trainer        TrainerConfig
	Evaluation     EvaluationConfig
}

// Runner executes the training pipeline end to end. At most one run is in
// flight per Runner; a second trigger gets ErrTrainingInProgress.
type Runner struct {
	opts    Options
	mu      sync.Mutex
	running atomic.Bool
	now     func() time.Time
	newID   func() string
}

func NewRunner(opts Options) (*Runner, error) {
	switch {
	case opts.Schema == nil:
		return nil, fail(KindConfig, "", errors.New("runner needs a schema"))
	case opts.Source == nil:
		return nil, fail(KindConfig, "", errors.New("runner needs a data source"))
	case opts.Registry == nil:
		return nil, fail(KindConfig, "", errors.New("runner needs a model registry"))
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ArtifactDir == "" {
		opts.ArtifactDir = "artifacts"
	}
	return &Runner{opts: opts, now: time.Now, newID: uuid.NewString}, nil
}

// Running reports whether a run currently holds the pipeline.
func (r *Runner) Running() bool { return r.running.Load() }

// Run executes every stage once. trigger names what started the run (http,
// cli, schedule) and is only recorded. The candidate is pushed only when the
// evaluation accepts it; a rejected run returns a Result and no error.
func (r *Runner) Run(ctx context.Context, trigger string) (*Result, error) {
	if !r.mu.TryLock() {
		r.opts.Logger.Warn("training trigger rejected, run in progress", "trigger", trigger)
		return nil, ErrTrainingInProgress
	}
	defer r.mu.Unlock()
	r.running.Store(true)
	defer r.running.Store(false)

	start := r.now()
	runID := r.newID()
	log := r.opts.Logger.With("run_id", runID, "trigger", trigger)
	dir := filepath.Join(r.opts.ArtifactDir, start.UTC().Format("20060102T150405Z")+"-"+runID)

	rec := runlog.Run{ID: runID, Trigger: trigger, StartedAt: start, Status: runlog.StatusRunning}
	if r.opts.History != nil {
		if err := r.opts.History.Begin(ctx, rec); err != nil {
			log.Warn("record run start failed", "err", err)
		}
	}
	log.Info("pipeline started", "dir", dir)

	res, err := r.execute(ctx, log, runID, start, dir)

	finished := r.now()
	rec.FinishedAt = &finished
	if err != nil {
		rec.Status = runlog.StatusFailed
		rec.Stage = StageOf(err)
		rec.ErrorKind = string(KindOf(err))
		rec.Message = err.Error()
		log.Error("pipeline failed", "stage", rec.Stage, "kind", rec.ErrorKind, "err", err)
	} else {
		rec.Status = res.Status
		rec.CandidateR2 = &res.Evaluation.CandidateR2
		rec.DeployedR2 = res.Evaluation.DeployedR2
		rec.Version = res.Version
		log.Info("pipeline finished", "status", res.Status, "version", res.Version, "elapsed", finished.Sub(start).String())
	}
	if r.opts.History != nil {
		if herr := r.opts.History.Complete(context.WithoutCancel(ctx), rec); herr != nil {
			log.Warn("record run outcome failed", "err", herr)
		}
	}
	return res, err
}

func (r *Runner) execute(ctx context.Context, log *slog.Logger, runID string, start time.Time, dir string) (*Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fail(KindStorage, StageIngestion, err, "dir", dir)
	}
	stage := func(name string) *slog.Logger { return log.With("stage", name) }

	ing, err := NewIngestion(r.opts.Ingestion, r.opts.Source, stage(StageIngestion)).Run(ctx, dir)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx, StageValidation); err != nil {
		return nil, err
	}
	if _, err := NewValidation(r.opts.Validation, r.opts.Schema, stage(StageValidation)).Run(ing, dir); err != nil {
		return nil, err
	}
	if err := checkpoint(ctx, StageTransformation); err != nil {
		return nil, err
	}
	tr, err := NewTransformation(r.opts.Transformation, r.opts.Schema, stage(StageTransformation)).Run(ing)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx, StageTraining); err != nil {
		return nil, err
	}
	trained, err := NewTrainer(r.opts.Trainer, stage(StageTraining)).Run(tr)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx, StageEvaluation); err != nil {
		return nil, err
	}
	eval, err := NewEvaluation(r.opts.Evaluation, r.opts.Registry, stage(StageEvaluation)).Run(ctx, ing, tr.YTest, trained, dir)
	if err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(dir, "evaluation", "report.json"), eval); err != nil {
		log.Warn("write evaluation report failed", "err", err)
	}

	res := &Result{
		RunID:      runID,
		Status:     runlog.StatusRejected,
		Metrics:    trained.TestMetrics,
		Evaluation: *eval,
		RunDir:     dir,
	}
	if !eval.Accepted {
		return res, nil
	}
	if err := checkpoint(ctx, StagePush); err != nil {
		return nil, err
	}

	b := &artifact.Bundle{
		Version:      artifact.NewVersion(start, runID),
		RunID:        runID,
		CreatedAt:    start.UTC(),
		Target:       r.opts.Schema.TargetColumn,
		Preprocessor: tr.Preprocessor,
		Model:        trained.Model,
		Metrics:      trained.TestMetrics,
	}
	pushed, err := NewPusher(r.opts.Registry, stage(StagePush)).Run(ctx, b)
	if err != nil {
		return nil, err
	}
	res.Status = runlog.StatusAccepted
	res.Version = pushed.Pointer.Version
	res.Pointer = &pushed.Pointer
	return res, nil
}

// checkpoint stops the run between stages once ctx is done.
func checkpoint(ctx context.Context, next string) error {
	if err := ctx.Err(); err != nil {
		return fail(KindCancelled, next, fmt.Errorf("cancelled before %s: %w", next, err))
	}
	return nil
}
