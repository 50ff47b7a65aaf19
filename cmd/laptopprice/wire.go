package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"laptopprice/pkg/artifact"
	"laptopprice/pkg/config"
	"laptopprice/pkg/data"
	"laptopprice/pkg/pipeline"
	"laptopprice/pkg/predict"
	"laptopprice/pkg/runlog"
)

// app holds everything a subcommand needs, built once from the config.
type app struct {
	cfg       config.Config
	log       *slog.Logger
	schema    *pipeline.Schema
	registry  *artifact.Registry
	predictor *predict.Predictor
	history   *runlog.Store
	runner    *pipeline.Runner
}

func newSource(cfg config.Config, schema *pipeline.Schema) (data.Source, error) {
	switch cfg.Source.Kind {
	case "mongodb":
		return data.MongoSource{
			URI:        cfg.MongoDB.URI,
			Database:   cfg.MongoDB.Database,
			Collection: cfg.MongoDB.Collection,
			Order:      schema.ColumnNames(),
			Timeout:    time.Duration(cfg.MongoDB.TimeoutSeconds) * time.Second,
		}, nil
	case "csv":
		return data.CSVSource{Path: cfg.Source.Path}, nil
	case "xlsx":
		return data.XLSXSource{Path: cfg.Source.Path, Sheet: cfg.Source.Sheet}, nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
}

func newStore(ctx context.Context, cfg config.Config) (artifact.Store, error) {
	switch cfg.Storage.Kind {
	case "fs":
		return artifact.NewFSStore(cfg.Storage.Dir)
	case "s3":
		return artifact.NewS3Store(ctx, cfg.Storage.Bucket, cfg.Storage.Region)
	}
	return nil, fmt.Errorf("unknown storage kind %q", cfg.Storage.Kind)
}

// buildApp wires the registry and predictor. withTraining also opens the run
// history and builds the pipeline runner.
func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger, withTraining bool) (*app, error) {
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	a.registry = artifact.NewRegistry(store, cfg.Storage.Prefix, cfg.Storage.Keep, log.With("component", "registry"))
	a.predictor = predict.New(a.registry)
	if !withTraining {
		return a, nil
	}

	if a.schema, err = pipeline.LoadSchema(cfg.Pipeline.SchemaPath); err != nil {
		return nil, err
	}
	source, err := newSource(cfg, a.schema)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(cfg.RunLog.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("runlog: %w", err)
		}
	}
	if a.history, err = runlog.Open(cfg.RunLog.Path); err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}

	a.runner, err = pipeline.NewRunner(pipeline.Options{
		Schema:      a.schema,
		Source:      source,
		Registry:    a.registry,
		History:     a.history,
		Logger:      log.With("component", "pipeline"),
		ArtifactDir: cfg.Pipeline.ArtifactDir,
		Ingestion: pipeline.IngestionConfig{
			TestRatio: cfg.Pipeline.TestRatio,
			Seed:      cfg.Pipeline.Seed,
		},
		Validation: pipeline.ValidationConfig{
			DriftThreshold: cfg.Pipeline.DriftThreshold,
			FailOnDrift:    cfg.Pipeline.FailOnDrift,
		},
		Transformation: pipeline.TransformationConfig{Unknown: cfg.Pipeline.UnknownCategory},
		Trainer: pipeline.TrainerConfig{
			Algorithm:     cfg.Model.Algorithm,
			Alpha:         cfg.Model.Alpha,
			LearningRate:  cfg.Model.LearningRate,
			Epochs:        cfg.Model.Epochs,
			BatchSize:     cfg.Model.BatchSize,
			WeightDecay:   cfg.Model.WeightDecay,
			Seed:          cfg.Pipeline.Seed,
			ExpectedScore: cfg.Model.ExpectedScore,
		},
		Evaluation: pipeline.EvaluationConfig{Threshold: cfg.Evaluation.Threshold},
	})
	if err != nil {
		a.history.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}
