package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"

	"laptopprice/pkg/data"
	"laptopprice/pkg/loader"
)

type IngestionConfig struct {
	TestRatio float64
	Seed      int64
}

// Ingestion pulls the collection once and splits it into train and test.
type Ingestion struct {
	cfg    IngestionConfig
	source data.Source
	log    *slog.Logger
}

func NewIngestion(cfg IngestionConfig, source data.Source, log *slog.Logger) *Ingestion {
	return &Ingestion{cfg: cfg, source: source, log: log}
}

// Run loads the source and writes train.csv/test.csv under dir/ingestion.
func (s *Ingestion) Run(ctx context.Context, dir string) (*IngestionArtifact, error) {
	s.log.Info("loading source", "source", s.source.Name())
	f, err := s.source.Load(ctx)
	if err != nil {
		return nil, fail(KindDataAccess, StageIngestion, err, "source", s.source.Name())
	}
	if f.Len() == 0 {
		return nil, fail(KindDataAccess, StageIngestion, data.ErrEmpty, "source", s.source.Name())
	}
	s.log.Info("source loaded", "rows", f.Len(), "columns", len(f.Columns))

	train, test, err := loader.TrainTestSplit(f, s.cfg.TestRatio, s.cfg.Seed)
	if err != nil {
		return nil, fail(KindDataAccess, StageIngestion, err, "rows", strconv.Itoa(f.Len()))
	}

	art := &IngestionArtifact{
		Train:     train,
		Test:      test,
		TrainPath: filepath.Join(dir, "ingestion", "train.csv"),
		TestPath:  filepath.Join(dir, "ingestion", "test.csv"),
	}
	if err := errors.Join(data.WriteCSV(art.TrainPath, train), data.WriteCSV(art.TestPath, test)); err != nil {
		return nil, fail(KindStorage, StageIngestion, err, "dir", dir)
	}
	s.log.Info("split written", "train_rows", train.Len(), "test_rows", test.Len(), "train_path", art.TrainPath)
	return art, nil
}
