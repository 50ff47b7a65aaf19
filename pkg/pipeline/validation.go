package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"laptopprice/pkg/data"
	"laptopprice/pkg/dataprep"
	"laptopprice/pkg/stats"
)

type ValidationConfig struct {
	DriftThreshold float64
	FailOnDrift    bool
}

// Validation checks both halves of the split against the schema.
type Validation struct {
	cfg    ValidationConfig
	schema *Schema
	log    *slog.Logger
}

func NewValidation(cfg ValidationConfig, schema *Schema, log *slog.Logger) *Validation {
	return &Validation{cfg: cfg, schema: schema, log: log}
}

// CheckFrame lists every way f departs from the schema. An empty list means it conforms.
func (s *Validation) CheckFrame(f *data.Frame) []string {
	var problems []string
	want := s.schema.ColumnNames()
	if len(f.Columns) != len(want) {
		problems = append(problems, fmt.Sprintf("has %d columns, schema declares %d", len(f.Columns), len(want)))
	}
	for _, c := range want {
		if !f.Has(c) {
			problems = append(problems, fmt.Sprintf("missing column %s", c))
		}
	}
	for _, c := range f.Columns {
		if !slices.Contains(want, c) {
			problems = append(problems, fmt.Sprintf("unexpected column %s", c))
		}
	}
	for _, c := range want {
		t, _ := s.schema.ColumnType(c)
		if t == TypeString {
			continue
		}
		col, ok := f.Column(c)
		if !ok {
			continue
		}
		for i, v := range col {
			if !conforms(v, t) {
				problems = append(problems, fmt.Sprintf("column %s row %d: %q is not %s", c, i, v, t))
				break
			}
		}
	}
	return problems
}

// Drift compares numeric columns between train and test.
func (s *Validation) Drift(train, test *data.Frame) map[string]DriftResult {
	out := map[string]DriftResult{}
	for _, c := range s.schema.NumericalColumns {
		if slices.Contains(s.schema.DropColumns, c) {
			continue
		}
		a, okA := numeric(train, c)
		b, okB := numeric(test, c)
		if !okA || !okB {
			continue
		}
		r := DriftResult{Train: stats.Describe(a), Test: stats.Describe(b)}
		r.Shift = stats.MeanShift(r.Train, r.Test)
		r.Drifted = r.Shift > s.cfg.DriftThreshold
		if math.IsInf(r.Shift, 0) {
			r.Shift = math.MaxFloat64
		}
		out[c] = r
	}
	return out
}

// Run validates the ingestion artifact and writes the report to dir/validation/report.yaml.
// An invalid report is returned together with a schema_validation error.
func (s *Validation) Run(ing *IngestionArtifact, dir string) (*ValidationArtifact, error) {
	var problems []string
	for _, p := range s.CheckFrame(ing.Train) {
		problems = append(problems, "train: "+p)
	}
	for _, p := range s.CheckFrame(ing.Test) {
		problems = append(problems, "test: "+p)
	}

	report := ValidationReport{Valid: len(problems) == 0}
	if report.Valid {
		report.Drift = s.Drift(ing.Train, ing.Test)
		var drifted []string
		for c, r := range report.Drift {
			if r.Drifted {
				drifted = append(drifted, c)
			}
		}
		slices.Sort(drifted)
		report.DriftDetected = len(drifted) > 0
		if report.DriftDetected {
			s.log.Warn("numeric drift detected", "columns", drifted)
			if s.cfg.FailOnDrift {
				report.Valid = false
				problems = append(problems, "drift in "+strings.Join(drifted, ", "))
			}
		}
	}
	report.Message = strings.Join(problems, "; ")

	art := &ValidationArtifact{Report: report, ReportPath: filepath.Join(dir, "validation", "report.yaml")}
	if err := writeYAML(art.ReportPath, report); err != nil {
		s.log.Warn("write validation report failed", "err", err)
	}
	if !report.Valid {
		return art, fail(KindSchemaValidation, StageValidation, fmt.Errorf("%w: %s", ErrSchemaMismatch, report.Message))
	}
	s.log.Info("validation passed", "drift_detected", report.DriftDetected)
	return art, nil
}

// conforms reports whether a raw cell can be read as typ. Missing cells conform.
func conforms(v, typ string) bool {
	if dataprep.IsMissing(v) {
		return true
	}
	switch typ {
	case TypeInt:
		_, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return err == nil
	case TypeFloat:
		_, err := dataprep.ParseNumeric(v)
		return err == nil
	}
	return true
}

func numeric(f *data.Frame, name string) ([]float64, bool) {
	col, ok := f.Column(name)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(col))
	for _, v := range col {
		x, err := dataprep.ParseNumeric(v)
		if err != nil {
			return nil, false
		}
		out = append(out, x)
	}
	return out, true
}

func writeYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
