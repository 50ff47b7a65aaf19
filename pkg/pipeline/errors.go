package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies pipeline failures.
type Kind string

const (
	KindUnknown          Kind = "unknown"
	KindConfig           Kind = "config"
	KindDataAccess       Kind = "data_access"
	KindSchemaValidation Kind = "schema_validation"
	KindTransformation   Kind = "transformation"
	KindTraining         Kind = "training"
	KindStorage          Kind = "storage"
	KindCancelled        Kind = "cancelled"
	KindBusy             Kind = "busy"
)

var (
	// ErrTrainingInProgress is returned when a run is triggered while another one holds the pipeline.
	ErrTrainingInProgress = errors.New("pipeline: training already in progress")
	// ErrSchemaMismatch is the cause behind every schema validation failure.
	ErrSchemaMismatch = errors.New("pipeline: data does not match schema")
)

// Error is a stage failure with a kind and some context for the logs.
type Error struct {
	Kind    Kind
	Stage   string
	Context map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %v", e.Stage, e.Kind, e.Err)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Context[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// fail wraps err for stage. kv is read as key/value pairs.
func fail(kind Kind, stage string, err error, kv ...string) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindCancelled
	}
	e := &Error{Kind: kind, Stage: stage, Err: err}
	if len(kv) > 1 {
		e.Context = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Context[kv[i]] = kv[i+1]
		}
	}
	return e
}

// KindOf classifies any error returned by this package.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, ErrTrainingInProgress):
		return KindBusy
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	}
	return KindUnknown
}

// StageOf returns the stage that failed, if known.
func StageOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}
