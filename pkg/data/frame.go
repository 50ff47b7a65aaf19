package data

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrEmpty is returned by sources that produced no rows.
var ErrEmpty = errors.New("data: source returned no rows")

// Frame is a small tabular structure: named columns over string cells.
// An empty cell is a missing value.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// Source loads a Frame from somewhere: a document collection, a CSV file, a sheet.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Frame, error)
}

func NewFrame(columns []string, rows [][]string) (*Frame, error) {
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("data: row %d has %d cells, want %d", i, len(r), len(columns))
		}
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Index returns the position of the named column or -1.
func (f *Frame) Index(name string) int { return slices.Index(f.Columns, name) }

// Has reports whether the frame carries the named column.
func (f *Frame) Has(name string) bool { return f.Index(name) >= 0 }

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]string, bool) {
	j := f.Index(name)
	if j < 0 {
		return nil, false
	}
	out := make([]string, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r[j]
	}
	return out, true
}

// Record returns row i keyed by column name.
func (f *Frame) Record(i int) map[string]string {
	rec := make(map[string]string, len(f.Columns))
	for j, c := range f.Columns {
		rec[c] = f.Rows[i][j]
	}
	return rec
}

// Take returns a new frame holding the rows at the given indices, in order.
// Rows are copied so callers may mutate either frame.
func (f *Frame) Take(indices []int) *Frame {
	out := &Frame{Columns: slices.Clone(f.Columns), Rows: make([][]string, len(indices))}
	for k, i := range indices {
		out.Rows[k] = slices.Clone(f.Rows[i])
	}
	return out
}

// Drop returns a copy of the frame without the named columns.
// Names that are not present are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	keep := make([]int, 0, len(f.Columns))
	cols := make([]string, 0, len(f.Columns))
	for j, c := range f.Columns {
		if slices.Contains(names, c) {
			continue
		}
		keep = append(keep, j)
		cols = append(cols, c)
	}
	out := &Frame{Columns: cols, Rows: make([][]string, len(f.Rows))}
	for i, r := range f.Rows {
		row := make([]string, len(keep))
		for k, j := range keep {
			row[k] = r[j]
		}
		out.Rows[i] = row
	}
	return out
}

// FrameSource serves a fixed frame. Useful for fixtures and one-off runs.
type FrameSource struct {
	Frame *Frame
}

func (s FrameSource) Name() string { return "frame" }

func (s FrameSource) Load(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Frame == nil || s.Frame.Len() == 0 {
		return nil, ErrEmpty
	}
	return s.Frame.Take(seq(s.Frame.Len())), nil
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
