package data

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// StreamRows streams CSV records from r through out and closes out when done.
// Every record must have as many fields as the first one. Streaming stops
// early when ctx is cancelled; the returned channel yields the first error.
func StreamRows(ctx context.Context, r io.Reader, out chan<- []string) <-chan error {
	errc := make(chan error, 1)
	reader := csv.NewReader(bufio.NewReader(r))

	go func() {
		defer close(out)
		defer close(errc)
		for {
			if err := ctx.Err(); err != nil {
				errc <- err
				return
			}
			rec, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errc <- err
				return
			}
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			case out <- slices.Clone(rec):
			}
		}
	}()
	return errc
}

// ReadCSV reads a header row followed by data rows into a Frame.
func ReadCSV(ctx context.Context, r io.Reader) (*Frame, error) {
	rows := make(chan []string, 64)
	errc := StreamRows(ctx, r, rows)

	var f *Frame
	for rec := range rows {
		if f == nil {
			f = &Frame{Columns: rec}
			continue
		}
		f.Rows = append(f.Rows, rec)
	}
	if err := <-errc; err != nil {
		return nil, fmt.Errorf("data: read csv: %w", err)
	}
	if f == nil || f.Len() == 0 {
		return nil, ErrEmpty
	}
	return f, nil
}

// WriteCSV writes f with a header row to path, creating parent directories.
func WriteCSV(path string, f *Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if err := w.Write(f.Columns); err != nil {
		file.Close()
		return err
	}
	if err := w.WriteAll(f.Rows); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// CSVSource reads a local CSV export of the collection.
type CSVSource struct {
	Path string
}

func (s CSVSource) Name() string { return "csv:" + s.Path }

func (s CSVSource) Load(ctx context.Context) (*Frame, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	f, err := ReadCSV(ctx, file)
	if errors.Is(err, ErrEmpty) {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return f, err
}
