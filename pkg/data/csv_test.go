package data

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestCSVRoundTrip(t *testing.T) {
	f := sample()
	path := filepath.Join(t.TempDir(), "nested", "train.csv")
	if err := WriteCSV(path, f); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got, err := CSVSource{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(got.Columns, f.Columns) || !slices.EqualFunc(got.Rows, f.Rows, slices.Equal[[]string]) {
		t.Fatalf("round trip mismatch: %v %v", got.Columns, got.Rows)
	}
}

func TestReadCSVErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := ReadCSV(ctx, strings.NewReader("a,b\n")); !errors.Is(err, ErrEmpty) {
		t.Fatalf("header only: err = %v", err)
	}
	if _, err := ReadCSV(ctx, strings.NewReader("a,b\n1,2,3\n")); err == nil {
		t.Fatal("expected error for ragged record")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := ReadCSV(cancelled, strings.NewReader("a\n1\n2\n")); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled read: err = %v", err)
	}
}
