package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestFSStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewFSStore(root)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(ctx, "a/b.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing key err = %v", err)
	}
	if err := s.Put(ctx, "a/b.json", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "a/b.json", []byte("two")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "a/b.json")
	if err != nil || string(got) != "two" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	// A leftover temp file from an interrupted write is invisible.
	if err := os.WriteFile(filepath.Join(root, "a", ".tmp-123"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "c.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}
	keys, err := s.List(ctx, "a/")
	if err != nil || !slices.Equal(keys, []string{"a/b.json"}) {
		t.Fatalf("List(a/) = %v, %v", keys, err)
	}
	all, _ := s.List(ctx, "")
	if !slices.Equal(all, []string{"a/b.json", "c.txt"}) {
		t.Fatalf("List() = %v", all)
	}

	if err := s.Delete(ctx, "a/b.json"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "a/b.json"); err != nil {
		t.Fatalf("deleting a missing key should be a no-op, got %v", err)
	}
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "../x", "/etc/passwd", "a/../../x"} {
		if err := s.Put(context.Background(), key, nil); !errors.Is(err, ErrKeyInvalid) {
			t.Errorf("Put(%q) err = %v", key, err)
		}
	}
	if _, err := NewFSStore(" "); err == nil {
		t.Fatal("blank root accepted")
	}
}
