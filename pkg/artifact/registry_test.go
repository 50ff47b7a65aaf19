package artifact

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"laptopprice/pkg/data"
	"laptopprice/pkg/dataprep"
	"laptopprice/pkg/model"
)

func testBundle(t *testing.T, version string, r2 float64) *Bundle {
	t.Helper()
	pre := dataprep.NewPreprocessor(dataprep.FeatureSpec{Scaled: []string{"Ram"}, Categorical: []string{"Company"}})
	err := pre.Fit(&data.Frame{
		Columns: []string{"Ram", "Company"},
		Rows:    [][]string{{"4", "HP"}, {"8", "Dell"}, {"16", "Dell"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &Bundle{
		Version:      version,
		RunID:        "run-" + version,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Target:       "Price",
		Preprocessor: pre,
		Model:        &model.Linear{Algorithm: "ols", W: []float64{1000, 500, -200}, B: 40000},
		Metrics:      model.Metrics{R2: r2, Rows: 3},
	}
}

// flakyStore fails every Put whose key contains failOn.
type flakyStore struct {
	Store
	failOn string
}

func (s flakyStore) Put(ctx context.Context, key string, body []byte) error {
	if s.failOn != "" && strings.Contains(key, s.failOn) {
		return errors.New("disk full")
	}
	return s.Store.Put(ctx, key, body)
}

func newRegistry(t *testing.T, keep int) (*Registry, *FSStore) {
	t.Helper()
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRegistry(fs, "models", keep, nil), fs
}

func TestRegistryPublishAndLoad(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t, 0)

	if _, err := reg.Current(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty registry err = %v", err)
	}
	b := testBundle(t, "v1", 0.8)
	ptr, err := reg.Publish(ctx, b)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ptr.Version != "v1" || ptr.Key != "models/versions/v1/bundle.gob" || ptr.R2 != 0.8 {
		t.Fatalf("pointer = %+v", ptr)
	}

	loaded, err := reg.LoadCurrent(ctx)
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	rec := map[string]string{"Ram": "8", "Company": "HP"}
	want, _ := b.Predict(rec)
	got, err := loaded.Predict(rec)
	if err != nil || got != want {
		t.Fatalf("loaded bundle predicts %v (%v), want %v", got, err, want)
	}
}

func TestRegistryFailedPublishKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	reg, fs := newRegistry(t, 0)
	if _, err := reg.Publish(ctx, testBundle(t, "v1", 0.8)); err != nil {
		t.Fatal(err)
	}

	for _, failOn := range []string{"v2/bundle.gob", "v2/metrics.json", "current.json"} {
		broken := NewRegistry(flakyStore{Store: fs, failOn: failOn}, "models", 0, nil)
		if _, err := broken.Publish(ctx, testBundle(t, "v2", 0.9)); err == nil {
			t.Fatalf("publish with failing %s succeeded", failOn)
		}
		ptr, err := reg.Current(ctx)
		if err != nil || ptr.Version != "v1" {
			t.Fatalf("after failing %s, current = %+v, %v", failOn, ptr, err)
		}
	}
}

func TestRegistryPrune(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t, 2)
	for _, v := range []string{"v1", "v2", "v3", "v4"} {
		if _, err := reg.Publish(ctx, testBundle(t, v, 0.5)); err != nil {
			t.Fatal(err)
		}
	}
	versions, err := reg.Versions(ctx)
	if err != nil || !slices.Equal(versions, []string{"v3", "v4"}) {
		t.Fatalf("versions = %v, %v", versions, err)
	}
	if ptr, _ := reg.Current(ctx); ptr.Version != "v4" {
		t.Fatalf("current = %s", ptr.Version)
	}
}

func TestNewVersion(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 6, 0, time.FixedZone("IST", 19800))
	got := NewVersion(at, "0b1e2c3d-aaaa-bbbb-cccc-000000000000")
	if got != "20240309T083506Z-0b1e2c3d" {
		t.Fatalf("NewVersion = %q", got)
	}
}
