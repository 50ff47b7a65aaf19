package artifact

import (
	"errors"
	"testing"

	"laptopprice/pkg/data"
)

func TestBundleBinaryRoundTrip(t *testing.T) {
	b := testBundle(t, "v1", 0.7)
	raw, err := b.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var got Bundle
	if err := got.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got.Version != "v1" || got.Target != "Price" || !got.CreatedAt.Equal(b.CreatedAt) {
		t.Fatalf("metadata lost: %+v", got)
	}

	f := &data.Frame{Columns: []string{"Ram", "Company"}, Rows: [][]string{{"4", "Dell"}, {"", "HP"}}}
	want, err := b.PredictFrame(f)
	if err != nil {
		t.Fatal(err)
	}
	pred, err := got.PredictFrame(f)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if pred[i] != want[i] {
			t.Fatalf("row %d: %v != %v", i, pred[i], want[i])
		}
	}
}

func TestBundleIncomplete(t *testing.T) {
	b := testBundle(t, "v1", 0.7)
	b.Model = nil
	if _, err := b.MarshalBinary(); err == nil {
		t.Fatal("bundle without model marshalled")
	}
	var got Bundle
	if err := got.UnmarshalBinary([]byte("not gob")); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("garbage decode err = %v, want ErrCorrupt", err)
	}
}
