package data

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestXLSXSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "laptops.xlsx")
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	rows := [][]any{
		{"id", "Company", "Price"},
		{1, "Dell", 45000},
		{2, "HP"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := book.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	if err := book.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	book.Close()

	f, err := XLSXSource{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Len() != 2 || f.Rows[0][1] != "Dell" || f.Rows[0][2] != "45000" {
		t.Fatalf("unexpected frame %v", f.Rows)
	}
	if len(f.Rows[1]) != 3 || f.Rows[1][2] != "" {
		t.Fatalf("short row must be padded, got %q", f.Rows[1])
	}

	if _, err := (XLSXSource{Path: path, Sheet: "Nope"}).Load(context.Background()); err == nil {
		t.Fatal("expected error for unknown sheet")
	}
	empty := filepath.Join(t.TempDir(), "empty.xlsx")
	eb := excelize.NewFile()
	eb.SetCellValue(eb.GetSheetName(0), "A1", "id")
	if err := eb.SaveAs(empty); err != nil {
		t.Fatal(err)
	}
	eb.Close()
	if _, err := (XLSXSource{Path: empty}).Load(context.Background()); !errors.Is(err, ErrEmpty) {
		t.Fatalf("header-only sheet: err = %v", err)
	}
}
