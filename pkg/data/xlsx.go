package data

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXSource reads a spreadsheet whose first row is the header.
type XLSXSource struct {
	Path  string
	Sheet string // defaults to the first sheet
}

func (s XLSXSource) Name() string { return "xlsx:" + s.Path }

func (s XLSXSource) Load(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	book, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("data: open %s: %w", s.Path, err)
	}
	defer book.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheet = book.GetSheetName(0)
	}
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("data: read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: %w", s.Name(), ErrEmpty)
	}

	header := rows[0]
	f := &Frame{Columns: header, Rows: make([][]string, 0, len(rows)-1)}
	for _, r := range rows[1:] {
		// GetRows trims trailing empty cells; pad back to the header width.
		row := make([]string, len(header))
		copy(row, r)
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}
