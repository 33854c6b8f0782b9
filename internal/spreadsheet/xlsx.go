package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/teemow/inboxcontent/internal/content"
	"github.com/xuri/excelize/v2"
)

func parseXLSX(data []byte, opts Options) ([]content.Sheet, int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if f != nil {
		defer func() { _ = f.Close() }()
	}
	if err != nil {
		switch {
		case errors.Is(err, excelize.ErrWorkbookFileFormat), errors.Is(err, excelize.ErrWorkbookPassword):
			return nil, 0, fmt.Errorf("workbook is password-protected or not a valid OOXML file: %w", err)
		default:
			return nil, 0, fmt.Errorf("failed to open workbook: %w", err)
		}
	}

	names := f.GetSheetList()
	sheets := make([]content.Sheet, 0, min(len(names), opts.MaxSheets))
	for i, name := range names {
		if i >= opts.MaxSheets {
			break
		}
		sheet, err := readXLSXSheet(f, name, opts.MaxRowsPerSheet)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		sheets = append(sheets, sheet)
	}
	return sheets, len(names), nil
}

func readXLSXSheet(f *excelize.File, name string, maxRows int) (content.Sheet, error) {
	rows, err := f.Rows(name)
	if err != nil {
		return content.Sheet{}, err
	}
	defer func() { _ = rows.Close() }()

	b := newSheetBuilder(name, maxRows)
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return content.Sheet{}, err
		}
		b.add(cols)
	}
	if err := rows.Error(); err != nil {
		return content.Sheet{}, err
	}
	return b.build(), nil
}
