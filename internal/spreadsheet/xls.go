package spreadsheet

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/teemow/inboxcontent/internal/content"
)

// xlsCharset is used for legacy BIFF5 strings that are not stored as UTF-16.
const xlsCharset = "utf-8"

func parseXLS(data []byte, opts Options) ([]content.Sheet, int, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), xlsCharset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open legacy workbook: %w", err)
	}
	if wb == nil {
		return nil, 0, fmt.Errorf("failed to open legacy workbook: no workbook stream found")
	}

	total := wb.NumSheets()
	sheets := make([]content.Sheet, 0, min(total, opts.MaxSheets))
	for i := 0; i < total && i < opts.MaxSheets; i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		sheets = append(sheets, readXLSSheet(ws, opts.MaxRowsPerSheet))
	}
	return sheets, total, nil
}

func readXLSSheet(ws *xls.WorkSheet, maxRows int) content.Sheet {
	b := newSheetBuilder(ws.Name, maxRows)
	// Rows without cells are only materialised when a later row has content.
	pending := 0
	for i := 0; i <= int(ws.MaxRow); i++ {
		row, ok := xlsRow(ws, i)
		if !ok {
			pending++
			continue
		}
		for ; pending > 0; pending-- {
			b.add([]string{})
		}
		b.add(xlsCells(row))
	}
	return b.build()
}

// xlsRow returns row i. The library dereferences a nil row for indexes that
// hold no cells, so the lookup is guarded.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row, ok bool) {
	defer func() {
		if recover() != nil {
			row, ok = nil, false
		}
	}()
	row = ws.Row(i)
	return row, row != nil
}

// xlsMaxColumns is the BIFF8 column limit.
const xlsMaxColumns = 256

func xlsCells(row *xls.Row) []string {
	last := row.LastCol()
	if last <= 0 {
		// Rows synthesised from cell records carry no bounds.
		return trimTrailingEmpty(scanCells(row, xlsMaxColumns))
	}
	cells := make([]string, last)
	for c := row.FirstCol(); c < last; c++ {
		cells[c] = row.Col(c)
	}
	return cells
}

func scanCells(row *xls.Row, width int) []string {
	cells := make([]string, width)
	for c := range cells {
		cells[c] = row.Col(c)
	}
	return cells
}

func trimTrailingEmpty(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}
