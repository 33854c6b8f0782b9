package spreadsheet

import (
	"bytes"
	"fmt"

	"github.com/teemow/inboxcontent/internal/content"
)

// Default ceilings applied when Options leaves them unset.
const (
	DefaultMaxSheets       = 10
	DefaultMaxRowsPerSheet = 1000
)

// Workbook formats reported in SpreadsheetResult.Format.
const (
	FormatXLSX = "xlsx"
	FormatXLS  = "xls"
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
	FormatODS  = "ods"
	FormatXLSB = "xlsb"
)

// Options bounds how much of a workbook is returned.
type Options struct {
	MaxSheets       int
	MaxRowsPerSheet int
}

// DefaultOptions returns the default ceilings.
func DefaultOptions() Options {
	return Options{
		MaxSheets:       DefaultMaxSheets,
		MaxRowsPerSheet: DefaultMaxRowsPerSheet,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxSheets <= 0 {
		o.MaxSheets = DefaultMaxSheets
	}
	if o.MaxRowsPerSheet <= 0 {
		o.MaxRowsPerSheet = DefaultMaxRowsPerSheet
	}
	return o
}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Parse reads the workbook in data. The format is taken from the file
// signature and the filename extension.
func Parse(data []byte, filename string, opts Options) (result *content.SpreadsheetResult) {
	opts = opts.withDefaults()
	format := DetectFormat(data, filename)

	result = &content.SpreadsheetResult{
		Format:          format,
		Sheets:          []content.Sheet{},
		MaxSheets:       opts.MaxSheets,
		MaxRowsPerSheet: opts.MaxRowsPerSheet,
		OriginalSize:    len(data),
	}

	defer func() {
		if r := recover(); r != nil {
			result.Sheets = []content.Sheet{}
			result.TotalSheets = 0
			result.Note = ""
			result.Error = fmt.Sprintf("failed to parse %s workbook: %v", format, r)
		}
	}()

	if len(data) == 0 {
		result.Error = "empty spreadsheet"
		return result
	}

	var (
		sheets []content.Sheet
		total  int
		err    error
	)
	switch format {
	case FormatXLSX:
		sheets, total, err = parseXLSX(data, opts)
	case FormatXLS:
		sheets, total, err = parseXLS(data, opts)
	case FormatCSV:
		sheets, total, err = parseDelimited(data, ',', opts)
	case FormatTSV:
		sheets, total, err = parseDelimited(data, '\t', opts)
	default:
		err = fmt.Errorf("%s workbooks are not supported", format)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Sheets = sheets
	result.TotalSheets = total
	if total > opts.MaxSheets {
		result.Note = fmt.Sprintf("workbook has %d sheets; showing the first %d", total, opts.MaxSheets)
	}
	return result
}

// DetectFormat picks the workbook format. Container signatures win over the
// extension so that a renamed file is still read correctly.
func DetectFormat(data []byte, filename string) string {
	ext := content.Extension(filename)

	switch {
	case bytes.HasPrefix(data, zipMagic):
		if ext == ".ods" {
			return FormatODS
		}
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		switch ext {
		case ".xlsx", ".xlsm", ".xltx", ".xltm":
			// Encrypted OOXML is wrapped in an OLE container.
			return FormatXLSX
		}
		return FormatXLS
	}

	switch ext {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".xlsb":
		return FormatXLSB
	case ".ods":
		return FormatODS
	case ".tsv":
		return FormatTSV
	case ".csv":
		return FormatCSV
	}
	return sniffDelimiter(data)
}

// sheetBuilder accumulates one sheet while rows are streamed from a reader.
type sheetBuilder struct {
	sheet   content.Sheet
	maxRows int
}

func newSheetBuilder(name string, maxRows int) *sheetBuilder {
	return &sheetBuilder{
		sheet:   content.Sheet{Name: name, Rows: [][]string{}},
		maxRows: maxRows,
	}
}

func (b *sheetBuilder) add(row []string) {
	b.sheet.TotalRows++
	if len(row) > b.sheet.TotalColumns {
		b.sheet.TotalColumns = len(row)
	}
	if len(b.sheet.Rows) < b.maxRows {
		b.sheet.Rows = append(b.sheet.Rows, row)
		return
	}
	b.sheet.Truncated = true
}

func (b *sheetBuilder) build() content.Sheet {
	b.sheet.DisplayedRows = len(b.sheet.Rows)
	return b.sheet
}
