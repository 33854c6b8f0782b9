package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/teemow/inboxcontent/internal/content"
)

func parseDelimited(data []byte, delimiter rune, opts Options) ([]content.Sheet, int, error) {
	text, _ := content.DecodeText(data)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	b := newSheetBuilder("Sheet1", opts.MaxRowsPerSheet)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read delimited data: %w", err)
		}
		b.add(record)
	}
	return []content.Sheet{b.build()}, 1, nil
}

// sniffDelimiter guesses between comma and tab separated text from the
// first line.
func sniffDelimiter(data []byte) string {
	line := data
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.Count(line, []byte{'\t'}) > bytes.Count(line, []byte{','}) {
		return FormatTSV
	}
	return FormatCSV
}
