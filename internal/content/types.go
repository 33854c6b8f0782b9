package content

import (
	"encoding/json"
	"fmt"
	"time"
)

// ParsedResult is the category-specific view of a decoded attachment.
// Exactly one of TextResult, SpreadsheetResult, DocumentResult or
// BinaryResult.
type ParsedResult interface {
	Category() Category
}

// TextResult holds a text attachment decoded in full.
type TextResult struct {
	Content  string `json:"content"`
	Size     int    `json:"size"`
	Encoding string `json:"encoding"`
	// Truncated is only set when the overflow path had to shorten Content.
	Truncated bool `json:"truncated,omitempty"`
}

// Category implements ParsedResult.
func (*TextResult) Category() Category { return CategoryText }

// Sheet is one worksheet of a parsed spreadsheet.
type Sheet struct {
	Name          string     `json:"name"`
	TotalRows     int        `json:"totalRows"`
	TotalColumns  int        `json:"totalColumns"`
	DisplayedRows int        `json:"displayedRows"`
	Rows          [][]string `json:"rows"`
	Truncated     bool       `json:"truncated"`
}

// SpreadsheetResult is the bounded tabular view of a workbook.
type SpreadsheetResult struct {
	Format          string  `json:"format,omitempty"`
	Sheets          []Sheet `json:"sheets"`
	TotalSheets     int     `json:"totalSheets"`
	MaxSheets       int     `json:"maxSheets"`
	MaxRowsPerSheet int     `json:"maxRowsPerSheet"`
	OriginalSize    int     `json:"originalSize"`
	Note            string  `json:"note,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// Category implements ParsedResult.
func (*SpreadsheetResult) Category() Category { return CategorySpreadsheet }

// DocumentResult is the plain text extracted from an office document.
type DocumentResult struct {
	Text            string `json:"text"`
	Format          string `json:"format,omitempty"`
	Pages           int    `json:"pages,omitempty"`
	OriginalSize    int    `json:"originalSize"`
	ExtractedLength int    `json:"extractedLength"`
	MaxTextLength   int    `json:"maxTextLength"`
	Truncated       bool   `json:"truncated"`
	Note            string `json:"note,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Category implements ParsedResult.
func (*DocumentResult) Category() Category { return CategoryOfficeDocument }

// BinaryResult describes content that is not interpreted.
type BinaryResult struct {
	Size      int    `json:"size"`
	SizeHuman string `json:"sizeHuman"`
	MimeType  string `json:"mimeType,omitempty"`
	Note      string `json:"note,omitempty"`
}

// Category implements ParsedResult.
func (*BinaryResult) Category() Category { return CategoryBinary }

// Envelope is the inline response for one resolved attachment.
type Envelope struct {
	Category         Category     `json:"category"`
	Filename         string       `json:"filename,omitempty"`
	MimeType         string       `json:"mimeType,omitempty"`
	Size             int          `json:"size"`
	Result           ParsedResult `json:"result,omitempty"`
	RawBase64        string       `json:"rawBase64,omitempty"`
	MCPLimitExceeded bool         `json:"mcpLimitExceeded,omitempty"`
	Error            *Failure     `json:"error,omitempty"`
}

// UnmarshalJSON decodes the result as the variant named by the category.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	type plain Envelope
	aux := struct {
		*plain
		Result json.RawMessage `json:"result,omitempty"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	result, err := DecodeResult(e.Category, aux.Result)
	if err != nil {
		return err
	}
	e.Result = result
	return nil
}

// DecodeResult decodes data as the ParsedResult of category. Empty or null
// data yields a nil result.
func DecodeResult(category Category, data []byte) (ParsedResult, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var result ParsedResult
	switch category {
	case CategoryText:
		result = &TextResult{}
	case CategorySpreadsheet:
		result = &SpreadsheetResult{}
	case CategoryOfficeDocument:
		result = &DocumentResult{}
	case CategoryBinary:
		result = &BinaryResult{}
	default:
		return nil, fmt.Errorf("unknown category %q", category)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", category, err)
	}
	return result, nil
}

// SpillRecord describes a payload written to the work directory instead of
// being returned inline.
type SpillRecord struct {
	Path             string    `json:"path"`
	Filename         string    `json:"filename"`
	Size             int64     `json:"size"`
	OriginalFilename string    `json:"originalFilename"`
	CreatedAt        time.Time `json:"createdAt"`
}

// RawContent is an attachment payload as received from the upstream source.
type RawContent struct {
	Data     []byte
	MimeType string
	Filename string
}

// Sample returns at most SniffLength leading bytes of the payload.
func (r RawContent) Sample() []byte {
	if len(r.Data) > SniffLength {
		return r.Data[:SniffLength]
	}
	return r.Data
}
