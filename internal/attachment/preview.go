package attachment

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/teemow/inboxcontent/internal/content"
)

const (
	maxLabelLength   = 256
	maxMessageLength = 1024
)

// summarize returns result unchanged when its serialized form fits in half
// of the transport limit, and a shortened preview otherwise. The second
// value reports whether a preview was produced.
func (r *Resolver) summarize(result content.ParsedResult) (content.ParsedResult, bool) {
	budget := r.overflow.MaxSize / 2
	if result == nil || encodedLen(result) <= budget {
		return result, false
	}

	switch res := result.(type) {
	case *content.TextResult:
		return previewText(res, budget), true
	case *content.SpreadsheetResult:
		return previewSpreadsheet(res, budget), true
	case *content.DocumentResult:
		return previewDocument(res, budget), true
	default:
		return nil, true
	}
}

func previewText(res *content.TextResult, budget int) *content.TextResult {
	p := *res
	p.Truncated = true
	p.Content = shrink(res.Content, budget/2, func(s string) bool {
		p.Content = s
		return encodedLen(&p) <= budget
	})
	return &p
}

func previewDocument(res *content.DocumentResult, budget int) *content.DocumentResult {
	p := *res
	p.Truncated = true
	p.Note = "preview only; the full extraction is in the spill file"
	p.Text = shrink(res.Text, budget/2, func(s string) bool {
		p.Text = s
		return encodedLen(&p) <= budget
	})
	return &p
}

func previewSpreadsheet(res *content.SpreadsheetResult, budget int) *content.SpreadsheetResult {
	p := *res
	limit := res.MaxRowsPerSheet
	for {
		p.Sheets = make([]content.Sheet, len(res.Sheets))
		for i, sheet := range res.Sheets {
			if len(sheet.Rows) > limit {
				sheet.Rows = sheet.Rows[:limit]
				sheet.DisplayedRows = limit
				sheet.Truncated = true
			}
			p.Sheets[i] = sheet
		}
		p.Note = fmt.Sprintf("preview limited to %d rows per sheet; the full result is in the spill file", limit)
		if encodedLen(&p) <= budget {
			return &p
		}
		if limit == 0 {
			break
		}
		limit /= 2
	}

	p.Sheets = nil
	p.Note = "sheet contents omitted from the preview; the full result is in the spill file"
	return &p
}

// shrink cuts s to at most start bytes and keeps halving it until fits
// reports true. Cuts fall on rune boundaries.
func shrink(s string, start int, fits func(string) bool) string {
	s = cutUTF8(s, start)
	for !fits(s) && s != "" {
		s = cutUTF8(s, len(s)/2)
	}
	return s
}

// cutUTF8 returns the longest prefix of s that is at most n bytes and ends
// on a rune boundary.
func cutUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func clamp(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return cutUTF8(s, n)
}

func encodedLen(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(b)
}
