package document

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

// xmlTextRules describes how an office XML vocabulary carries text. Element
// names are matched on their local part.
type xmlTextRules struct {
	// text elements whose character data is kept. When empty, all
	// character data inside a paragraph is kept.
	text       map[string]bool
	paragraphs map[string]bool
	tabs       map[string]bool
	breaks     map[string]bool
	// spaces holds elements that stand for a run of spaces, with the count
	// in the "c" attribute.
	spaces map[string]bool
}

var (
	wordprocessingRules = xmlTextRules{
		text:       set("t"),
		paragraphs: set("p"),
		tabs:       set("tab"),
		breaks:     set("br", "cr"),
	}
	drawingRules = xmlTextRules{
		text:       set("t"),
		paragraphs: set("p"),
		breaks:     set("br"),
	}
	openDocumentRules = xmlTextRules{
		paragraphs: set("p", "h"),
		tabs:       set("tab"),
		breaks:     set("line-break"),
		spaces:     set("s"),
	}
)

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// xmlText walks an office XML part and returns its text, one line per
// paragraph.
func xmlText(r io.Reader, rules xmlTextRules) (string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var (
		sb        strings.Builder
		stack     []string
		textDepth int
		paraDepth int
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			parent := ""
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			stack = append(stack, name)

			switch {
			case rules.paragraphs[name]:
				paraDepth++
			case rules.text[name]:
				textDepth++
			case rules.tabs[name] && parent != "tabs":
				sb.WriteByte('\t')
			case rules.breaks[name]:
				sb.WriteByte('\n')
			case rules.spaces[name]:
				sb.WriteString(strings.Repeat(" ", spaceCount(t)))
			}
		case xml.EndElement:
			name := t.Name.Local
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			switch {
			case rules.paragraphs[name]:
				if paraDepth > 0 {
					paraDepth--
				}
				sb.WriteByte('\n')
			case rules.text[name]:
				if textDepth > 0 {
					textDepth--
				}
			}
		case xml.CharData:
			if textDepth > 0 || (len(rules.text) == 0 && paraDepth > 0) {
				sb.Write(t)
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

func spaceCount(el xml.StartElement) int {
	for _, attr := range el.Attr {
		if attr.Name.Local == "c" {
			if n, err := strconv.Atoi(attr.Value); err == nil && n > 0 && n < 1024 {
				return n
			}
		}
	}
	return 1
}
