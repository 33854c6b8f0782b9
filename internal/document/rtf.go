package document

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/teemow/inboxcontent/internal/content"
	"golang.org/x/text/encoding/charmap"
)

// rtfSkipDestinations are groups whose content is never body text.
var rtfSkipDestinations = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"info":       true,
	"pict":       true,
	"object":     true,
	"header":     true,
	"footer":     true,
	"headerl":    true,
	"headerr":    true,
	"footerl":    true,
	"footerr":    true,
	"listtable":  true,
	"themedata":  true,
	"datastore":  true,
	"xmlnstbl":   true,
	"rsidtbl":    true,
	"generator":  true,
}

type rtfGroup struct {
	skip bool
	// uc is the number of fallback characters following a \u escape.
	uc int
}

func extractRTF(_ context.Context, data []byte) (Extraction, error) {
	text, err := stripRTF(string(data))
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", content.ErrParse, err)
	}
	return Extraction{Text: text}, nil
}

// stripRTF removes RTF control words and groups, keeping body text. Hex
// escapes and raw 8-bit bytes are decoded as Windows-1252.
func stripRTF(src string) (string, error) {
	if !strings.HasPrefix(strings.TrimLeft(src, " \r\n\t"), `{\rtf`) {
		return "", fmt.Errorf("missing RTF header")
	}

	var (
		sb       strings.Builder
		stack    = []rtfGroup{{uc: 1}}
		skipNext int // fallback characters still to drop after \u
	)
	cur := func() *rtfGroup { return &stack[len(stack)-1] }
	emit := func(s string) {
		if skipNext > 0 {
			skipNext--
			return
		}
		if !cur().skip {
			sb.WriteString(s)
		}
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch c {
		case '{':
			stack = append(stack, *cur())
			i++
		case '}':
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			i++
		case '\r', '\n':
			i++
		case '\\':
			i++
			if i >= len(src) {
				break
			}
			next := src[i]
			switch {
			case next == '\\' || next == '{' || next == '}':
				emit(string(next))
				i++
			case next == '*':
				cur().skip = true
				i++
			case next == '\'':
				if i+3 <= len(src) {
					if b, err := strconv.ParseUint(src[i+1:i+3], 16, 8); err == nil {
						emit(string(charmap.Windows1252.DecodeByte(byte(b))))
					}
					i += 3
				} else {
					i = len(src)
				}
			case next == '~':
				emit(" ")
				i++
			case next == '-' || next == '_':
				i++
			case isASCIILetter(next):
				start := i
				for i < len(src) && isASCIILetter(src[i]) {
					i++
				}
				word := src[start:i]
				paramStart := i
				if i < len(src) && src[i] == '-' {
					i++
				}
				for i < len(src) && src[i] >= '0' && src[i] <= '9' {
					i++
				}
				param := src[paramStart:i]
				if i < len(src) && src[i] == ' ' {
					i++
				}
				handleRTFWord(word, param, cur(), emit, &skipNext)
			default:
				i++
			}
		default:
			if c >= 0x80 {
				emit(string(charmap.Windows1252.DecodeByte(c)))
			} else {
				emit(string(c))
			}
			i++
		}
	}

	return strings.TrimFunc(sb.String(), unicode.IsSpace), nil
}

func handleRTFWord(word, param string, g *rtfGroup, emit func(string), skipNext *int) {
	if rtfSkipDestinations[word] {
		g.skip = true
		return
	}
	switch word {
	case "par", "line", "sect", "page", "row":
		emit("\n")
	case "tab", "cell":
		emit("\t")
	case "emdash":
		emit("\u2014")
	case "endash":
		emit("\u2013")
	case "bullet":
		emit("•")
	case "lquote":
		emit("‘")
	case "rquote":
		emit("’")
	case "ldblquote":
		emit("“")
	case "rdblquote":
		emit("”")
	case "uc":
		if n, err := strconv.Atoi(param); err == nil && n >= 0 {
			g.uc = n
		}
	case "u":
		n, err := strconv.Atoi(param)
		if err != nil {
			return
		}
		if n < 0 {
			n += 65536
		}
		emit(string(rune(n)))
		*skipNext = g.uc
	}
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
