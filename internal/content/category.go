package content

import (
	"bytes"
	"mime"
	"path/filepath"
	"strings"
)

// Category is the semantic content category of an attachment.
type Category string

const (
	CategoryText           Category = "text"
	CategorySpreadsheet    Category = "spreadsheet"
	CategoryOfficeDocument Category = "office-document"
	CategoryBinary         Category = "binary"
)

// SniffLength is the number of leading bytes inspected when neither the MIME
// type nor the filename identifies the content.
const SniffLength = 200

var spreadsheetMimeTypes = map[string]bool{
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":    true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.template": true,
	"application/vnd.ms-excel.sheet.macroenabled.12":                       true,
	"application/vnd.ms-excel.template.macroenabled.12":                    true,
	"application/vnd.ms-excel.sheet.binary.macroenabled.12":                true,
	"application/vnd.oasis.opendocument.spreadsheet":                       true,
	"text/csv":                  true,
	"application/csv":           true,
	"text/tab-separated-values": true,
}

var spreadsheetExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
	".xls":  true,
	".xlsb": true,
	".ods":  true,
	".csv":  true,
	".tsv":  true,
}

var officeMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.template":   true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.openxmlformats-officedocument.presentationml.slideshow":    true,
	"application/vnd.oasis.opendocument.text":                                   true,
	"application/vnd.oasis.opendocument.presentation":                           true,
	"application/rtf": true,
	"text/rtf":        true,
}

var officeExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".dotx": true,
	".ppt":  true,
	".pptx": true,
	".ppsx": true,
	".odt":  true,
	".odp":  true,
	".rtf":  true,
}

var textMimePrefixes = []string{
	"text/",
	"application/json",
	"application/xml",
	"application/javascript",
	"application/x-javascript",
	"application/ecmascript",
	"application/x-yaml",
	"application/yaml",
	"application/x-sh",
	"application/sql",
	"application/graphql",
	"application/ld+json",
	"application/xhtml+xml",
	"message/rfc822",
	"image/svg+xml",
}

var textMimeSuffixes = []string{"+json", "+xml"}

var textExtensions = map[string]bool{
	".txt": true, ".text": true, ".md": true, ".markdown": true, ".rst": true,
	".log": true, ".json": true, ".xml": true, ".html": true, ".htm": true,
	".xhtml": true, ".css": true, ".js": true, ".mjs": true, ".ts": true,
	".yaml": true, ".yml": true, ".toml": true, ".ini": true, ".cfg": true,
	".conf": true, ".env": true, ".sh": true, ".bat": true, ".ps1": true,
	".py": true, ".go": true, ".java": true, ".c": true, ".h": true,
	".cpp": true, ".cs": true, ".rb": true, ".php": true, ".sql": true,
	".ics": true, ".vcf": true, ".eml": true, ".svg": true, ".tex": true,
}

// genericMimeTypes carry no information about the payload.
var genericMimeTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
	"application/unknown":      true,
}

// Classify assigns a Category from the declared MIME type, the filename and,
// when both are uninformative, a sample of the leading bytes. An extension
// that names no known format is as uninformative as none. The first
// matching rule wins; the fallback is CategoryBinary.
func Classify(mimeType, filename string, sample []byte) Category {
	mt := NormalizeMimeType(mimeType)
	ext := Extension(filename)

	switch {
	case spreadsheetMimeTypes[mt]:
		return CategorySpreadsheet
	case spreadsheetExtensions[ext]:
		return CategorySpreadsheet
	case officeMimeTypes[mt]:
		return CategoryOfficeDocument
	case officeExtensions[ext]:
		return CategoryOfficeDocument
	case isTextMimeType(mt):
		return CategoryText
	case textExtensions[ext]:
		return CategoryText
	}

	if genericMimeTypes[mt] && len(sample) > 0 && LooksLikeText(sample) {
		return CategoryText
	}
	return CategoryBinary
}

// IsSpreadsheet reports whether the MIME type or filename names a spreadsheet format.
func IsSpreadsheet(mimeType, filename string) bool {
	return spreadsheetMimeTypes[NormalizeMimeType(mimeType)] || spreadsheetExtensions[Extension(filename)]
}

// IsOfficeDocument reports whether the MIME type or filename names a
// paginated or word-processing format.
func IsOfficeDocument(mimeType, filename string) bool {
	return officeMimeTypes[NormalizeMimeType(mimeType)] || officeExtensions[Extension(filename)]
}

// IsText reports whether the MIME type or filename names a textual format.
func IsText(mimeType, filename string) bool {
	return isTextMimeType(NormalizeMimeType(mimeType)) || textExtensions[Extension(filename)]
}

func isTextMimeType(mt string) bool {
	if mt == "" {
		return false
	}
	for _, prefix := range textMimePrefixes {
		if strings.HasPrefix(mt, prefix) {
			return true
		}
	}
	for _, suffix := range textMimeSuffixes {
		if strings.HasSuffix(mt, suffix) {
			return true
		}
	}
	return false
}

// LooksLikeText sniffs the first SniffLength bytes for HTML, XML or JSON
// leading markers.
func LooksLikeText(sample []byte) bool {
	if len(sample) > SniffLength {
		sample = sample[:SniffLength]
	}
	sample = bytes.TrimPrefix(sample, utf8BOM)
	sample = bytes.TrimLeft(sample, " \t\r\n")
	if len(sample) == 0 {
		return false
	}

	lower := bytes.ToLower(sample)
	for _, marker := range [][]byte{
		[]byte("<!doctype html"),
		[]byte("<html"),
		[]byte("<?xml"),
	} {
		if bytes.HasPrefix(lower, marker) {
			return true
		}
	}
	return sample[0] == '{' || sample[0] == '['
}

// NormalizeMimeType lowercases a MIME type and strips any parameters.
func NormalizeMimeType(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// Extension returns the lowercased extension of filename including the dot,
// or "" when there is none.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
}
