package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/teemow/inboxcontent/internal/content"
	"github.com/teemow/inboxcontent/internal/logging"
)

// DefaultMaxTextLength is the number of characters kept when the caller
// does not set a ceiling.
const DefaultMaxTextLength = 50000

// TruncationMarker is appended to text cut at the ceiling.
const TruncationMarker = "..."

// Document formats reported in DocumentResult.Format.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatPPTX = "pptx"
	FormatODT  = "odt"
	FormatODP  = "odp"
	FormatRTF  = "rtf"
	FormatDOC  = "doc"
	FormatPPT  = "ppt"
)

var (
	// ErrUnsupportedFormat is returned for formats without an extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtractTimeout is reported when extraction outlives the configured timeout.
	ErrExtractTimeout = errors.New("document extraction timed out")
)

// Extraction is the raw output of an extractor.
type Extraction struct {
	Text  string
	Pages int
}

// Extractor pulls text out of one document format.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Extraction, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, data []byte) (Extraction, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (Extraction, error) {
	return f(ctx, data)
}

// Parser turns office documents into bounded plain text.
type Parser struct {
	extractors     map[string]Extractor
	runner         CommandRunner
	extractTimeout time.Duration
	logger         *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithCommandRunner sets the runner used for the pdftotext fallback.
func WithCommandRunner(runner CommandRunner) Option {
	return func(p *Parser) {
		p.runner = runner
	}
}

// WithExtractTimeout bounds a single extraction. Zero means no bound
// beyond the caller's context.
func WithExtractTimeout(d time.Duration) Option {
	return func(p *Parser) {
		p.extractTimeout = d
	}
}

// WithExtractor replaces the extractor for format.
func WithExtractor(format string, e Extractor) Option {
	return func(p *Parser) {
		p.extractors[format] = e
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a Parser with the built-in extractors.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		extractors: make(map[string]Extractor),
		runner:     ExecRunner{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	defaults := map[string]Extractor{
		FormatPDF:  &pdfExtractor{runner: p.runner},
		FormatDOCX: ExtractorFunc(extractDOCX),
		FormatPPTX: ExtractorFunc(extractPPTX),
		FormatODT:  ExtractorFunc(extractODF),
		FormatODP:  ExtractorFunc(extractODF),
		FormatRTF:  ExtractorFunc(extractRTF),
	}
	for format, e := range defaults {
		if _, ok := p.extractors[format]; !ok {
			p.extractors[format] = e
		}
	}
	return p
}

// Parse extracts the text of data and cuts it to maxTextLength characters.
// A non-positive maxTextLength selects DefaultMaxTextLength.
func (p *Parser) Parse(ctx context.Context, data []byte, filename, mimeType string, maxTextLength int) *content.DocumentResult {
	if maxTextLength <= 0 {
		maxTextLength = DefaultMaxTextLength
	}

	format := DetectFormat(data, filename, mimeType)
	result := &content.DocumentResult{
		Format:        format,
		OriginalSize:  len(data),
		MaxTextLength: maxTextLength,
	}

	logger := p.logger.With(logging.Operation("document.parse"), slog.String("format", format))

	if len(data) == 0 {
		result.Error = "empty document"
		return result
	}

	extractor, ok := p.extractors[format]
	if !ok {
		result.Error = unsupportedMessage(format)
		return result
	}

	extraction, err := p.run(ctx, extractor, data)
	if err != nil {
		logger.Warn("document extraction failed", logging.Err(err))
		result.Error = err.Error()
		return result
	}

	text, length, truncated := Truncate(extraction.Text, maxTextLength)
	result.Text = text
	result.ExtractedLength = length
	result.Truncated = truncated
	result.Pages = extraction.Pages
	if length == 0 {
		result.Note = "no extractable text found; the document may contain only images"
	}

	logger.Debug("document extracted",
		slog.Int("extracted_length", length),
		slog.Bool("truncated", truncated))
	return result
}

// run is the single point where a request waits on an extractor.
func (p *Parser) run(ctx context.Context, e Extractor, data []byte) (Extraction, error) {
	if p.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.extractTimeout)
		defer cancel()
	}

	select {
	case out := <-extractAsync(ctx, e, data):
		return out.extraction, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && p.extractTimeout > 0 {
			return Extraction{}, fmt.Errorf("%w after %s", ErrExtractTimeout, p.extractTimeout)
		}
		return Extraction{}, fmt.Errorf("document extraction cancelled: %w", ctx.Err())
	}
}

type extractOutcome struct {
	extraction Extraction
	err        error
}

// extractAsync runs e on its own goroutine. The channel is buffered so an
// abandoned extraction can still finish and exit.
func extractAsync(ctx context.Context, e Extractor, data []byte) <-chan extractOutcome {
	ch := make(chan extractOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- extractOutcome{err: fmt.Errorf("%w: extractor panicked: %v", content.ErrParse, r)}
			}
		}()
		extraction, err := e.Extract(ctx, data)
		ch <- extractOutcome{extraction: extraction, err: err}
	}()
	return ch
}

// Truncate cuts text to limit runes and appends TruncationMarker when it
// was longer. It returns the (possibly cut) text, the original rune count
// and whether a cut happened.
func Truncate(text string, limit int) (string, int, bool) {
	length := utf8.RuneCountInString(text)
	if length <= limit {
		return text, length, false
	}

	cut := 0
	for i := range text {
		if cut == limit {
			return text[:i] + TruncationMarker, length, true
		}
		cut++
	}
	return text + TruncationMarker, length, true
}

var (
	pdfMagic = []byte("%PDF-")
	rtfMagic = []byte(`{\rtf`)
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

var extensionFormats = map[string]string{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".dotx": FormatDOCX,
	".pptx": FormatPPTX,
	".ppsx": FormatPPTX,
	".odt":  FormatODT,
	".odp":  FormatODP,
	".rtf":  FormatRTF,
	".doc":  FormatDOC,
	".ppt":  FormatPPT,
}

var mimeFormats = map[string]string{
	"application/pdf": FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   FormatDOCX,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.template":   FormatDOCX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FormatPPTX,
	"application/vnd.openxmlformats-officedocument.presentationml.slideshow":    FormatPPTX,
	"application/vnd.oasis.opendocument.text":                                   FormatODT,
	"application/vnd.oasis.opendocument.presentation":                           FormatODP,
	"application/rtf":               FormatRTF,
	"text/rtf":                      FormatRTF,
	"application/msword":            FormatDOC,
	"application/vnd.ms-powerpoint": FormatPPT,
}

// DetectFormat picks the document format from the leading bytes, then the
// filename extension, then the MIME type.
func DetectFormat(data []byte, filename, mimeType string) string {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return FormatPDF
	case bytes.HasPrefix(data, rtfMagic):
		return FormatRTF
	}

	if f, ok := extensionFormats[content.Extension(filename)]; ok {
		return f
	}
	if f, ok := mimeFormats[content.NormalizeMimeType(mimeType)]; ok {
		return f
	}

	switch {
	case bytes.HasPrefix(data, zipMagic):
		return sniffZipFormat(data)
	case bytes.HasPrefix(data, oleMagic):
		return FormatDOC
	}
	return "unknown"
}

func unsupportedMessage(format string) string {
	switch format {
	case FormatDOC, FormatPPT:
		return fmt.Sprintf("%v: legacy binary .%s files cannot be read; convert to .%sx or PDF", ErrUnsupportedFormat, format, format)
	}
	return fmt.Sprintf("%v: %s", ErrUnsupportedFormat, format)
}
