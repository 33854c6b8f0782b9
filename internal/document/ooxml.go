package document

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/teemow/inboxcontent/internal/content"
)

const (
	docxDocumentPart = "word/document.xml"
	pptxSlidePrefix  = "ppt/slides/slide"
	odfMimetypePart  = "mimetype"
	odfContentPart   = "content.xml"
)

// maxPartSize caps how much of a single zip entry is inflated.
const maxPartSize = 64 << 20

func extractDOCX(_ context.Context, data []byte) (Extraction, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// The library also insists on the relationships part; fall back to
		// reading the body directly when only that is missing.
		zr, zerr := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if zerr != nil {
			return Extraction{}, fmt.Errorf("%w: not a valid DOCX archive: %v", content.ErrParse, zerr)
		}
		body, perr := readZipPart(zr, docxDocumentPart)
		if perr != nil {
			return Extraction{}, fmt.Errorf("%w: failed to read DOCX: %v", content.ErrParse, err)
		}
		text, xerr := xmlText(bytes.NewReader(body), wordprocessingRules)
		if xerr != nil {
			return Extraction{}, fmt.Errorf("%w: malformed DOCX body: %v", content.ErrParse, xerr)
		}
		return Extraction{Text: text}, nil
	}
	defer func() { _ = doc.Close() }()

	text, err := xmlText(strings.NewReader(doc.Editable().GetContent()), wordprocessingRules)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: malformed DOCX body: %v", content.ErrParse, err)
	}
	return Extraction{Text: text}, nil
}

func extractPPTX(_ context.Context, data []byte) (Extraction, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: not a valid PPTX archive: %v", content.ErrParse, err)
	}

	slides := slideParts(zr)
	if len(slides) == 0 {
		return Extraction{}, fmt.Errorf("%w: PPTX archive contains no slides", content.ErrParse)
	}

	var sb strings.Builder
	for i, name := range slides {
		body, err := readZipPart(zr, name)
		if err != nil {
			return Extraction{}, fmt.Errorf("%w: %v", content.ErrParse, err)
		}
		text, err := xmlText(bytes.NewReader(body), drawingRules)
		if err != nil {
			return Extraction{}, fmt.Errorf("%w: malformed slide %d: %v", content.ErrParse, i+1, err)
		}
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Slide %d]\n%s", i+1, text)
	}
	return Extraction{Text: sb.String(), Pages: len(slides)}, nil
}

// slideParts returns the slide entries ordered by slide number.
func slideParts(zr *zip.Reader) []string {
	type slide struct {
		name string
		num  int
	}
	var slides []slide
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePrefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, pptxSlidePrefix), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{name: f.Name, num: num})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	names := make([]string, len(slides))
	for i, s := range slides {
		names[i] = s.name
	}
	return names
}

func extractODF(_ context.Context, data []byte) (Extraction, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: not a valid OpenDocument archive: %v", content.ErrParse, err)
	}
	body, err := readZipPart(zr, odfContentPart)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", content.ErrParse, err)
	}
	text, err := xmlText(bytes.NewReader(body), openDocumentRules)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: malformed OpenDocument content: %v", content.ErrParse, err)
	}
	return Extraction{Text: text}, nil
}

func readZipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		defer func() { _ = rc.Close() }()
		body, err := io.ReadAll(io.LimitReader(rc, maxPartSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return body, nil
	}
	return nil, fmt.Errorf("archive has no %s", name)
}

// sniffZipFormat identifies a zip-based document by its entries.
func sniffZipFormat(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "unknown"
	}
	for _, f := range zr.File {
		switch {
		case f.Name == docxDocumentPart:
			return FormatDOCX
		case strings.HasPrefix(f.Name, pptxSlidePrefix):
			return FormatPPTX
		case f.Name == odfMimetypePart:
			if mt, err := readZipPart(zr, odfMimetypePart); err == nil {
				switch strings.TrimSpace(string(mt)) {
				case "application/vnd.oasis.opendocument.text":
					return FormatODT
				case "application/vnd.oasis.opendocument.presentation":
					return FormatODP
				}
			}
		}
	}
	return "unknown"
}
