package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/teemow/inboxcontent/internal/content"
)

// ErrPDFToolNotFound is returned when the pdftotext fallback is needed but
// the binary is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH (install poppler-utils)")

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, ErrPDFToolNotFound
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

type pdfExtractor struct {
	runner CommandRunner
}

func (e *pdfExtractor) Extract(ctx context.Context, data []byte) (Extraction, error) {
	extraction, err := readPDF(data)
	if errors.Is(err, pdf.ErrInvalidPassword) {
		return Extraction{}, fmt.Errorf("%w: PDF is password-protected", content.ErrParse)
	}
	if err == nil && strings.TrimSpace(extraction.Text) != "" {
		return extraction, nil
	}
	if e.runner == nil {
		if err != nil {
			return Extraction{}, fmt.Errorf("%w: failed to read PDF: %v", content.ErrParse, err)
		}
		return extraction, nil
	}

	text, fallbackErr := e.pdftotext(ctx, data)
	switch {
	case fallbackErr == nil:
		extraction.Text = text
		return extraction, nil
	case err != nil:
		return Extraction{}, fmt.Errorf("%w: failed to read PDF: %v (pdftotext: %v)", content.ErrParse, err, fallbackErr)
	}
	// The pure Go reader worked but found no text and there is no usable fallback.
	return extraction, nil
}

// readPDF extracts text page by page. The reader panics on some malformed
// inputs; those are turned into errors so the fallback can run.
func readPDF(data []byte) (extraction Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			extraction, err = Extraction{}, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extraction{}, err
	}

	var sb strings.Builder
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(text))
	}
	return Extraction{Text: sb.String(), Pages: pages}, nil
}

func (e *pdfExtractor) pdftotext(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "pdf-extract-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", "-layout", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", errors.New("pdftotext produced no text")
	}
	return text, nil
}
