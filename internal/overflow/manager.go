package overflow

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teemow/inboxcontent/internal/content"
	"github.com/teemow/inboxcontent/internal/logging"
)

const (
	// DefaultMaxSize is the transport limit of one MCP response.
	DefaultMaxSize = 1_048_576
	// DefaultPrefix marks files owned by the manager.
	DefaultPrefix = "attachment"
	// AppDirName is the directory created under the platform temp dir.
	AppDirName = "inboxcontent"

	maxBaseLength      = 64
	maxExtensionLength = 16
	randomSuffixLength = 8
	fileMode           = 0o600
	dirMode            = 0o700
)

// Encoding says how PersistIfOversized measures and writes its content.
type Encoding string

const (
	// EncodingBase64 content is measured and written decoded.
	EncodingBase64 Encoding = "base64"
	// EncodingText content is measured as UTF-8 bytes.
	EncodingText Encoding = "text"
	// EncodingBinary content is measured as raw bytes.
	EncodingBinary Encoding = "binary"
)

// Decision is the outcome of PersistIfOversized: either the content stays
// inline or it was written to disk.
type Decision struct {
	Inline  []byte
	Spilled *content.SpillRecord
	Size    int
}

// IsSpilled reports whether the content was written to disk.
func (d *Decision) IsSpilled() bool {
	return d != nil && d.Spilled != nil
}

// Manager decides when a payload is too large to return and owns the files
// written for those payloads.
type Manager struct {
	Dir     string
	MaxSize int
	Prefix  string

	logger *slog.Logger
	now    func() time.Time
	suffix func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(m *Manager) {
		if p := sanitize(prefix, maxBaseLength); p != "" {
			m.Prefix = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager writing to dir. A non-positive maxSize
// selects DefaultMaxSize.
func NewManager(dir string, maxSize int, opts ...Option) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	m := &Manager{
		Dir:     dir,
		MaxSize: maxSize,
		Prefix:  DefaultPrefix,
		logger:  slog.Default(),
		now:     time.Now,
		suffix:  randomSuffix,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fits reports whether a payload of size bytes can be returned inline.
// A payload of exactly MaxSize bytes fits.
func (m *Manager) Fits(size int) bool {
	return size <= m.MaxSize
}

// Measure returns the size content will have once delivered.
func Measure(data []byte, enc Encoding) int {
	if enc == EncodingBase64 {
		return content.DecodedBase64Len(string(data))
	}
	return len(data)
}

// PersistOption adjusts a single PersistIfOversized call.
type PersistOption func(*persistRequest)

type persistRequest struct {
	payload func() ([]byte, string)
}

// WithSpillPayload writes what payload returns instead of the measured
// content when the content does not fit. The function is only called when
// the content is spilled.
func WithSpillPayload(payload func() (data []byte, filename string)) PersistOption {
	return func(r *persistRequest) {
		r.payload = payload
	}
}

// PersistIfOversized keeps content inline when it fits and writes it to the
// work directory otherwise. Base64 content is decoded before it is written.
func (m *Manager) PersistIfOversized(data []byte, filename string, enc Encoding, opts ...PersistOption) (*Decision, error) {
	size := Measure(data, enc)
	if m.Fits(size) {
		return &Decision{Inline: data, Size: size}, nil
	}

	var req persistRequest
	for _, opt := range opts {
		opt(&req)
	}

	payload := data
	switch {
	case req.payload != nil:
		payload, filename = req.payload()
	case enc == EncodingBase64:
		decoded, err := content.DecodeBase64(string(data))
		if err != nil {
			return nil, err
		}
		payload = decoded
	}

	record, err := m.Persist(payload, filename)
	if err != nil {
		return nil, err
	}
	return &Decision{Spilled: record, Size: size}, nil
}

// Persist writes data to a new uniquely named file in the work directory.
// The returned error wraps content.ErrPersistence.
func (m *Manager) Persist(data []byte, filename string) (*content.SpillRecord, error) {
	if m.Dir == "" {
		return nil, fmt.Errorf("%w: no work directory configured", content.ErrPersistence)
	}
	if err := os.MkdirAll(m.Dir, dirMode); err != nil {
		return nil, fmt.Errorf("%w: failed to create work directory: %v", content.ErrPersistence, err)
	}

	name := m.UniqueName(filename)
	path := filepath.Join(m.Dir, name)
	if err := writeNew(path, data); err != nil {
		return nil, fmt.Errorf("%w: %v", content.ErrPersistence, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat spill file: %v", content.ErrPersistence, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	record := &content.SpillRecord{
		Path:             abs,
		Filename:         name,
		Size:             info.Size(),
		OriginalFilename: filename,
		CreatedAt:        m.now().UTC(),
	}
	m.logger.Debug("payload spilled to disk",
		logging.Operation("overflow.persist"),
		logging.Filename(filename),
		logging.SizeBytes(record.Size))
	return record, nil
}

func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return fmt.Errorf("failed to create spill file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write spill file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to close spill file: %w", err)
	}
	return nil
}

// UniqueName builds the spill file name for filename.
func (m *Manager) UniqueName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	ext := filepath.Ext(base)
	base = strings.TrimSuffix(base, ext)

	base = sanitize(base, maxBaseLength)
	if base == "" {
		base = "file"
	}
	ext = sanitize(strings.TrimPrefix(ext, "."), maxExtensionLength)

	name := fmt.Sprintf("%s_%s_%d_%s", m.Prefix, base, m.now().UnixMilli(), m.suffix())
	if ext != "" {
		name += "." + ext
	}
	return name
}

// sanitize keeps [A-Za-z0-9._-], replacing anything else with '_', and
// cuts the result to limit bytes.
func sanitize(s string, limit int) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
		if sb.Len() >= limit {
			break
		}
	}
	out := sb.String()
	if len(out) > limit {
		out = out[:limit]
	}
	return strings.Trim(out, ".")
}

func randomSuffix() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:randomSuffixLength]
}

// ResolveWorkDir returns the first usable work directory: configured, then
// <tmp>/inboxcontent, then the platform temp directory itself.
func ResolveWorkDir(configured string) string {
	candidates := []string{}
	if configured = strings.TrimSpace(configured); configured != "" {
		candidates = append(candidates, configured)
	}
	candidates = append(candidates, filepath.Join(os.TempDir(), AppDirName))

	for _, dir := range candidates {
		if err := ensureWritable(dir); err == nil {
			return dir
		}
	}
	return os.TempDir()
}

func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	closeErr := f.Close()
	removeErr := os.Remove(name)
	return errors.Join(closeErr, removeErr)
}
