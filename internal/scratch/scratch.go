// Package scratch owns the process-local directories that hold one request's
// upload and converted output. Every request acquires a Job up front and
// releases it with a single deferred Cleanup.
package scratch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"docconvert/internal/config"
)

// fallbackName is used when the client sends no usable filename.
const fallbackName = "document"

// Workspace is the pair of scratch directories shared by all requests.
type Workspace struct {
	uploadDir    string
	convertedDir string
	logger       *slog.Logger
}

// NewWorkspace creates both directories if they are missing.
func NewWorkspace(uploadDir, convertedDir string, logger *slog.Logger) (*Workspace, error) {
	for _, dir := range []string{uploadDir, convertedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create scratch directory %s: %w", dir, err)
		}
	}
	return &Workspace{
		uploadDir:    uploadDir,
		convertedDir: convertedDir,
		logger:       logger,
	}, nil
}

func (w *Workspace) UploadDir() string    { return w.uploadDir }
func (w *Workspace) ConvertedDir() string { return w.convertedDir }

// NewJob reserves scratch paths for one request. Nothing touches disk until
// SaveUpload; the random token keeps concurrent uploads of the same name apart.
func (w *Workspace) NewJob(originalName string) *Job {
	token := uuid.NewString()
	name := SanitizeName(originalName)
	base := BaseName(name)

	return &Job{
		token:        token,
		originalName: name,
		baseName:     base,
		uploadPath:   filepath.Join(w.uploadDir, token+"-"+name),
		outputPath:   filepath.Join(w.convertedDir, token+"-"+base+".pdf"),
		logger:       w.logger.With("job", token),
	}
}

// Job is one request's scratch state. It implements services.Job.
type Job struct {
	token        string
	originalName string
	baseName     string
	uploadPath   string
	outputPath   string
	logger       *slog.Logger

	cleanupOnce sync.Once
}

func (j *Job) Token() string        { return j.token }
func (j *Job) OriginalName() string { return j.originalName }
func (j *Job) BaseName() string     { return j.baseName }
func (j *Job) UploadPath() string   { return j.uploadPath }
func (j *Job) OutputPath() string   { return j.outputPath }

// SaveUpload writes the uploaded bytes to the job's upload path.
func (j *Job) SaveUpload(r io.Reader) (int64, error) {
	f, err := os.OpenFile(j.uploadPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("write upload file: %w", err)
	}
	return n, nil
}

// Cleanup deletes the upload and the converted output. Missing files are
// skipped; other failures are logged and never returned. Safe to call twice.
func (j *Job) Cleanup() {
	j.cleanupOnce.Do(func() {
		j.remove("input", j.uploadPath)
		j.remove("output", j.outputPath)
	})
}

func (j *Job) remove(kind, path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		j.logger.Debug("deleted temporary file", "kind", kind, "path", path)
	case errors.Is(err, fs.ErrNotExist):
	default:
		j.logger.Error("failed to delete temporary file", "kind", kind, "path", path, "error", err)
	}
}

// SanitizeName reduces a client filename to a single safe path element.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(filepath.Base(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)

	if name == "" || name == "." || name == "/" || name == ".." {
		return fallbackName
	}
	return truncate(name, config.MaxFilenameLength)
}

// BaseName strips the final extension: "report.v2.docx" -> "report.v2".
func BaseName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		return fallbackName
	}
	return base
}

// truncate cuts s to at most max bytes without splitting a rune, keeping the extension.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	ext := filepath.Ext(s)
	if len(ext) >= max {
		ext = ""
	}
	head := s[:max-len(ext)]
	for !utf8.ValidString(head) {
		head = head[:len(head)-1]
	}
	return head + ext
}
