package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"docconvert/internal/domain"
	"docconvert/internal/domain/models"
	"docconvert/internal/domain/services"
	"docconvert/internal/httputil"
	"docconvert/internal/scratch"
)

const (
	// formField is the multipart part the client sends the document in
	formField = "file"

	// maxFormMemory is how much of the multipart body is held in memory
	// before net/http spills the rest to disk.
	maxFormMemory = 10 << 20
)

// ConvertHandler handles document conversion HTTP requests
type ConvertHandler struct {
	workspace      *scratch.Workspace
	service        services.ConversionService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewConvertHandler creates a new convert handler
func NewConvertHandler(workspace *scratch.Workspace, service services.ConversionService, maxUploadBytes int64, logger *slog.Logger) *ConvertHandler {
	return &ConvertHandler{
		workspace:      workspace,
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Convert accepts one uploaded document and answers with its PDF.
// POST /convert
//
// Both scratch files are removed when the handler returns, whatever happened.
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	logger := httputil.Logger(r, h.logger)
	logger.Debug("convert endpoint hit")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, upload, err := h.readUpload(r)
	if err != nil {
		logger.Info("rejected upload", "error", err)
		handleError(w, err)
		return
	}
	defer func() { _ = file.Close() }() // multipart parts are already on disk or in memory

	job := h.workspace.NewJob(upload.Filename)
	defer job.Cleanup()
	logger = logger.With("job", job.Token())

	if _, err := job.SaveUpload(file); err != nil {
		logger.Error("failed to save upload", "error", err)
		handleError(w, h.bodyError(err))
		return
	}
	logger.Info("file saved locally", "file", upload.Filename, "path", job.UploadPath(), "content_type", upload.ContentType)

	artifact, err := h.service.Convert(r.Context(), job)
	if err != nil {
		logger.Error("conversion failed", "file", upload.Filename, "error", err)
		handleError(w, err)
		return
	}

	h.sendArtifact(w, artifact, logger)
}

// readUpload extracts the single file part. A missing part, including a
// body that is not multipart at all, is a validation error.
func (h *ConvertHandler) readUpload(r *http.Request) (multipart.File, *models.UploadedFile, error) {
	if r.ContentLength > h.maxUploadBytes {
		return nil, nil, h.tooLarge()
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			return nil, nil, &domain.ValidationError{Message: msgNoFile}
		case isTooLarge(err):
			return nil, nil, h.tooLarge()
		default:
			return nil, nil, &domain.ValidationError{Message: "Malformed multipart body"}
		}
	}

	file, header, err := r.FormFile(formField)
	if err != nil {
		// http.ErrMissingFile, or a part without a filename
		return nil, nil, &domain.ValidationError{Message: msgNoFile}
	}

	return file, &models.UploadedFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	}, nil
}

func (h *ConvertHandler) tooLarge() error {
	return &domain.PayloadTooLargeError{Message: "File too large", Limit: h.maxUploadBytes}
}

// bodyError classifies a failure while copying the upload to scratch.
func (h *ConvertHandler) bodyError(err error) error {
	if isTooLarge(err) {
		return h.tooLarge()
	}
	return err
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge)
}

// sendArtifact streams the PDF as an attachment. Once headers are out a
// failure can only be logged.
func (h *ConvertHandler) sendArtifact(w http.ResponseWriter, artifact *models.Artifact, logger *slog.Logger) {
	f, err := os.Open(artifact.Path)
	if err != nil {
		logger.Error("failed to open artifact", "path", artifact.Path, "error", err)
		handleError(w, fmt.Errorf("open artifact: %w", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", contentDisposition(artifact.Filename))
	w.Header().Set("Content-Length", strconv.FormatInt(artifact.Size, 10))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, f)
	if err != nil {
		logger.Error("error sending file to user", "file", artifact.Filename, "sent", n, "error", err)
		return
	}
	logger.Info("sent converted file", "file", artifact.Filename, "bytes", n)
}

// contentDisposition renders `attachment; filename="<name>"`, adding an
// RFC 5987 filename* parameter when name is not plain ASCII.
func contentDisposition(name string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > 0x7e || r < 0x20 || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)

	header := `attachment; filename="` + ascii + `"`
	if ascii != name {
		header += "; filename*=UTF-8''" + extValue(name)
	}
	return header
}

// extValue percent-encodes every byte outside the RFC 5987 attr-char set.
func extValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
