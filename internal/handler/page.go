package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"docconvert/internal/httputil"
	"docconvert/internal/web"
)

// PageHandler serves the browser upload page and its assets.
type PageHandler struct {
	page   []byte
	assets http.Handler
	logger *slog.Logger
}

// NewPageHandler renders the page once with the conversion endpoint baked in.
func NewPageHandler(endpoint string, logger *slog.Logger) (*PageHandler, error) {
	var buf bytes.Buffer
	if err := web.RenderIndex(&buf, web.PageData{Endpoint: endpoint}); err != nil {
		return nil, err
	}
	return &PageHandler{
		page:   buf.Bytes(),
		assets: http.StripPrefix("/static/", http.FileServer(http.FS(web.Assets()))),
		logger: logger,
	}, nil
}

// Index serves the upload page.
// GET /{$}
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(h.page); err != nil {
		httputil.Logger(r, h.logger).Warn("failed to write page", "error", err)
	}
}

// Static serves the page's script and stylesheet.
// GET /static/
func (h *PageHandler) Static(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	h.assets.ServeHTTP(w, r)
}
