package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docconvert/internal/client"
	"docconvert/internal/config"
	"docconvert/internal/domain"
	"docconvert/internal/scratch"
	"docconvert/internal/service"
	"docconvert/internal/storage"
)

// echoConverter returns "%PDF:" followed by the input, or err when set.
type echoConverter struct {
	err   error
	delay time.Duration
}

func (c *echoConverter) Convert(ctx context.Context, document []byte) ([]byte, error) {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.err != nil {
		return nil, c.err
	}
	return append([]byte("%PDF:"), document...), nil
}

type testServer struct {
	workspace *scratch.Workspace
	handler   *ConvertHandler
}

func newTestServer(t *testing.T, conv *echoConverter, maxUpload int64) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := t.TempDir()

	ws, err := scratch.NewWorkspace(filepath.Join(root, "uploads"), filepath.Join(root, "converted"), logger)
	require.NoError(t, err)

	svc := service.NewConversionService(conv, storage.Disabled{}, service.RetentionOptions{
		Folder:  "converted_docs",
		Policy:  config.RetentionBestEffort,
		Timeout: time.Second,
	}, logger)

	return &testServer{
		workspace: ws,
		handler:   NewConvertHandler(ws, svc, maxUpload, logger),
	}
}

// assertScratchEmpty checks that no request left files behind.
func (s *testServer) assertScratchEmpty(t *testing.T) {
	t.Helper()
	for _, dir := range []string{s.workspace.UploadDir(), s.workspace.ConvertedDir()} {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "leftover files in %s", dir)
	}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postConvert(h http.HandlerFunc, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestConvert_Success(t *testing.T) {
	srv := newTestServer(t, &echoConverter{}, 1<<20)
	body, ct := multipartBody(t, "file", "Quarterly Report.docx", []byte("PK docx"))

	rec := postConvert(srv.handler.Convert, body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Quarterly Report.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF:PK docx", rec.Body.String())
	srv.assertScratchEmpty(t)
}

// The attachment name the server sends must be the one the client saves under.
func TestConvert_AttachmentNameMatchesClient(t *testing.T) {
	for _, name := range []string{"report.docx", "report.final.docx", ".docx", "archive.", "noext"} {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t, &echoConverter{}, 1<<20)
			body, ct := multipartBody(t, "file", name, []byte("PK"))

			rec := postConvert(srv.handler.Convert, body, ct)

			require.Equal(t, http.StatusOK, rec.Code)
			_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
			require.NoError(t, err)
			assert.Equal(t, client.DownloadName(name), params["filename"])
		})
	}
}

func TestConvert_NoFile(t *testing.T) {
	tests := []struct {
		name string
		body func(t *testing.T) (io.Reader, string)
	}{
		{
			name: "multipart without file part",
			body: func(t *testing.T) (io.Reader, string) { return multipartBody(t, "", "", nil) },
		},
		{
			name: "file under another field",
			body: func(t *testing.T) (io.Reader, string) { return multipartBody(t, "document", "a.docx", []byte("PK")) },
		},
		{
			name: "not multipart",
			body: func(t *testing.T) (io.Reader, string) { return bytes.NewBufferString(`{"file":"x"}`), "application/json" },
		},
		{
			name: "no body",
			body: func(t *testing.T) (io.Reader, string) { return http.NoBody, "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &echoConverter{}
			srv := newTestServer(t, conv, 1<<20)
			body, ct := tt.body(t)

			rec := postConvert(srv.handler.Convert, body, ct)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"No file provided"}`, rec.Body.String())
			srv.assertScratchEmpty(t)
		})
	}
}

func TestConvert_ConversionFailure(t *testing.T) {
	srv := newTestServer(t, &echoConverter{err: &domain.ConversionError{Message: "Error: source file could not be loaded"}}, 1<<20)
	body, ct := multipartBody(t, "file", "broken.docx", []byte("not really a docx"))

	rec := postConvert(srv.handler.Convert, body, ct)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Conversion failed due to a server error.","details":"Error: source file could not be loaded"}`, rec.Body.String())
	srv.assertScratchEmpty(t)
}

func TestConvert_TooLarge(t *testing.T) {
	srv := newTestServer(t, &echoConverter{}, 1024)
	body, ct := multipartBody(t, "file", "big.docx", bytes.Repeat([]byte("x"), 4096))

	rec := postConvert(srv.handler.Convert, body, ct)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"File too large"}`, rec.Body.String())
	srv.assertScratchEmpty(t)
}

func TestConvert_MalformedMultipart(t *testing.T) {
	srv := newTestServer(t, &echoConverter{}, 1<<20)

	rec := postConvert(srv.handler.Convert, bytes.NewBufferString("--x\r\ngarbage"), "multipart/form-data; boundary=x")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	srv.assertScratchEmpty(t)
}

func TestConvert_ConcurrentRequestsDoNotInterfere(t *testing.T) {
	srv := newTestServer(t, &echoConverter{delay: 20 * time.Millisecond}, 1<<20)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /convert", srv.handler.Convert)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)

	bodies := make([]*bytes.Buffer, n)
	types := make([]string, n)
	for i := 0; i < n; i++ {
		// Same filename on purpose: scratch names must still not collide
		bodies[i], types[i] = multipartBody(t, "file", "same.docx", []byte(fmt.Sprintf("document-%d", i)))
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(ts.URL+"/convert", types[i], bodies[i])
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			data, err := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				err = fmt.Errorf("status %d: %s", resp.StatusCode, data)
			}
			results[i], errs[i] = string(data), err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("%%PDF:document-%d", i), results[i])
	}
	srv.assertScratchEmpty(t)
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="report.pdf"`, contentDisposition("report.pdf"))
	assert.Equal(t, `attachment; filename="r_sum_.pdf"; filename*=UTF-8''r%C3%A9sum%C3%A9.pdf`, contentDisposition("résumé.pdf"))
	assert.Equal(t,
		`attachment; filename="r_sum_'s (v2)*;=@.pdf"; filename*=UTF-8''r%C3%A9sum%C3%A9%27s%20%28v2%29%2A%3B%3D%40.pdf`,
		contentDisposition("résumé's (v2)*;=@.pdf"))
}

func TestContentDisposition_ParsesBack(t *testing.T) {
	for _, name := range []string{"report.pdf", "résumé's.pdf", "年度 报告 (最终).pdf"} {
		mediaType, params, err := mime.ParseMediaType(contentDisposition(name))
		require.NoError(t, err, name)
		assert.Equal(t, "attachment", mediaType)
		assert.Equal(t, name, params["filename"], "filename* wins over the ASCII fallback")
	}
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"docconvert backend is running."}`, rec.Body.String())
}

// failOnceWriter panics on its first WriteHeader and records normally after.
type failOnceWriter struct {
	*httptest.ResponseRecorder
	failed bool
}

func (w *failOnceWriter) WriteHeader(code int) {
	if !w.failed {
		w.failed = true
		panic("connection state corrupted")
	}
	w.ResponseRecorder.WriteHeader(code)
}

func TestHealth_InternalError(t *testing.T) {
	h := NewHealthHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	w := &failOnceWriter{ResponseRecorder: rec}
	require.NotPanics(t, func() {
		h.Check(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Health check failed due to internal error."}`, rec.Body.String())
}

func TestPageHandler(t *testing.T) {
	h, err := NewPageHandler("https://convert.example.com/convert", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /static/", h.Static)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-endpoint="https://convert.example.com/convert"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "onConvertRequested")
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation", &domain.ValidationError{Message: msgNoFile}, http.StatusBadRequest, `{"error":"No file provided"}`},
		{"too large", &domain.PayloadTooLargeError{Message: "File too large", Limit: 1}, http.StatusRequestEntityTooLarge, `{"error":"File too large"}`},
		{"conversion", fmt.Errorf("wrapped: %w", &domain.ConversionError{Message: "soffice crashed"}), http.StatusInternalServerError,
			`{"error":"Conversion failed due to a server error.","details":"soffice crashed"}`},
		{"storage", &domain.StorageError{Key: "report"}, http.StatusInternalServerError,
			`{"error":"Conversion succeeded but the retention copy could not be stored.","details":"upload of report failed"}`},
		{"unknown", io.ErrUnexpectedEOF, http.StatusInternalServerError,
			`{"error":"Conversion failed due to a server error.","details":"internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			handleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
