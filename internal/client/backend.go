package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// DefaultEndpoint is the conversion URL used when none is configured.
const DefaultEndpoint = "http://localhost:5000/convert"

// formField is the multipart part the server reads the document from.
const formField = "file"

// ServerError is a non-2xx answer from the conversion server.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// TransportError means the request never completed.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "request failed: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Backend talks to the conversion server.
type Backend struct {
	endpoint string
	http     *http.Client
}

// NewBackend returns a backend posting to endpoint.
func NewBackend(endpoint string, httpClient *http.Client) *Backend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Backend{endpoint: endpoint, http: httpClient}
}

// Endpoint returns the conversion URL.
func (b *Backend) Endpoint() string { return b.endpoint }

// Convert uploads file as multipart form data and returns the response body.
func (b *Backend) Convert(ctx context.Context, file *File) ([]byte, error) {
	body, contentType, err := encodeFile(file)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{Status: resp.StatusCode, Message: failureReason(data)}
	}
	return data, nil
}

// Health calls the server's /health endpoint next to the conversion endpoint.
func (b *Backend) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, HealthURL(b.endpoint), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	var health struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return "", fmt.Errorf("decode health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || health.Status != "ok" {
		return "", &ServerError{Status: resp.StatusCode, Message: health.Message}
	}
	return health.Message, nil
}

// HealthURL derives the health URL from a conversion endpoint.
func HealthURL(endpoint string) string {
	return strings.TrimSuffix(strings.TrimSuffix(endpoint, "/"), "/convert") + "/health"
}

func encodeFile(file *File) (io.Reader, string, error) {
	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer src.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(formField, file.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", file.Name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// failureReason pulls "error" out of a JSON body, falling back to the raw text.
func failureReason(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		return "Unknown error."
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return "Unknown error."
}
