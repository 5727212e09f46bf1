package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// ValidationError indicates a request the server refuses to process
	ValidationError struct {
		Message string
	}

	// PayloadTooLargeError indicates an upload above the configured limit
	PayloadTooLargeError struct {
		Message string
		Limit   int64
	}
)

func (e *ValidationError) Error() string      { return e.Message }
func (e *PayloadTooLargeError) Error() string { return e.Message }

func (e *ValidationError) StatusCode() int      { return http.StatusBadRequest }
func (e *PayloadTooLargeError) StatusCode() int { return http.StatusRequestEntityTooLarge }

func (e *ValidationError) Is(target error) bool      { return target == ErrValidation }
func (e *PayloadTooLargeError) Is(target error) bool { return target == ErrTooLarge }

// Sentinel errors - use with errors.Is()
var (
	ErrValidation = errors.New("validation failed")
	ErrTooLarge   = errors.New("payload too large")
	ErrConversion = errors.New("conversion failed")
	ErrStorage    = errors.New("remote storage failed")
)

// ConversionError wraps a failure of the external converter. Message is the
// converter's own diagnostic text and is surfaced to the caller as details.
type ConversionError struct {
	Message string
	Err     error
}

func (e *ConversionError) Error() string        { return e.Message }
func (e *ConversionError) Unwrap() error        { return e.Err }
func (e *ConversionError) StatusCode() int      { return http.StatusInternalServerError }
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

// StorageError wraps a failure of the remote retention store.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return "upload of " + e.Key + " failed"
	}
	return "upload of " + e.Key + " failed: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error        { return e.Err }
func (e *StorageError) StatusCode() int      { return http.StatusInternalServerError }
func (e *StorageError) Is(target error) bool { return target == ErrStorage }
