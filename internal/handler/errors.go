package handler

import (
	"errors"
	"net/http"

	"docconvert/internal/domain"
	"docconvert/internal/httputil"
)

// Error texts the browser client shows verbatim.
const (
	msgNoFile           = "No file provided"
	msgConversionFailed = "Conversion failed due to a server error."
	msgRetentionFailed  = "Conversion succeeded but the retention copy could not be stored."
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		tooLargeErr   *domain.PayloadTooLargeError
		convErr       *domain.ConversionError
		storageErr    *domain.StorageError
	)

	switch {
	case errors.As(err, &validationErr):
		httputil.RespondError(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &tooLargeErr):
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, tooLargeErr.Message)
	case errors.As(err, &convErr):
		httputil.RespondErrorWithDetails(w, http.StatusInternalServerError, msgConversionFailed, convErr.Message)
	case errors.As(err, &storageErr):
		httputil.RespondErrorWithDetails(w, http.StatusInternalServerError, msgRetentionFailed, storageErr.Error())
	default:
		httputil.RespondErrorWithDetails(w, http.StatusInternalServerError, msgConversionFailed, "internal server error")
	}
}
