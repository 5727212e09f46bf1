package handler

import (
	"log/slog"
	"net/http"

	"docconvert/internal/httputil"
)

const healthMessage = "docconvert backend is running."

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthHandler answers liveness probes. It checks no state.
type HealthHandler struct {
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// Check reports that the process is serving requests.
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			httputil.Logger(r, h.logger).Error("health check failed", "error", err)
			httputil.RespondJSON(w, http.StatusInternalServerError, healthResponse{
				Status:  "error",
				Message: "Health check failed due to internal error.",
			})
		}
	}()

	httputil.RespondJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Message: healthMessage,
	})
}
