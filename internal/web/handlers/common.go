package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/bundy-kiosk/internal/attendance"
	"github.com/kozaktomas/bundy-kiosk/internal/camera"
	"github.com/kozaktomas/bundy-kiosk/internal/kiosk"
	"github.com/kozaktomas/bundy-kiosk/internal/loop"
	"github.com/kozaktomas/bundy-kiosk/internal/notify"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// Session is the kiosk session the handlers drive.
type Session interface {
	Status(ctx context.Context) (kiosk.Status, error)
	Capture(ctx context.Context) (camera.Image, error)
	Retake(ctx context.Context) error
	SetMode(ctx context.Context, mode attendance.Mode) error
	SetAutoCapture(ctx context.Context, enabled bool) error
	PushFrame(data []byte) error
	Frame() (camera.Frame, bool)
	Subscribe() (<-chan notify.Event, func())
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondLoopError maps a failure to reach the event loop to a response.
func respondLoopError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, loop.ErrStopped):
		respondError(w, http.StatusServiceUnavailable, "kiosk is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, "kiosk is not responding")
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
