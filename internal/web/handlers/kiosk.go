package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/bundy-kiosk/internal/attendance"
	"github.com/kozaktomas/bundy-kiosk/internal/camera"
	"github.com/kozaktomas/bundy-kiosk/internal/capture"
	"github.com/kozaktomas/bundy-kiosk/internal/constants"
)

// KioskHandler exposes the kiosk session to the host page.
type KioskHandler struct {
	session Session
}

// NewKioskHandler creates a new kiosk handler
func NewKioskHandler(session Session) *KioskHandler {
	return &KioskHandler{session: session}
}

// Status returns the current kiosk status.
func (h *KioskHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.session.Status(r.Context())
	if err != nil {
		respondLoopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Frame returns the latest live frame as JPEG.
func (h *KioskHandler) Frame(w http.ResponseWriter, r *http.Request) {
	frame, ok := h.session.Frame()
	if !ok {
		respondError(w, http.StatusNotFound, attendance.MsgNoFrame)
		return
	}
	writeJPEG(w, frame.Data)
}

// Frozen returns the captured frame currently shown instead of the live feed.
func (h *KioskHandler) Frozen(w http.ResponseWriter, r *http.Request) {
	status, err := h.session.Status(r.Context())
	if err != nil {
		respondLoopError(w, err)
		return
	}
	if status.Capture.Frozen == nil {
		respondError(w, http.StatusNotFound, "no captured frame")
		return
	}
	writeJPEG(w, status.Capture.Frozen.Data)
}

// PushFrame accepts a camera frame from the kiosk page, either as a raw
// image body or as the "image" field of a multipart form.
func (h *KioskHandler) PushFrame(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxFrameUploadSize)

	data, err := readFrame(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "frame too large")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "empty frame")
		return
	}

	if err := h.session.PushFrame(data); err != nil {
		if errors.Is(err, camera.ErrFrameTooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readFrame(r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return io.ReadAll(r.Body)
	}
	if err := r.ParseMultipartForm(constants.MaxFrameUploadSize); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, errors.New("missing image field")
	}
	defer file.Close()
	return io.ReadAll(file)
}

// CaptureResponse describes a captured image.
type CaptureResponse struct {
	ImageID string `json:"image_id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// Capture triggers a manual capture.
func (h *KioskHandler) Capture(w http.ResponseWriter, r *http.Request) {
	img, err := h.session.Capture(r.Context())
	switch {
	case err == nil:
		respondJSON(w, http.StatusAccepted, CaptureResponse{ImageID: img.ID, Width: img.Width, Height: img.Height})
	case errors.Is(err, camera.ErrNoFrame):
		respondError(w, http.StatusConflict, attendance.MsgNoFrame)
	case errors.Is(err, capture.ErrFrozen), errors.Is(err, capture.ErrBusy):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, capture.ErrUnmounted):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondLoopError(w, err)
	}
}

// Retake abandons the current cycle.
func (h *KioskHandler) Retake(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Retake(r.Context()); err != nil {
		respondLoopError(w, err)
		return
	}
	h.Status(w, r)
}

// ModeRequest switches the attendance mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// SetMode switches between TIME_IN and TIME_OUT.
func (h *KioskHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	mode, err := attendance.ParseMode(req.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.session.SetMode(r.Context(), mode); err != nil {
		respondLoopError(w, err)
		return
	}
	log.Printf("kiosk: mode set to %s", sanitizeForLog(string(mode)))
	h.Status(w, r)
}

// AutoCaptureRequest turns auto-capture on or off.
type AutoCaptureRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetAutoCapture turns the countdown on or off.
func (h *KioskHandler) SetAutoCapture(w http.ResponseWriter, r *http.Request) {
	var req AutoCaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.session.SetAutoCapture(r.Context(), *req.Enabled); err != nil {
		respondLoopError(w, err)
		return
	}
	h.Status(w, r)
}

func writeJPEG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
