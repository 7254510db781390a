package handlers

import (
	"net/http"

	"github.com/kozaktomas/bundy-kiosk/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config  *config.Config
	version string
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, version string) *ConfigHandler {
	return &ConfigHandler{
		config:  cfg,
		version: version,
	}
}

// ConfigResponse is the part of the configuration the kiosk page needs.
type ConfigResponse struct {
	Version           string `json:"version"`
	Mode              string `json:"mode"`
	AutoCapture       bool   `json:"auto_capture"`
	CountdownStart    int    `json:"countdown_start"`
	CountdownTickMS   int64  `json:"countdown_tick_ms"`
	ResultHoldMS      int64  `json:"result_hold_ms"`
	FrameWidth        int    `json:"frame_width"`
	FrameHeight       int    `json:"frame_height"`
	FeedIntervalMS    int64  `json:"feed_interval_ms"`
	ServerCamera      bool   `json:"server_camera"`
	EventBusEnabled   bool   `json:"event_bus_enabled"`
	BackendConfigured bool   `json:"backend_configured"`
}

// Get returns the kiosk configuration. Credentials are never included.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := h.config
	respondJSON(w, http.StatusOK, ConfigResponse{
		Version:           h.version,
		Mode:              cfg.Kiosk.Mode,
		AutoCapture:       cfg.Kiosk.AutoCapture,
		CountdownStart:    cfg.Kiosk.CountdownStart,
		CountdownTickMS:   cfg.Kiosk.CountdownTick.Milliseconds(),
		ResultHoldMS:      cfg.Kiosk.ResultHold.Milliseconds(),
		FrameWidth:        cfg.Camera.Width,
		FrameHeight:       cfg.Camera.Height,
		FeedIntervalMS:    cfg.Camera.FeedInterval.Milliseconds(),
		ServerCamera:      cfg.Camera.SnapshotURL != "" || cfg.Camera.Dir != "",
		EventBusEnabled:   cfg.NATS.URL != "",
		BackendConfigured: cfg.Backend.URL != "",
	})
}
