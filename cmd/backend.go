package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/bundy-kiosk/internal/bundyclock"
	"github.com/kozaktomas/bundy-kiosk/internal/camera"
	"github.com/kozaktomas/bundy-kiosk/internal/config"
)

// connectBackend creates a backend client authenticated with the configured
// token, or by logging in with the configured credentials.
func connectBackend(ctx context.Context, cfg *config.Config) (*bundyclock.Client, error) {
	if cfg.Backend.URL == "" {
		return nil, errors.New("BUNDYCLOCK_URL environment variable is required")
	}

	var (
		client *bundyclock.Client
		err    error
	)
	if cfg.Backend.Token != "" {
		client, err = bundyclock.NewClientFromToken(cfg.Backend.URL, cfg.Backend.Token)
	} else {
		client, err = bundyclock.NewClient(cfg.Backend.URL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	client.SetTimeouts(cfg.Timeouts.Verify, cfg.Timeouts.Request)

	dir := captureDir
	if dir == "" {
		dir = cfg.Backend.CaptureDir
	}
	if dir != "" {
		if err := client.SetCaptureDir(dir); err != nil {
			return nil, err
		}
	}

	if cfg.Backend.Token == "" && cfg.Backend.Username != "" {
		if err := client.Login(ctx, cfg.Backend.Username, cfg.Backend.Password); err != nil {
			return nil, fmt.Errorf("failed to log in to backend: %w", err)
		}
	}
	return client, nil
}

// readImage loads an image file and normalizes it the way the kiosk
// normalizes camera frames.
func readImage(path string, cfg *config.Config) (camera.Frame, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-provided image path
	if err != nil {
		return camera.Frame{}, fmt.Errorf("reading image: %w", err)
	}
	frame, err := camera.Normalize(data, cfg.Camera.Width, cfg.Camera.Height)
	if err != nil {
		return camera.Frame{}, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}

// explainBackendError adds an operator hint to backend errors that have an
// obvious cause.
func explainBackendError(err error) error {
	switch {
	case err == nil:
		return nil
	case bundyclock.IsUnauthorized(err):
		return fmt.Errorf("%w (check BUNDYCLOCK_TOKEN or BUNDYCLOCK_USERNAME/BUNDYCLOCK_PASSWORD)", err)
	case bundyclock.IsNotFoundError(err):
		return fmt.Errorf("%w (check the employee id with \"bundy-kiosk roster\")", err)
	default:
		return err
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
