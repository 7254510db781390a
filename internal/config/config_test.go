package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Kiosk.Mode != "TIME_IN" {
		t.Errorf("expected default mode TIME_IN, got '%s'", cfg.Kiosk.Mode)
	}
	if !cfg.Kiosk.AutoCapture {
		t.Error("expected auto capture to be enabled by default")
	}
	if cfg.Kiosk.CountdownStart != 3 {
		t.Errorf("expected countdown start 3, got %d", cfg.Kiosk.CountdownStart)
	}
	if cfg.Kiosk.CountdownTick != time.Second {
		t.Errorf("expected countdown tick 1s, got %s", cfg.Kiosk.CountdownTick)
	}
	if cfg.Kiosk.ResultHold != 3*time.Second {
		t.Errorf("expected result hold 3s, got %s", cfg.Kiosk.ResultHold)
	}
	if cfg.Timeouts.Verify != 120*time.Second {
		t.Errorf("expected verify timeout 120s, got %s", cfg.Timeouts.Verify)
	}
	if cfg.Timeouts.Request != 15*time.Second {
		t.Errorf("expected request timeout 15s, got %s", cfg.Timeouts.Request)
	}
	if cfg.Camera.Width != 480 || cfg.Camera.Height != 360 {
		t.Errorf("expected 480x360 camera, got %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KIOSK_CONFIG_FILE", "")
	t.Setenv("BUNDYCLOCK_URL", "http://backend:8080/")
	t.Setenv("BUNDYCLOCK_TOKEN", "secret")
	t.Setenv("KIOSK_MODE", "time_out")
	t.Setenv("KIOSK_AUTO_CAPTURE", "false")
	t.Setenv("KIOSK_COUNTDOWN", "5")
	t.Setenv("VERIFY_TIMEOUT", "90s")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://kiosk.example.com, ,https://hr.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend.URL != "http://backend:8080" {
		t.Errorf("expected trailing slash to be trimmed, got '%s'", cfg.Backend.URL)
	}
	if cfg.Backend.Token != "secret" {
		t.Errorf("expected token from env, got '%s'", cfg.Backend.Token)
	}
	if cfg.Kiosk.Mode != "TIME_OUT" {
		t.Errorf("expected mode TIME_OUT, got '%s'", cfg.Kiosk.Mode)
	}
	if cfg.Kiosk.AutoCapture {
		t.Error("expected auto capture disabled by env")
	}
	if cfg.Kiosk.CountdownStart != 5 {
		t.Errorf("expected countdown 5, got %d", cfg.Kiosk.CountdownStart)
	}
	if cfg.Timeouts.Verify != 90*time.Second {
		t.Errorf("expected verify timeout 90s, got %s", cfg.Timeouts.Verify)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected NATS URL from env, got '%s'", cfg.NATS.URL)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("expected web port 9090, got %d", cfg.Web.Port)
	}
	if len(cfg.Web.AllowedOrigins) != 2 || cfg.Web.AllowedOrigins[1] != "https://hr.example.com" {
		t.Errorf("unexpected allowed origins: %v", cfg.Web.AllowedOrigins)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("KIOSK_CONFIG_FILE", "")
	t.Setenv("KIOSK_COUNTDOWN", "-2")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Kiosk.CountdownStart != 3 {
		t.Errorf("expected fallback countdown 3, got %d", cfg.Kiosk.CountdownStart)
	}
	if cfg.Timeouts.Request != 15*time.Second {
		t.Errorf("expected fallback request timeout, got %s", cfg.Timeouts.Request)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kiosk.yaml")
	content := "kiosk:\n  countdown_start: 7\n  result_hold: 5s\ncamera:\n  dir: /srv/frames\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KIOSK_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Kiosk.CountdownStart != 7 {
		t.Errorf("expected countdown 7 from file, got %d", cfg.Kiosk.CountdownStart)
	}
	if cfg.Kiosk.ResultHold != 5*time.Second {
		t.Errorf("expected result hold 5s from file, got %s", cfg.Kiosk.ResultHold)
	}
	if cfg.Camera.Dir != "/srv/frames" {
		t.Errorf("expected camera dir from file, got '%s'", cfg.Camera.Dir)
	}
	// Keys absent from the file keep their defaults
	if cfg.Kiosk.CountdownTick != time.Second {
		t.Errorf("expected default tick to survive, got %s", cfg.Kiosk.CountdownTick)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("KIOSK_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad mode", func(c *Config) { c.Kiosk.Mode = "LUNCH" }, true},
		{"zero countdown", func(c *Config) { c.Kiosk.CountdownStart = 0 }, true},
		{"zero tick", func(c *Config) { c.Kiosk.CountdownTick = 0 }, true},
		{"zero feed interval", func(c *Config) { c.Camera.FeedInterval = 0 }, true},
		{"negative feed interval", func(c *Config) { c.Camera.FeedInterval = -time.Second }, true},
		{"zero width", func(c *Config) { c.Camera.Width = 0 }, true},
		{"zero height", func(c *Config) { c.Camera.Height = 0 }, true},
		{"verify not longer than request", func(c *Config) { c.Timeouts.Verify = c.Timeouts.Request }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ConfigFileZeroFeedInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk.yaml")
	if err := os.WriteFile(path, []byte("camera:\n  feed_interval: 0s\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KIOSK_CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Error("expected error for a zero feed interval")
	}
}
