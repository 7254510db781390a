package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Kiosk    KioskConfig    `yaml:"kiosk"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Camera   CameraConfig   `yaml:"camera"`
	NATS     NATSConfig     `yaml:"nats"`
	Web      WebConfig      `yaml:"web"`
}

// BackendConfig describes the attendance backend that hosts the face,
// attendance and employee APIs.
type BackendConfig struct {
	URL        string `yaml:"url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"-"`
	Token      string `yaml:"-"`
	CaptureDir string `yaml:"capture_dir"` // saves raw API responses for building fixtures
}

type KioskConfig struct {
	Mode           string        `yaml:"mode"` // TIME_IN or TIME_OUT
	AutoCapture    bool          `yaml:"auto_capture"`
	CountdownStart int           `yaml:"countdown_start"`
	CountdownTick  time.Duration `yaml:"countdown_tick"`
	ResultHold     time.Duration `yaml:"result_hold"`
}

type TimeoutsConfig struct {
	Verify  time.Duration `yaml:"verify"`
	Request time.Duration `yaml:"request"`
}

type CameraConfig struct {
	SnapshotURL  string        `yaml:"snapshot_url"` // IP camera still-image endpoint
	Dir          string        `yaml:"dir"`          // directory of frames to replay
	FeedInterval time.Duration `yaml:"feed_interval"`
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// WebConfig is the host shell's HTTP listener.
type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // localhost is always allowed
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive time.Duration ("90s", "2m").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean ("1", "true", "false", ...).
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Defaults returns the embedded default configuration without consulting
// the environment.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

// Load builds the configuration from the embedded defaults, the optional
// KIOSK_CONFIG_FILE and the environment, in that order of precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("KIOSK_CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFile overlays the YAML file at path on top of the current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-provided config path
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Backend.URL = strings.TrimSuffix(envString("BUNDYCLOCK_URL", c.Backend.URL), "/")
	c.Backend.Username = envString("BUNDYCLOCK_USERNAME", c.Backend.Username)
	c.Backend.Password = os.Getenv("BUNDYCLOCK_PASSWORD")
	c.Backend.Token = os.Getenv("BUNDYCLOCK_TOKEN")
	c.Backend.CaptureDir = envString("BUNDYCLOCK_CAPTURE_DIR", c.Backend.CaptureDir)

	c.Kiosk.Mode = strings.ToUpper(envString("KIOSK_MODE", c.Kiosk.Mode))
	c.Kiosk.AutoCapture = envBool("KIOSK_AUTO_CAPTURE", c.Kiosk.AutoCapture)
	c.Kiosk.CountdownStart = envInt("KIOSK_COUNTDOWN", c.Kiosk.CountdownStart)
	c.Kiosk.CountdownTick = envDuration("KIOSK_COUNTDOWN_TICK", c.Kiosk.CountdownTick)
	c.Kiosk.ResultHold = envDuration("KIOSK_RESULT_HOLD", c.Kiosk.ResultHold)

	c.Timeouts.Verify = envDuration("VERIFY_TIMEOUT", c.Timeouts.Verify)
	c.Timeouts.Request = envDuration("REQUEST_TIMEOUT", c.Timeouts.Request)

	c.Camera.SnapshotURL = envString("CAMERA_SNAPSHOT_URL", c.Camera.SnapshotURL)
	c.Camera.Dir = envString("CAMERA_DIR", c.Camera.Dir)
	c.Camera.FeedInterval = envDuration("CAMERA_FEED_INTERVAL", c.Camera.FeedInterval)
	c.Camera.Width = envInt("CAMERA_WIDTH", c.Camera.Width)
	c.Camera.Height = envInt("CAMERA_HEIGHT", c.Camera.Height)

	c.NATS.URL = envString("NATS_URL", c.NATS.URL)
	c.NATS.SubjectPrefix = envString("NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)

	c.Web.Host = envString("WEB_HOST", c.Web.Host)
	c.Web.Port = envInt("WEB_PORT", c.Web.Port)
	if origins := os.Getenv("WEB_ALLOWED_ORIGINS"); origins != "" {
		c.Web.AllowedOrigins = nil
		for o := range strings.SplitSeq(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Web.AllowedOrigins = append(c.Web.AllowedOrigins, o)
			}
		}
	}
}

// Validate checks values that would otherwise break the capture pipeline.
func (c *Config) Validate() error {
	switch c.Kiosk.Mode {
	case "TIME_IN", "TIME_OUT":
	default:
		return fmt.Errorf("invalid kiosk mode %q (want TIME_IN or TIME_OUT)", c.Kiosk.Mode)
	}
	if c.Kiosk.CountdownStart < 1 {
		return fmt.Errorf("countdown_start must be at least 1, got %d", c.Kiosk.CountdownStart)
	}
	if c.Kiosk.CountdownTick <= 0 || c.Kiosk.ResultHold <= 0 {
		return fmt.Errorf("countdown_tick and result_hold must be positive")
	}
	if c.Camera.FeedInterval <= 0 {
		return fmt.Errorf("camera feed_interval must be positive, got %s", c.Camera.FeedInterval)
	}
	if c.Camera.Width < 1 || c.Camera.Height < 1 {
		return fmt.Errorf("camera width and height must be at least 1, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Timeouts.Verify <= c.Timeouts.Request {
		return fmt.Errorf("verify timeout (%s) must be longer than the request timeout (%s)",
			c.Timeouts.Verify, c.Timeouts.Request)
	}
	return nil
}
