// Package bundyclock is a client for the attendance backend: face
// verification and registration, attendance recording, and the employee
// roster.
package bundyclock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/bundy-kiosk/internal/constants"
)

// Client represents a client for the attendance backend API.
type Client struct {
	URL        string
	parsedURL  *url.URL
	token      string
	httpClient *http.Client
	captureDir string

	verifyTimeout  time.Duration
	requestTimeout time.Duration
}

// NewClient creates an unauthenticated client for the backend at rawURL.
// Call Login or SetToken before calling authenticated endpoints.
func NewClient(rawURL string) (*Client, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	apiURL := strings.TrimSuffix(rawURL, "/") + "/api"
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	return &Client{
		URL:            apiURL,
		parsedURL:      parsed,
		httpClient:     &http.Client{},
		verifyTimeout:  constants.VerifyTimeout,
		requestTimeout: constants.RequestTimeout,
	}, nil
}

// NewClientFromToken creates a client with an existing bearer token.
func NewClientFromToken(rawURL, token string) (*Client, error) {
	c, err := NewClient(rawURL)
	if err != nil {
		return nil, err
	}
	c.token = token
	return c, nil
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// SetTimeouts overrides the verification and regular request timeouts.
// Zero values keep the current setting.
func (c *Client) SetTimeouts(verify, request time.Duration) {
	if verify > 0 {
		c.verifyTimeout = verify
	}
	if request > 0 {
		c.requestTimeout = request
	}
}

// resolveURL builds a full URL from the base API URL and the given path segments.
// If the last segment contains a query string (e.g. "attendance/time-in?employeeId=1"),
// it is split so JoinPath only receives the path portion and the query is appended.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	last := pathSegments[len(pathSegments)-1]
	if pathPart, query, ok := strings.Cut(last, "?"); ok {
		pathSegments[len(pathSegments)-1] = pathPart
		result := c.parsedURL.JoinPath(pathSegments...)
		result.RawQuery = query
		return result.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("could not marshal input: %w", err)
	}

	result, err := doRequestJSON[loginResponse](ctx, c, request{
		method:      http.MethodPost,
		endpoint:    "auth/login",
		body:        bytes.NewReader(body),
		contentType: "application/json",
		timeout:     c.requestTimeout,
	})
	if err != nil {
		return fmt.Errorf("could not authenticate: %w", err)
	}
	if result.Token == "" {
		return fmt.Errorf("could not authenticate: empty token in response")
	}

	c.token = result.Token
	return nil
}

// SetCaptureDir enables API response capturing to the specified directory.
// Pass an empty string to disable capturing.
func (c *Client) SetCaptureDir(dir string) error {
	if dir == "" {
		c.captureDir = ""
		return nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create capture directory: %w", err)
	}
	c.captureDir = dir
	return nil
}

// captureResponse saves the API response body to a file if capturing is enabled.
func (c *Client) captureResponse(endpoint string, body []byte) {
	if c.captureDir == "" {
		return
	}

	// Sanitize endpoint for filename
	filename, _, _ := strings.Cut(endpoint, "?")
	filename = strings.TrimPrefix(strings.ReplaceAll(filename, "/", "_"), "_")
	filename = fmt.Sprintf("%s_%s.json", filename, time.Now().Format("20060102_150405"))

	path := filepath.Join(c.captureDir, filename)

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err == nil {
		body = prettyJSON.Bytes()
	}

	if err := os.WriteFile(path, body, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to capture response to %s: %v\n", path, err)
	}
}
