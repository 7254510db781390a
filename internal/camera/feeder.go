package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DirFeeder replays the image files of a directory into a Publisher, one
// frame per interval, looping forever. It stands in for a camera when
// running demos or headless punches.
type DirFeeder struct {
	files     []string
	interval  time.Duration
	maxWidth  int
	maxHeight int
}

var frameExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// NewDirFeeder creates a feeder for path, which may be a directory of
// frames or a single image file.
func NewDirFeeder(path string, interval time.Duration, maxWidth, maxHeight int) (*DirFeeder, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not stat frame source: %w", err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("could not read frame directory: %w", err)
		}
		for _, entry := range entries {
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if !entry.IsDir() && slices.Contains(frameExtensions, ext) {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
		slices.Sort(files)
	} else {
		files = []string{path}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no image files found in %s", path)
	}

	return &DirFeeder{files: files, interval: interval, maxWidth: maxWidth, maxHeight: maxHeight}, nil
}

// Len returns the number of frames in the replay loop.
func (f *DirFeeder) Len() int {
	return len(f.files)
}

// Run publishes frames until ctx is cancelled. The first frame is published
// immediately.
func (f *DirFeeder) Run(ctx context.Context, pub Publisher) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(f.files) {
		if err := f.publishFile(f.files[i], pub); err != nil {
			log.Printf("camera: skipping %s: %v", f.files[i], err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (f *DirFeeder) publishFile(path string, pub Publisher) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-provided frame directory
	if err != nil {
		return fmt.Errorf("could not read frame: %w", err)
	}
	frame, err := Normalize(data, f.maxWidth, f.maxHeight)
	if err != nil {
		return err
	}
	pub.Publish(frame)
	return nil
}

// HTTPFeeder polls an IP camera still-image endpoint.
type HTTPFeeder struct {
	url       string
	interval  time.Duration
	maxWidth  int
	maxHeight int
	client    *http.Client
}

// NewHTTPFeeder creates a feeder polling url every interval.
func NewHTTPFeeder(url string, interval time.Duration, maxWidth, maxHeight int) *HTTPFeeder {
	return &HTTPFeeder{
		url:       url,
		interval:  interval,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Run polls until ctx is cancelled. Failures are logged once per streak so
// an unplugged camera does not flood the log.
func (f *HTTPFeeder) Run(ctx context.Context, pub Publisher) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	failing := false
	for {
		err := f.fetch(ctx, pub)
		switch {
		case err != nil && !failing && !errors.Is(err, context.Canceled):
			log.Printf("camera: snapshot from %s failed: %v", f.url, err)
			failing = true
		case err == nil && failing:
			log.Printf("camera: snapshot from %s recovered", f.url)
			failing = false
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (f *HTTPFeeder) fetch(ctx context.Context, pub Publisher) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	resp, err := f.client.Do(req) //nolint:gosec // operator-configured camera URL
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read snapshot: %w", err)
	}

	frame, err := Normalize(data, f.maxWidth, f.maxHeight)
	if err != nil {
		return err
	}
	pub.Publish(frame)
	return nil
}
