package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/bundy-kiosk/internal/attendance"
	"github.com/kozaktomas/bundy-kiosk/internal/camera"
	"github.com/kozaktomas/bundy-kiosk/internal/kiosk"
	"github.com/kozaktomas/bundy-kiosk/internal/loop"
	"github.com/kozaktomas/bundy-kiosk/internal/roster"
)

// stubServices answers verification and recording without a backend.
type stubServices struct {
	mu           sync.Mutex
	verification attendance.Verification
	gate         chan struct{}
}

func (s *stubServices) Verify(ctx context.Context, _ []byte) (attendance.Verification, error) {
	s.mu.Lock()
	result, gate := s.verification, s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return attendance.Verification{}, ctx.Err()
		}
	}
	return result, nil
}

func (s *stubServices) Record(_ context.Context, employeeID string, _ attendance.Mode, _ []byte) (attendance.Record, error) {
	return attendance.Record{ID: "log-1", EmployeeID: employeeID, Timestamp: time.Now()}, nil
}

// newTestSession starts a kiosk session on a real event loop.
func newTestSession(t *testing.T, services *stubServices) *kiosk.Kiosk {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	l := loop.New()
	go l.Run(ctx)

	if services == nil {
		services = &stubServices{verification: attendance.Verification{Matched: true, EmployeeID: "emp-1"}}
	}
	snapshot := roster.New([]roster.Employee{{ID: "emp-1", DisplayName: "Ada Lovelace", Code: "E001"}})

	k := kiosk.New(ctx, l, camera.NewMailbox(), snapshot, services, services, nil, kiosk.Options{
		Mode:       attendance.TimeIn,
		ResultHold: time.Hour,
	})
	if err := k.Start(ctx); err != nil {
		t.Fatalf("failed to start kiosk: %v", err)
	}
	return k
}

// waitForPhase polls the session until it reaches want.
func waitForPhase(t *testing.T, k *kiosk.Kiosk, want attendance.Phase) kiosk.Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		status, err := k.Status(context.Background())
		if err != nil {
			t.Fatalf("Status() error: %v", err)
		}
		if status.Phase == want {
			return status
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for phase %s, got %s", want, status.Phase)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for x := range 32 {
		for y := range 24 {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// oversizedPNGHeader returns a PNG that declares w x h but carries no pixel
// data.
func oversizedPNGHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8], ihdr[9] = 8, 6

	chunk := append([]byte("IHDR"), ihdr...)
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
