package camera

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

type recordingPublisher struct {
	mu     sync.Mutex
	frames []Frame
}

func (p *recordingPublisher) Publish(frame Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frame)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func TestMailbox_EmptySnapshot(t *testing.T) {
	m := NewMailbox()

	_, err := m.Snapshot()
	if !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}
	if _, ok := m.Latest(); ok {
		t.Error("expected no latest frame")
	}
}

func TestMailbox_LatestWins(t *testing.T) {
	m := NewMailbox()

	m.Publish(Frame{Data: []byte("one"), Width: 1, Height: 1})
	m.Publish(Frame{Data: []byte("two"), Width: 2, Height: 2})

	img, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if string(img.Data) != "two" {
		t.Errorf("expected latest frame 'two', got '%s'", img.Data)
	}
	if img.Width != 2 {
		t.Errorf("expected width 2, got %d", img.Width)
	}

	stats := m.Stats()
	if stats.Published != 2 || stats.Overwritten != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestMailbox_SnapshotsAreIndependent(t *testing.T) {
	m := NewMailbox()
	m.Publish(Frame{Data: []byte("frame")})

	a, _ := m.Snapshot()
	b, _ := m.Snapshot()

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty IDs, got '%s' and '%s'", a.ID, b.ID)
	}
	a.Data[0] = 'X'
	if b.Data[0] != 'f' {
		t.Error("snapshots share image data")
	}
}

func TestNormalize_DownscalesKeepingAspect(t *testing.T) {
	frame, err := Normalize(encodePNG(t, 960, 540), 480, 360)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if frame.Width != 480 || frame.Height != 270 {
		t.Errorf("expected 480x270, got %dx%d", frame.Width, frame.Height)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		t.Fatalf("expected JPEG output: %v", err)
	}
	if decoded.Bounds().Dx() != 480 {
		t.Errorf("decoded width %d, want 480", decoded.Bounds().Dx())
	}
}

func TestNormalize_SmallImageKeepsSize(t *testing.T) {
	frame, err := Normalize(encodePNG(t, 100, 80), 480, 360)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if frame.Width != 100 || frame.Height != 80 {
		t.Errorf("expected 100x80, got %dx%d", frame.Width, frame.Height)
	}
}

func TestNormalize_InvalidData(t *testing.T) {
	if _, err := Normalize([]byte("not an image"), 480, 360); err == nil {
		t.Error("expected decode error")
	}
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h with no
// pixel data behind it.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.Write([]byte("\x89PNG\r\n\x1a\n"))

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	chunk := append([]byte("IHDR"), ihdr...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestNormalize_RejectsOversizedHeader(t *testing.T) {
	_, err := Normalize(pngHeader(30000, 30000), 480, 360)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestNormalize_AcceptsFrameAtLimit(t *testing.T) {
	if _, err := Normalize(encodePNG(t, 1920, 1080), 480, 360); err != nil {
		t.Fatalf("Normalize failed for a full HD frame: %v", err)
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{640, 480, 480, 360, 480, 360},
		{1920, 1080, 480, 360, 480, 270},
		{360, 720, 480, 360, 180, 360},
		{200, 100, 480, 360, 200, 100},
	}

	for _, tt := range tests {
		gotW, gotH := fitWithin(tt.w, tt.h, tt.maxW, tt.maxH)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("fitWithin(%d,%d,%d,%d) = %dx%d, want %dx%d",
				tt.w, tt.h, tt.maxW, tt.maxH, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestDirFeeder_PublishesFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), encodePNG(t, 40, 30), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600); err != nil {
		t.Fatal(err)
	}

	feeder, err := NewDirFeeder(dir, 5*time.Millisecond, 480, 360)
	if err != nil {
		t.Fatalf("NewDirFeeder failed: %v", err)
	}
	if feeder.Len() != 2 {
		t.Errorf("expected 2 frames, got %d", feeder.Len())
	}

	pub := &recordingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		feeder.Run(ctx, pub)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if pub.count() < 3 {
		t.Errorf("expected the feeder to loop over frames, got %d", pub.count())
	}
}

func TestDirFeeder_EmptyDirectory(t *testing.T) {
	if _, err := NewDirFeeder(t.TempDir(), time.Second, 480, 360); err == nil {
		t.Error("expected error for directory without images")
	}
}

func TestHTTPFeeder_PublishesSnapshot(t *testing.T) {
	pngData := encodePNG(t, 64, 48)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngData)
	}))
	defer server.Close()

	feeder := NewHTTPFeeder(server.URL, time.Hour, 480, 360)
	pub := &recordingPublisher{}

	if err := feeder.fetch(context.Background(), pub); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("expected 1 frame, got %d", pub.count())
	}
	if pub.frames[0].Width != 64 {
		t.Errorf("expected width 64, got %d", pub.frames[0].Width)
	}
}

func TestHTTPFeeder_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "offline", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	feeder := NewHTTPFeeder(server.URL, time.Hour, 480, 360)
	pub := &recordingPublisher{}

	if err := feeder.fetch(context.Background(), pub); err == nil {
		t.Error("expected error for 503")
	}
	if pub.count() != 0 {
		t.Error("expected nothing published on failure")
	}
}
