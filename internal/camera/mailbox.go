package camera

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Mailbox holds the latest published frame. A new frame overwrites the
// previous one whether or not it was ever snapshotted.
type Mailbox struct {
	mu    sync.RWMutex
	frame *Frame

	published   atomic.Uint64
	overwritten atomic.Uint64
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Publish stores frame as the latest frame. The caller must not modify
// frame.Data afterwards.
func (m *Mailbox) Publish(frame Frame) {
	m.mu.Lock()
	if m.frame != nil {
		m.overwritten.Add(1)
	}
	m.frame = &frame
	m.mu.Unlock()
	m.published.Add(1)
}

// Snapshot returns the latest frame as a new Image with a fresh ID.
func (m *Mailbox) Snapshot() (Image, error) {
	m.mu.RLock()
	frame := m.frame
	m.mu.RUnlock()

	if frame == nil {
		return Image{}, ErrNoFrame
	}

	data := make([]byte, len(frame.Data))
	copy(data, frame.Data)
	return Image{
		ID:         uuid.New().String(),
		Data:       data,
		Width:      frame.Width,
		Height:     frame.Height,
		CapturedAt: frame.ReceivedAt,
	}, nil
}

// Latest returns the most recent frame without copying, or false when the
// mailbox is empty.
func (m *Mailbox) Latest() (Frame, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.frame == nil {
		return Frame{}, false
	}
	return *m.frame, true
}

// Stats reports mailbox counters.
type Stats struct {
	Published   uint64 `json:"published"`
	Overwritten uint64 `json:"overwritten"`
}

// Stats returns a snapshot of the mailbox counters.
func (m *Mailbox) Stats() Stats {
	return Stats{
		Published:   m.published.Load(),
		Overwritten: m.overwritten.Load(),
	}
}
