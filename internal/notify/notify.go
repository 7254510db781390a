// Package notify carries kiosk notifications to the host UI (toasts) and
// attendance events to other systems.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/bundy-kiosk/internal/constants"
)

// Severity of a notification, mirroring toast colours.
type Severity string

// Severity constants.
const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event types carried by the broadcaster.
const (
	EventNotify = "notify"
	EventStatus = "status"
)

// Notification is a transient message for the operator.
type Notification struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	Phase    string    `json:"phase,omitempty"`
	Time     time.Time `json:"time"`
}

// Event is what listeners receive.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Broadcaster fans events out to listeners. A listener whose buffer is full
// misses events instead of blocking the sender.
type Broadcaster struct {
	listeners []chan Event
	mu        sync.RWMutex
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// AddListener adds an event listener.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener and closes its channel.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *Broadcaster) SendEvent(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// ListenerCount returns the number of registered listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Notify broadcasts a notification event.
func (b *Broadcaster) Notify(n Notification) {
	b.SendEvent(Event{Type: EventNotify, Data: n})
}

// Publisher is the interface for emitting events to other systems.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
