// Package camera supplies still frames to the capture surface.
//
// Frame acquisition itself happens elsewhere (a browser webcam pushing
// frames, an IP camera, a directory of recorded frames). Every producer
// publishes into a Mailbox and the capture surface takes snapshots from it
// on demand, so a snapshot never blocks on hardware.
package camera

import (
	"errors"
	"time"
)

// ErrNoFrame is returned by Snapshot when the video source has not produced
// a frame yet.
var ErrNoFrame = errors.New("no frame available")

// ErrFrameTooLarge is returned by Normalize when a frame declares more
// pixels than constants.MaxFramePixels.
var ErrFrameTooLarge = errors.New("frame dimensions too large")

// Image is a captured still: the handle passed from the capture surface to
// the attendance pipeline.
type Image struct {
	ID         string    `json:"id"`
	Data       []byte    `json:"-"` // JPEG bytes
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CapturedAt time.Time `json:"captured_at"`
}

// Source gives a snapshot of the current live frame.
type Source interface {
	Snapshot() (Image, error)
}

// Publisher accepts frames from a producer.
type Publisher interface {
	Publish(frame Frame)
}

// Frame is a single decoded-and-normalized frame from a producer.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	ReceivedAt time.Time
}
