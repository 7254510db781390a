// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Capture constants
const (
	// CountdownStart is the number of ticks an auto-capture countdown starts from
	CountdownStart = 3

	// CountdownTick is the length of one countdown tick
	CountdownTick = time.Second

	// ResultHold is how long a Success or Error result stays on screen before
	// the surface returns to the live feed
	ResultHold = 3 * time.Second
)

// Frame constants
const (
	// CaptureWidth and CaptureHeight bound the normalized capture frame,
	// matching the webcam constraints of the kiosk page
	CaptureWidth  = 480
	CaptureHeight = 360

	// JPEGQuality is the quality used when re-encoding normalized frames
	JPEGQuality = 85

	// MaxFramePixels bounds the declared size of an incoming frame before it
	// is decoded
	MaxFramePixels = 4096 * 4096

	// DefaultFeedInterval is the default interval between frames published by feeders
	DefaultFeedInterval = 200 * time.Millisecond
)

// Remote call constants
const (
	// VerifyTimeout is the timeout for face verification, which can take
	// tens of seconds while the recognition model warms up
	VerifyTimeout = 120 * time.Second

	// RequestTimeout is the timeout for every other backend call
	RequestTimeout = 15 * time.Second

	// PublishTimeout bounds publishing one event to the message bus
	PublishTimeout = 5 * time.Second
)

// Roster constants
const (
	// UnknownEmployeeName is the display name used when a verified employee id
	// is missing from the roster snapshot
	UnknownEmployeeName = "Unknown"
)
