package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100

	// LoopQueueSize is the buffer size of the event loop task queue
	LoopQueueSize = 256
)

// Upload constants
const (
	// MaxFrameUploadSize is the maximum accepted size of a pushed camera frame
	MaxFrameUploadSize = 8 << 20
)
