package attendance

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a cycle ended in the Error phase.
type ErrorKind string

// Error kinds.
const (
	ErrNoFrameAvailable      ErrorKind = "no_frame_available"
	ErrNotRecognized         ErrorKind = "not_recognized"
	ErrVerificationTimeout   ErrorKind = "verification_timeout"
	ErrRecordingTimeout      ErrorKind = "recording_timeout"
	ErrVerificationTransport ErrorKind = "verification_transport"
	ErrRecordingTransport    ErrorKind = "recording_transport"
	ErrStaleResponse         ErrorKind = "stale_response"
)

// User-visible messages.
const (
	MsgNotRecognized        = "Face not recognized. Please try again."
	MsgVerificationBusy     = "Face verification service is busy. Please try again."
	MsgRecordingBusy        = "Attendance service is busy. Please try again."
	MsgVerificationFailed   = "Face verification failed. Please try again."
	MsgRecordingFailed      = "Could not record attendance. Please try again."
	MsgNoEmployeeInResponse = "Face verification returned no employee."
	MsgNoFrame              = "Camera is not ready yet."
)

// Failure is the error shown to the operator.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// ServiceError is a failure reported by a remote service. Message is the
// service's own explanation, empty when it gave none.
type ServiceError struct {
	Message string
	Timeout bool
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v (%s)", e.Err, e.Message)
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

type stage int

const (
	stageVerify stage = iota
	stageRecord
)

// classify maps a remote call error to the failure shown for stage.
func classify(s stage, err error) Failure {
	timeout := errors.Is(err, context.DeadlineExceeded)
	message := ""

	var se *ServiceError
	if errors.As(err, &se) {
		timeout = timeout || se.Timeout
		message = se.Message
	}

	switch {
	case s == stageVerify && timeout:
		return Failure{Kind: ErrVerificationTimeout, Message: MsgVerificationBusy}
	case s == stageRecord && timeout:
		return Failure{Kind: ErrRecordingTimeout, Message: MsgRecordingBusy}
	case s == stageVerify:
		return Failure{Kind: ErrVerificationTransport, Message: orDefault(message, MsgVerificationFailed)}
	default:
		return Failure{Kind: ErrRecordingTransport, Message: orDefault(message, MsgRecordingFailed)}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
