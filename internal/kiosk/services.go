package kiosk

import (
	"context"

	"github.com/kozaktomas/bundy-kiosk/internal/attendance"
	"github.com/kozaktomas/bundy-kiosk/internal/bundyclock"
)

// Backend adapts the bundyclock client to the attendance services.
type Backend struct {
	Client *bundyclock.Client
}

// Verify implements attendance.Verifier.
func (b Backend) Verify(ctx context.Context, image []byte) (attendance.Verification, error) {
	result, err := b.Client.VerifyFace(ctx, image)
	if err != nil {
		return attendance.Verification{}, serviceError(err)
	}
	return attendance.Verification{
		Matched:    result.Matched,
		EmployeeID: result.EmployeeID,
		Confidence: result.ConfidenceScore,
		Message:    result.Message,
	}, nil
}

// Record implements attendance.Recorder.
func (b Backend) Record(ctx context.Context, employeeID string, mode attendance.Mode, image []byte) (attendance.Record, error) {
	entry, err := b.Client.Record(ctx, employeeID, bundyclock.Direction(mode), image)
	if err != nil {
		return attendance.Record{}, serviceError(err)
	}
	return attendance.Record{
		ID:         entry.ID,
		EmployeeID: entry.EmployeeID,
		Timestamp:  entry.Timestamp.Time,
		Confidence: entry.ConfidenceScore,
	}, nil
}

func serviceError(err error) error {
	return &attendance.ServiceError{
		Message: bundyclock.Message(err),
		Timeout: bundyclock.IsTimeout(err),
		Err:     err,
	}
}
