package bundyclock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Direction is the attendance event type.
type Direction string

// Direction constants match the backend enum.
const (
	TimeIn  Direction = "TIME_IN"
	TimeOut Direction = "TIME_OUT"
)

// endpoint returns the attendance endpoint recording this direction.
func (d Direction) endpoint() (string, error) {
	switch d {
	case TimeIn:
		return "attendance/time-in", nil
	case TimeOut:
		return "attendance/time-out", nil
	default:
		return "", fmt.Errorf("unknown attendance direction %q", d)
	}
}

// envelope is the wrapper every backend response uses.
type envelope[T any] struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      T         `json:"data"`
	Timestamp Timestamp `json:"timestamp"`
}

// VerifyResult is the outcome of a face verification.
type VerifyResult struct {
	EmployeeID      string   `json:"employeeId"`
	ConfidenceScore *float64 `json:"confidenceScore"`
	Matched         bool     `json:"matched"`
	Message         string   `json:"message"`
}

// AttendanceLog is a recorded time-in or time-out.
type AttendanceLog struct {
	ID              string    `json:"id"`
	EmployeeID      string    `json:"employeeId"`
	Timestamp       Timestamp `json:"timestamp"`
	Type            Direction `json:"type"`
	ImagePath       string    `json:"imagePath,omitempty"`
	ConfidenceScore *float64  `json:"confidenceScore"`
	Verified        bool      `json:"verified"`
	Notes           string    `json:"notes,omitempty"`
}

// Employee is the backend employee record.
type Employee struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	EmployeeCode string `json:"employeeCode"`
	Department   string `json:"department"`
	Email        string `json:"email"`
}

// FaceEmbedding is returned when a face is registered.
type FaceEmbedding struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	CreatedAt  Timestamp `json:"createdAt"`
}

type loginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Timestamp accepts the date formats the backend emits: RFC 3339 with an
// optional "[Zone/Name]" suffix, or epoch seconds with a fractional part.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] != '"' {
		secs, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("parse epoch timestamp: %w", err)
		}
		whole := int64(secs)
		t.Time = time.Unix(whole, int64((secs-float64(whole))*1e9))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshal timestamp: %w", err)
	}
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Local date-times carry no offset.
		local, localErr := time.ParseInLocation(localDateTime, s, time.Local)
		if localErr != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		parsed = local
	}
	t.Time = parsed
	return nil
}

const localDateTime = "2006-01-02T15:04:05.999999999"

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
