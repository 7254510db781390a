package kiosk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/bundy-kiosk/internal/attendance"
	"github.com/kozaktomas/bundy-kiosk/internal/bundyclock"
)

func writeEnvelope(w http.ResponseWriter, status int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success":   success,
		"message":   message,
		"data":      data,
		"timestamp": "2026-03-02T08:00:00.000+08:00",
	})
}

func newBackend(t *testing.T, mux *http.ServeMux) Backend {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := bundyclock.NewClientFromToken(server.URL, "test-token")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return Backend{Client: client}
}

func TestBackend_Verify(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/face/verify", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "Face verified", map[string]any{
			"employeeId":      "emp-1",
			"confidenceScore": 0.91,
			"matched":         true,
		})
	})
	backend := newBackend(t, mux)

	got, err := backend.Verify(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !got.Matched || got.EmployeeID != "emp-1" {
		t.Errorf("unexpected verification: %+v", got)
	}
	if got.Confidence == nil || *got.Confidence != 0.91 {
		t.Errorf("unexpected confidence: %v", got.Confidence)
	}
}

func TestBackend_Record(t *testing.T) {
	var gotPath, gotEmployee string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/attendance/time-out", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotEmployee = r.URL.Query().Get("employeeId")
		writeEnvelope(w, http.StatusOK, true, "Time-out recorded", map[string]any{
			"id":         "log-3",
			"employeeId": "emp-1",
			"timestamp":  "2026-03-02T17:30:00",
			"type":       "TIME_OUT",
			"verified":   true,
		})
	})
	backend := newBackend(t, mux)

	rec, err := backend.Record(context.Background(), "emp-1", attendance.TimeOut, []byte("jpeg"))
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if gotPath != "/api/attendance/time-out" || gotEmployee != "emp-1" {
		t.Errorf("unexpected request %s employee=%s", gotPath, gotEmployee)
	}
	if rec.ID != "log-3" {
		t.Errorf("record id = %q, want log-3", rec.ID)
	}
	if rec.Timestamp.Hour() != 17 {
		t.Errorf("unexpected timestamp %v", rec.Timestamp)
	}
}

func TestBackend_RecordRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/attendance/time-in", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, false, "Already timed in today. Please time out first.", nil)
	})
	backend := newBackend(t, mux)

	_, err := backend.Record(context.Background(), "emp-1", attendance.TimeIn, nil)
	var se *attendance.ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServiceError, got %T %v", err, err)
	}
	if se.Message != "Already timed in today. Please time out first." {
		t.Errorf("message = %q", se.Message)
	}
	if se.Timeout {
		t.Error("expected non-timeout error")
	}
}

func TestBackend_VerifyTimeout(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/face/verify", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	backend := newBackend(t, mux)
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := backend.Verify(ctx, []byte("jpeg"))
	var se *attendance.ServiceError
	if !errors.As(err, &se) || !se.Timeout {
		t.Fatalf("expected timeout ServiceError, got %v", err)
	}
}
