package bundyclock

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Record records a time-in or time-out for employeeID. The image is
// optional and is attached as evidence when present.
func (c *Client) Record(ctx context.Context, employeeID string, direction Direction, image []byte) (*AttendanceLog, error) {
	if employeeID == "" {
		return nil, errors.New("employee ID is required")
	}
	endpoint, err := direction.endpoint()
	if err != nil {
		return nil, err
	}

	body, contentType, err := multipartImage(image, "capture.jpg", map[string]string{"employeeId": employeeID})
	if err != nil {
		return nil, err
	}

	result, err := doRequestJSON[AttendanceLog](ctx, c, request{
		method:      http.MethodPost,
		endpoint:    endpoint + "?employeeId=" + url.QueryEscape(employeeID),
		body:        body,
		contentType: contentType,
		timeout:     c.requestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", direction, err)
	}
	return result, nil
}

// TimeIn records a time-in.
func (c *Client) TimeIn(ctx context.Context, employeeID string, image []byte) (*AttendanceLog, error) {
	return c.Record(ctx, employeeID, TimeIn, image)
}

// TimeOut records a time-out.
func (c *Client) TimeOut(ctx context.Context, employeeID string, image []byte) (*AttendanceLog, error) {
	return c.Record(ctx, employeeID, TimeOut, image)
}

// ListAttendance returns every attendance log.
func (c *Client) ListAttendance(ctx context.Context) ([]AttendanceLog, error) {
	result, err := doRequestJSON[[]AttendanceLog](ctx, c, request{
		method:   http.MethodGet,
		endpoint: "attendance",
		timeout:  c.requestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	return *result, nil
}

// ListAttendanceByEmployee returns the logs of one employee, newest first.
func (c *Client) ListAttendanceByEmployee(ctx context.Context, employeeID string) ([]AttendanceLog, error) {
	result, err := doRequestJSON[[]AttendanceLog](ctx, c, request{
		method:   http.MethodGet,
		endpoint: "attendance/employee/" + url.PathEscape(employeeID),
		timeout:  c.requestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("listing attendance for %s: %w", employeeID, err)
	}
	return *result, nil
}
