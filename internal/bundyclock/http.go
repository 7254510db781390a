package bundyclock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"slices"
	"time"

	"github.com/google/uuid"
)

// request describes a single backend call.
type request struct {
	method      string
	endpoint    string
	body        io.Reader
	contentType string
	timeout     time.Duration
	expected    []int
}

// doRequestJSON performs the request and unwraps the response envelope into T.
// Every error keeps its cause in the chain, so IsTimeout works on the result.
func doRequestJSON[T any](ctx context.Context, c *Client, r request) (*T, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.resolveURL(r.endpoint), r.body)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL constructed from validated parsedURL via resolveURL
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	expected := r.expected
	if len(expected) == 0 {
		expected = []int{http.StatusOK}
	}
	if !isExpectedStatus(resp.StatusCode, expected) {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   r.endpoint,
			Message:    errorMessage(body),
		}
	}

	c.captureResponse(r.endpoint, body)

	var result envelope[T]
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}

	return &result.Data, nil
}

// isExpectedStatus checks if a status code is in the list of expected statuses.
func isExpectedStatus(code int, expected []int) bool {
	return slices.Contains(expected, code)
}

// errorMessage extracts the message from an error envelope, falling back to
// the raw body (FastAPI-style {"detail": ...} included).
func errorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if detail, ok := parsed.Detail.(string); ok && detail != "" {
			return detail
		}
	}
	return string(bytes.TrimSpace(body))
}

// multipartImage builds a multipart body with the image under the "image"
// field plus any extra form fields. A nil image produces only the fields.
func multipartImage(image []byte, filename string, fields map[string]string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("could not write form field %s: %w", key, err)
		}
	}

	if image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
		header.Set("Content-Type", "image/jpeg")
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("could not create form file: %w", err)
		}
		if _, err := part.Write(image); err != nil {
			return nil, "", fmt.Errorf("could not copy image data: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("could not close writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}
