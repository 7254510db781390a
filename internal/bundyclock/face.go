package bundyclock

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// VerifyFace matches a captured face against every registered employee.
// It uses the verification timeout, which is much longer than the regular
// request timeout because the recognition model can take tens of seconds
// on its first call.
func (c *Client) VerifyFace(ctx context.Context, image []byte) (*VerifyResult, error) {
	if len(image) == 0 {
		return nil, errors.New("image is required")
	}

	body, contentType, err := multipartImage(image, "verify.jpg", nil)
	if err != nil {
		return nil, err
	}

	result, err := doRequestJSON[VerifyResult](ctx, c, request{
		method:      http.MethodPost,
		endpoint:    "face/verify",
		body:        body,
		contentType: contentType,
		timeout:     c.verifyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("verifying face: %w", err)
	}
	return result, nil
}

// RegisterFace enrolls a face image for an employee.
func (c *Client) RegisterFace(ctx context.Context, employeeID string, image []byte) (*FaceEmbedding, error) {
	if employeeID == "" {
		return nil, errors.New("employee ID is required")
	}
	if len(image) == 0 {
		return nil, errors.New("image is required")
	}

	body, contentType, err := multipartImage(image, "register.jpg", nil)
	if err != nil {
		return nil, err
	}

	result, err := doRequestJSON[FaceEmbedding](ctx, c, request{
		method:      http.MethodPost,
		endpoint:    "face/register?employeeId=" + url.QueryEscape(employeeID),
		body:        body,
		contentType: contentType,
		timeout:     c.verifyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("registering face: %w", err)
	}
	return result, nil
}
