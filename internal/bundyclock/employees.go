package bundyclock

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kozaktomas/bundy-kiosk/internal/roster"
)

// GetEmployees returns the raw employee records.
func (c *Client) GetEmployees(ctx context.Context) ([]Employee, error) {
	result, err := doRequestJSON[[]Employee](ctx, c, request{
		method:   http.MethodGet,
		endpoint: "employees",
		timeout:  c.requestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	return *result, nil
}

// ListEmployees returns the employees as roster entries (implements roster.Lister).
func (c *Client) ListEmployees(ctx context.Context) ([]roster.Employee, error) {
	employees, err := c.GetEmployees(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]roster.Employee, 0, len(employees))
	for _, e := range employees {
		out = append(out, roster.Employee{
			ID:          e.ID,
			DisplayName: e.Name,
			Code:        e.EmployeeCode,
			Department:  e.Department,
			Email:       e.Email,
		})
	}
	return out, nil
}
