// Package roster holds the read-only employee snapshot used to turn a
// verified employee id into a display name.
package roster

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kozaktomas/bundy-kiosk/internal/constants"
)

// Employee is the roster entry shown on the kiosk.
type Employee struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Code        string `json:"code"`
	Department  string `json:"department,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Lister fetches the employee list from the backend.
type Lister interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// Snapshot is an immutable roster captured once per kiosk session. It is
// safe for concurrent reads.
type Snapshot struct {
	byID      map[string]Employee
	employees []Employee
}

// New builds a snapshot from a list of employees. Later duplicates of an
// id are ignored.
func New(employees []Employee) *Snapshot {
	s := &Snapshot{byID: make(map[string]Employee, len(employees))}
	for _, e := range employees {
		if _, dup := s.byID[e.ID]; dup {
			continue
		}
		s.byID[e.ID] = e
		s.employees = append(s.employees, e)
	}
	slices.SortFunc(s.employees, func(a, b Employee) int {
		return strings.Compare(a.Code, b.Code)
	})
	return s
}

// Load fetches the roster once.
func Load(ctx context.Context, lister Lister) (*Snapshot, error) {
	employees, err := lister.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}
	return New(employees), nil
}

// Lookup resolves id. Employees added after the snapshot was taken are not
// known; they resolve to a placeholder named "Unknown" instead of failing.
func (s *Snapshot) Lookup(id string) Employee {
	if e, ok := s.Get(id); ok {
		return e
	}
	return Employee{ID: id, DisplayName: constants.UnknownEmployeeName}
}

// Get returns the employee with id and whether it is in the snapshot.
func (s *Snapshot) Get(id string) (Employee, bool) {
	if s == nil {
		return Employee{}, false
	}
	e, ok := s.byID[id]
	return e, ok
}

// Len returns the number of employees in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.employees)
}

// Employees returns the employees ordered by code.
func (s *Snapshot) Employees() []Employee {
	if s == nil {
		return nil
	}
	return slices.Clone(s.employees)
}

// Search returns employees whose name or code contains query, ignoring
// case and diacritics ("novak" finds "Jan Novák").
func (s *Snapshot) Search(query string) []Employee {
	needle := NormalizeName(query)
	if needle == "" {
		return s.Employees()
	}
	var found []Employee
	for _, e := range s.Employees() {
		if strings.Contains(NormalizeName(e.DisplayName), needle) ||
			strings.Contains(NormalizeName(e.Code), needle) {
			found = append(found, e)
		}
	}
	return found
}
