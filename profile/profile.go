package profile

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound reports that no profile matches the requested email.
var ErrNotFound = errors.New("profile not found")

// Role is the coarse role attribute consumers interpret for authorization.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	default:
		return false
	}
}

// Profile is the application's view of a registered person.
type Profile struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Role         Role    `json:"role"`
	DepartmentID *string `json:"department_id,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Position     string  `json:"position,omitempty"`
	Active       bool    `json:"active"`
}

// Clone returns a deep copy so callers can hand profiles across goroutines.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	if p.DepartmentID != nil {
		dep := *p.DepartmentID
		out.DepartmentID = &dep
	}
	return &out
}

// Resolver looks up a profile by the principal's email.
type Resolver interface {
	FindByEmail(ctx context.Context, email string) (*Profile, error)
}

// NormalizeEmail is the canonical form used for lookups and cache keys.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
