package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of user roles
type Role string

const (
	// RoleRenter books time with a mate (the requester)
	RoleRenter Role = "RENTER"
	// RoleMate offers their time (the provider)
	RoleMate Role = "MATE"
)

// ErrUnknownRole is returned when a role string is not one of the known roles
var ErrUnknownRole = errors.New("unknown role")

// ParseRole converts a wire value into a Role.
// Anything outside the known set is rejected so new roles can never pass an authorization check by default.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleRenter:
		return RoleRenter, nil
	case RoleMate:
		return RoleMate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleRenter, RoleMate:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// User is the subset of the user record the booking core reads
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
