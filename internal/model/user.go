package model

import (
	"errors"
	"fmt"
)

// User is the account returned by the REST API. It is held only for the
// duration of a request and always re-fetched from /auth/me.
type User struct {
	ID    int64  `json:"id" mapstructure:"id"`
	Name  string `json:"name" mapstructure:"name"`
	Email string `json:"email" mapstructure:"email"`
	Role  string `json:"role,omitempty" mapstructure:"role"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// MinPasswordLength is the shortest password the register form accepts.
const MinPasswordLength = 8

// ErrPasswordTooShort is returned by ValidatePassword.
var ErrPasswordTooShort = errors.New("password too short")

// IsAdmin reports whether the user holds the admin role. A nil user is never admin.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ValidatePassword checks the local password rules before anything is sent
// to the backend.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPasswordTooShort, MinPasswordLength)
	}
	return nil
}
