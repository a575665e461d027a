package model

import (
	"strings"
	"time"

	apperrors "github.com/jwalitptl/carebook/pkg/errors"
)

// Role is the capability tag carried by every session.
type Role string

const (
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// User represents a registered patient identity
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	Phone        string    `json:"phone" db:"phone"`
	Role         Role      `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Session is the authenticated caller identity.
type Session struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Is reports whether the session carries the given role.
func (s *Session) Is(role Role) bool {
	return s != nil && s.Role == role
}

// Require returns ErrPermissionDenied unless the session carries role.
func (s *Session) Require(role Role) error {
	if !s.Is(role) {
		return apperrors.ErrPermissionDenied
	}
	return nil
}

// Initials returns up to two upper-cased initials of the session name.
func (s *Session) Initials() string {
	var b strings.Builder
	for _, word := range strings.Fields(s.Name) {
		b.WriteRune([]rune(word)[0])
	}
	initials := []rune(b.String())
	if len(initials) > 2 {
		initials = initials[:2]
	}
	return strings.ToUpper(string(initials))
}

// Dashboard is the landing path for the session's role.
func (s *Session) Dashboard() string {
	if s.Is(RoleAdmin) {
		return "/admin/dashboard"
	}
	return "/patient/dashboard"
}

type RegisterRequest struct {
	Name     string `form:"name" validate:"required"`
	Email    string `form:"email" validate:"required"`
	Phone    string `form:"phone"`
	Password string `form:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}
