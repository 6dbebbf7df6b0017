package domain

import (
	"strings"
	"time"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name,omitempty"`
	Role            string     `json:"role"`
	PasswordHash    string     `json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// FirstName devuelve el primer nombre para saludos en correos.
func (u User) FirstName() string {
	parts := strings.Fields(u.Name)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func IsValidRole(role string) bool {
	return role == RolePatient || role == RoleDoctor
}
