package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleResponder UserRole = "responder"
	RoleAdmin     UserRole = "admin"
)

var roleTier = map[UserRole]int{
	RoleUser:      1,
	RoleResponder: 2,
	RoleAdmin:     3,
}

func IsValidRole(role UserRole) bool {
	_, ok := roleTier[role]
	return ok
}

func ParseRole(raw string) (UserRole, bool) {
	role := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	return role, IsValidRole(role)
}

// HasAtLeast reports whether any of the caller's roles meets the required
// tier.
func HasAtLeast(roles []UserRole, required UserRole) bool {
	need := roleTier[required]
	for _, role := range roles {
		if roleTier[role] >= need {
			return true
		}
	}
	return false
}

// User carries the slice of the account record the alert core actually
// needs: the configured SOS keyword and the verification flag used by the
// account sweep. Registration, login, and profile editing live elsewhere.
type User struct {
	ID         string    `json:"id" db:"id"`
	FullName   string    `json:"full_name" db:"full_name"`
	Email      string    `json:"email" db:"email"`
	Phone      string    `json:"phone" db:"phone"`
	Role       UserRole  `json:"role" db:"role"`
	SOSKeyword string    `json:"sos_keyword" db:"sos_keyword"`
	Verified   bool      `json:"verified" db:"verified"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
