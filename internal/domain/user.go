package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the authorization role carried by every user.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleNormal     Role = "normal"
	RoleStoreOwner Role = "store_owner"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleNormal, RoleStoreOwner:
		return true
	}
	return false
}

// ParseRole normalizes raw and checks it against the known roles.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.IsValid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidValue, raw)
	}
	return role, nil
}

// User is a platform account. The password hash never leaves the repository.
type User struct {
	ID        int64
	Name      string
	Email     string
	Address   string
	Role      Role
	CreatedAt time.Time
}

// UserView is the admin projection of a user. Rating is set only for store owners
// that own a store.
type UserView struct {
	User
	Rating *float64
}
