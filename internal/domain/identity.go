package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of portal roles.
type Role int

const (
	RoleUnknown Role = iota
	RoleConsumer
	RoleStaff
)

// ParseRole maps the role strings used by the portal API onto Role.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "client", "consumer", "student", "user":
		return RoleConsumer, nil
	case "admin", "employee", "staff":
		return RoleStaff, nil
	default:
		return RoleUnknown, fmt.Errorf("unknown role %q", raw)
	}
}

// String returns the wire form of the role.
func (r Role) String() string {
	switch r {
	case RoleConsumer:
		return "client"
	case RoleStaff:
		return "admin"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if r == RoleUnknown {
		return nil, fmt.Errorf("cannot encode unknown role")
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Identity is the authenticated user context.
type Identity struct {
	ID          ID     `json:"id"`
	Username    string `json:"username"`
	Role        Role   `json:"role"`
	AccessToken string `json:"access_token"`
}

// Valid reports whether the identity is well formed.
func (i *Identity) Valid() bool {
	if i == nil {
		return false
	}
	return i.ID != "" && i.Username != "" && i.AccessToken != "" && i.Role != RoleUnknown
}

// IsStaff reports whether the identity belongs to an admin/employee.
func (i *Identity) IsStaff() bool {
	return i != nil && i.Role == RoleStaff
}
