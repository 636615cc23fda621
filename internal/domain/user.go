package domain

import (
	"slices"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleUser    Role = "User"
	RoleShipper Role = "Shipper"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	DateOfBirth  *time.Time `json:"dateOfBirth"`
	AvatarURL    string     `json:"avatar"`
	PasswordHash string     `json:"-"`
	Roles        []Role     `json:"roles,omitempty"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID    string
	Email string
	Roles []Role
}

func (c Caller) HasRole(role Role) bool {
	return slices.Contains(c.Roles, role)
}

func (c Caller) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}
