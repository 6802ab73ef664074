package domain

import "time"

// UserRole enumerates identity roles. Agents and admins may be assigned
// tickets; end users only own them.
type UserRole string

const (
	RoleEndUser UserRole = "END_USER"
	RoleAgent   UserRole = "AGENT"
	RoleAdmin   UserRole = "ADMIN"
)

// CanBeAssigned reports whether the role has sufficient privilege to
// receive ticket assignments.
func (r UserRole) CanBeAssigned() bool {
	return r == RoleAgent || r == RoleAdmin
}

// UserStatus represents lifecycle states for an identity.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for requesters and support agents.
type User struct {
	ID             string
	OrganizationID *string
	Name           string
	Email          string
	PasswordHash   string
	Role           UserRole
	Status         UserStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
