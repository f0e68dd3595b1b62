package shared

import (
	"slices"

	"github.com/google/uuid"
)

// Role identifies the kind of party acting on the system
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleMarketer  Role = "marketer"
	RoleFulfiller Role = "fulfiller"
	RoleCustomer  Role = "customer"
	RoleSystem    Role = "system"
)

// IsValid reports whether the role is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMarketer, RoleFulfiller, RoleCustomer, RoleSystem:
		return true
	}
	return false
}

// Actor describes who is performing an operation.
// It is passed by value into every state-changing call.
type Actor struct {
	ID          uuid.UUID
	Role        Role
	Permissions []string
}

// NewActor creates an actor descriptor
func NewActor(id uuid.UUID, role Role, permissions ...string) Actor {
	return Actor{ID: id, Role: role, Permissions: permissions}
}

// SystemActor is used for work triggered by the service itself (event handlers, batch runs)
func SystemActor() Actor {
	return Actor{ID: uuid.Nil, Role: RoleSystem}
}

// IsAdmin reports whether the actor holds the administrative override.
// The system actor is treated as an administrator.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}

// HasPermission reports whether the actor was granted the permission
func (a Actor) HasPermission(permission string) bool {
	return slices.Contains(a.Permissions, permission)
}

// Owns reports whether the actor is the given owner
func (a Actor) Owns(ownerID uuid.UUID) bool {
	return ownerID != uuid.Nil && a.ID == ownerID
}
