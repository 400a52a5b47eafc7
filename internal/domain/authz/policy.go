// Package authz centralizes ownership and role checks for booking and order
// mutations. Callers describe the resource's ownership once and evaluate
// (actor, resource, action) instead of repeating role logic per endpoint.
package authz

import (
	"github.com/go-faster/errors"
)

// ErrForbidden is returned when the actor lacks ownership or role for the
// requested action.
var ErrForbidden = errors.New("forbidden")

// Role is the coarse role attached to an authenticated identity by the
// identity collaborator.
type Role string

const (
	RoleUser     Role = "user"
	RoleProvider Role = "provider"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// Actor is the acting identity. The zero Actor is an anonymous guest.
type Actor struct {
	ID   string
	Role Role
}

// IsGuest reports whether the actor carries no identity.
func (a Actor) IsGuest() bool {
	return a.ID == ""
}

// Action names a mutation class on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource describes who may act on an entity: its owning user, the provider
// behind its service, and any sellers with a stake in it.
type Resource struct {
	OwnerID    string
	ProviderID string
	SellerIDs  []string
}

// Allow evaluates whether actor may perform action on resource. Admins may
// do anything; owners, providers, and sellers may act on their own
// resources; guests may not mutate.
func Allow(actor Actor, resource Resource, _ Action) error {
	if actor.Role == RoleAdmin {
		return nil
	}
	if actor.IsGuest() {
		return ErrForbidden
	}
	if resource.OwnerID != "" && actor.ID == resource.OwnerID {
		return nil
	}
	if resource.ProviderID != "" && actor.ID == resource.ProviderID {
		return nil
	}
	for _, id := range resource.SellerIDs {
		if actor.ID == id {
			return nil
		}
	}
	return ErrForbidden
}
