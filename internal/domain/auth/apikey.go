package auth

import (
	"context"

	"github.com/camelia-studio/camelia/internal/domain/authz"
)

// APIKeyInfo holds the identity resolved from a validated API key. The
// identity service proper is an external collaborator; this core only needs
// "given a key, return the acting user and role".
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Role    authz.Role
}

// Actor converts the key info into the acting identity.
func (k *APIKeyInfo) Actor() authz.Actor {
	return authz.Actor{ID: k.UserID, Role: k.Role}
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
