package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/camelia-studio/camelia/internal/domain/auth"
	"github.com/camelia-studio/camelia/internal/domain/authz"
)

type actorKey struct{}

// WithActor returns a context carrying the acting identity.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the acting identity from the context. The zero Actor
// (an anonymous guest) is returned when no identity was resolved.
func ActorFrom(ctx context.Context) authz.Actor {
	actor, _ := ctx.Value(actorKey{}).(authz.Actor)
	return actor
}

// Authenticator resolves the X-API-Key header into an acting identity via
// HMAC-SHA256 hashed API keys. Requests without the header pass through as
// guests; requests with an invalid key are rejected outright.
type Authenticator struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewAuthenticator creates an Authenticator with the given API key
// repository and HMAC pepper.
func NewAuthenticator(apikeys auth.Repository, pepper []byte) *Authenticator {
	return &Authenticator{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Middleware authenticates an incoming request by computing the HMAC-SHA256
// of the provided API key, looking it up in the repository, and performing a
// constant-time comparison to prevent timing attacks.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		mac := hmac.New(sha256.New, a.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := a.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		// Constant-time comparison guards against timing side-channels even
		// though the lookup already succeeded: the stored hash could differ
		// from what we computed if the repository returns a stale/wrong row.
		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), info.Actor())))
	})
}
