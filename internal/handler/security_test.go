package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camelia-studio/camelia/internal/domain/auth"
	"github.com/camelia-studio/camelia/internal/domain/authz"
)

type mockAPIKeyRepo struct {
	byHash map[string]*auth.APIKeyInfo
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m.byHash[hash]
	if !ok {
		return nil, errors.New("not found")
	}
	return info, nil
}

func hashKey(key, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func newAuthFixture(t *testing.T) (http.Handler, *authz.Actor) {
	t.Helper()

	const pepper = "test-pepper"
	hash := hashKey("secret-key", pepper)
	repo := &mockAPIKeyRepo{byHash: map[string]*auth.APIKeyInfo{
		hash: {ID: "k1", KeyHash: hash, Name: "test", UserID: "u1", Role: authz.RoleProvider},
	}}

	var seen authz.Actor
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return NewAuthenticator(repo, []byte(pepper)).Middleware(inner), &seen
}

func TestAuthenticator_ValidKey(t *testing.T) {
	h, seen := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", seen.ID)
	assert.Equal(t, authz.RoleProvider, seen.Role)
}

func TestAuthenticator_MissingKeyIsGuest(t *testing.T) {
	h, seen := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, seen.IsGuest())
}

func TestAuthenticator_InvalidKeyRejected(t *testing.T) {
	h, _ := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
