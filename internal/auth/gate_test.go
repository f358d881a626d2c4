package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizhub-api/internal/domain"
)

func TestAuthenticate(t *testing.T) {
	codec := NewTokenCodec("test-secret", nil)
	gate := NewGate(codec)

	identity := domain.Identity{ID: "u1", Email: "alice@example.com", Role: domain.RoleUser}
	token, err := codec.Issue(identity)
	require.NoError(t, err)

	t.Run("valid bearer token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/me", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		resolved, err := gate.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, identity, resolved)
	})

	// Every failure path collapses to the same error kind.
	failures := map[string]string{
		"missing header":  "",
		"wrong scheme":    "Basic " + token,
		"no scheme":       token,
		"empty token":     "Bearer ",
		"tampered token":  "Bearer " + token + "x",
		"garbage payload": "Bearer zzz",
	}
	for name, header := range failures {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/me", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			_, err := gate.Authenticate(r)
			assert.ErrorIs(t, err, domain.Unauthenticated(""))
		})
	}
}

func TestRequireExactMembership(t *testing.T) {
	roles := []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleEditor, domain.RoleUser}
	allowed := []domain.Role{domain.RoleAdmin}

	for _, role := range roles {
		err := Require(domain.Identity{ID: "u1", Role: role}, allowed...)
		if role == domain.RoleAdmin {
			assert.NoError(t, err, "role %s", role)
		} else {
			// No hierarchy: even SUPER_ADMIN fails an ADMIN-only list.
			assert.ErrorIs(t, err, domain.Forbidden(""), "role %s", role)
		}
	}
}

func TestRequireRejectsMissingRole(t *testing.T) {
	err := Require(domain.Identity{ID: "u1"}, domain.RoleUser)
	assert.ErrorIs(t, err, domain.Forbidden(""))
}
