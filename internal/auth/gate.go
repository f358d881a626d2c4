package auth

import (
	"net/http"
	"strings"

	"quizhub-api/internal/domain"
)

// Gate authenticates inbound requests and authorizes verified identities.
type Gate struct {
	codec *TokenCodec
}

func NewGate(codec *TokenCodec) *Gate {
	return &Gate{codec: codec}
}

// Authenticate extracts the bearer credential from the request's
// Authorization header and verifies it. All failure causes (absent header,
// wrong scheme, codec rejection) produce the same error so callers learn
// nothing about why a token was rejected.
func (g *Gate) Authenticate(r *http.Request) (domain.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return domain.Identity{}, domain.Unauthenticated("")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return domain.Identity{}, domain.Unauthenticated("")
	}
	return g.codec.Verify(token)
}

// Require checks exact membership of the identity's role in the allow-list.
// Callers enumerate every permitted role; no hierarchy is inferred, so a
// SUPER_ADMIN is rejected by an allow-list that names only ADMIN.
func Require(identity domain.Identity, allowed ...domain.Role) error {
	if identity.Role == "" {
		return domain.Forbidden("")
	}
	for _, role := range allowed {
		if identity.Role == role {
			return nil
		}
	}
	return domain.Forbidden("")
}
