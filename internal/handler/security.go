package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/xenking/shopkit/internal/domain/auth"
	"github.com/xenking/shopkit/pkg/httpmiddleware"
)

type principalKey struct{}

// PrincipalFromContext returns the authenticated principal, or nil outside an
// authenticated request.
func PrincipalFromContext(ctx context.Context) *auth.Principal {
	if p, ok := ctx.Value(principalKey{}).(*auth.Principal); ok {
		return p
	}
	return nil
}

// HashKey computes the stored form of an API key: hex-encoded HMAC-SHA256
// keyed with the server pepper. Raw keys never reach the database.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// APIKeyAuth authenticates every request via the api_key header, resolving
// the key hash to a principal and storing it in the request context.
func APIKeyAuth(apikeys auth.Repository, pepper []byte) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("api_key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			computed := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(computed))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Constant-time comparison guards against timing side-channels in
			// case the repository returned a stale or wrong row.
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, &info.Principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requirePrincipal fetches the principal or writes a 401. The middleware
// should make a nil principal impossible on API routes.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return p, true
}

// requireAdmin fetches the principal and rejects non-admin roles with 403.
func requireAdmin(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return nil, false
	}
	if p.Role != auth.RoleAdmin && p.Role != auth.RoleSuperadmin {
		writeError(w, http.StatusForbidden, "admin role required")
		return nil, false
	}
	return p, true
}
