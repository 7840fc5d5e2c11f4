// Package auth defines the authenticated principal and API key lookup
// contract. Authentication mechanics stay at the HTTP boundary; domain code
// only ever sees a Principal.
package auth

import (
	"context"

	"github.com/xenking/shopkit/internal/domain/plan"
)

// Role is the principal's permission level within its shop.
type Role string

const (
	RoleStaff      Role = "STAFF"
	RoleAdmin      Role = "ADMIN"
	RoleSuperadmin Role = "SUPERADMIN"
)

// Principal identifies the caller on every core entry point. The core trusts
// this value; it performs no authentication itself.
type Principal struct {
	ID     string
	ShopID string
	Role   Role
	Plan   plan.Type
}

// APIKeyInfo holds the identity bound to a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Principal
}

// Repository provides lookup of active API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
