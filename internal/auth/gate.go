// Package auth resolves whether an actor may mutate gallery content.
// The resolution is fail-closed: no identity, a bad token, or any store
// failure all resolve to not-admin. The default is never permissive.
package auth

import (
	"context"

	"github.com/smelek/gallerysync/internal/store"
)

// Identity is a resolved actor.
type Identity struct {
	UserID  string
	TokenID string
	IsAdmin bool
}

// TokenLookup maps a token hash to its stored metadata. A nil result with a
// nil error means no such token.
type TokenLookup interface {
	GetTokenByHash(hash string) (*store.TokenInfo, error)
}

// RoleLookup answers role-membership queries.
type RoleLookup interface {
	HasRole(userID, role string) (bool, error)
}

// Gate resolves bearer credentials to an Identity.
type Gate struct {
	tokens TokenLookup
	roles  RoleLookup
}

// NewGate creates a gate over the given token and role stores.
func NewGate(tokens TokenLookup, roles RoleLookup) *Gate {
	return &Gate{tokens: tokens, roles: roles}
}

// Resolve maps a raw bearer token to an identity. Every failure path
// resolves to the zero Identity (no user, not admin).
func (g *Gate) Resolve(_ context.Context, rawToken string) Identity {
	if rawToken == "" {
		return Identity{}
	}

	info, err := g.tokens.GetTokenByHash(store.HashToken(rawToken))
	if err != nil || info == nil {
		return Identity{}
	}

	ident := Identity{UserID: info.UserID, TokenID: info.ID}
	isAdmin, err := g.roles.HasRole(info.UserID, store.AdminRole)
	if err != nil {
		// Fail closed: an unreachable role store never grants access.
		return ident
	}
	ident.IsAdmin = isAdmin
	return ident
}

// StaticResolver adapts a fixed admin decision to the engine's
// AdminResolver. Used where the capability was already resolved, e.g. from
// a server response.
type StaticResolver bool

// Resolve returns the fixed decision.
func (r StaticResolver) Resolve(context.Context) bool { return bool(r) }
