package auth

import (
	"context"

	"teamcal/internal/domain"
)

// Principal is an authenticated user. A nil *Principal means anonymous.
type Principal struct {
	ID          string
	Username    string
	DisplayName string
	Roles       []domain.Role
}

func (p *Principal) IsAdmin() bool {
	for _, r := range p.Roles {
		if r == domain.RoleAdmin {
			return true
		}
	}
	return false
}

func PrincipalFromUser(u *domain.User) *Principal {
	return &Principal{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Roles:       u.Roles,
	}
}

type ctxKey int

const principalKey ctxKey = 1

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}
