package auth

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"

	"teamcal/internal/cache"
	"teamcal/internal/config"
	"teamcal/internal/domain"
)

// UserSource resolves a token subject to a live user record, so role or
// deletion changes take effect without waiting for token expiry.
type UserSource interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

type BearerAuth struct {
	cfg    *config.Config
	users  UserSource
	logger zerolog.Logger

	keyset jwk.Set
	ksAt   time.Time
	ksTTL  time.Duration

	verCache *cache.Cache[string, *Principal]
}

func NewBearerAuth(cfg *config.Config, users UserSource, logger zerolog.Logger) *BearerAuth {
	return &BearerAuth{
		cfg:      cfg,
		users:    users,
		logger:   logger,
		ksTTL:    10 * time.Minute,
		verCache: cache.New[string, *Principal](2 * time.Minute),
	}
}

// Issue signs an HS256 token for the user with the configured TTL. Requires
// a local secret; deployments verifying against a remote JWKS issue tokens
// elsewhere.
func (b *BearerAuth) Issue(u *domain.User) (string, error) {
	if b.cfg.Auth.JWTSecret == "" {
		return "", errors.New("no jwt secret configured")
	}
	now := time.Now().UTC()
	builder := jwt.NewBuilder().
		Subject(u.ID).
		Issuer(b.cfg.Auth.Issuer).
		IssuedAt(now).
		Expiration(now.Add(b.cfg.Auth.TokenTTL)).
		Claim("username", u.Username)
	if b.cfg.Auth.Audience != "" {
		builder = builder.Audience([]string{b.cfg.Auth.Audience})
	}
	tok, err := builder.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(b.cfg.Auth.JWTSecret)))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

func (b *BearerAuth) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if p, ok := b.verCache.Get(token); ok && p != nil {
		return p, nil
	}

	tok, err := b.parse(ctx, token)
	if err != nil {
		return nil, err
	}

	if iss := tok.Issuer(); b.cfg.Auth.Issuer != "" && iss != b.cfg.Auth.Issuer {
		return nil, errors.New("issuer mismatch")
	}
	if aud := tok.Audience(); len(aud) > 0 && b.cfg.Auth.Audience != "" {
		found := false
		for _, a := range aud {
			if a == b.cfg.Auth.Audience {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.New("audience mismatch")
		}
	}
	sub := tok.Subject()
	if sub == "" {
		return nil, errors.New("no sub")
	}

	user, err := b.users.GetUserByID(ctx, sub)
	if err != nil {
		return nil, err
	}
	p := PrincipalFromUser(user)
	b.verCache.Set(token, p)
	return p, nil
}

// Invalidate drops a cached verification, used on logout.
func (b *BearerAuth) Invalidate(token string) {
	b.verCache.Delete(token)
}

func (b *BearerAuth) parse(ctx context.Context, token string) (jwt.Token, error) {
	if b.cfg.Auth.JWKSURL != "" {
		set := b.keyset
		var err error
		if set == nil || time.Since(b.ksAt) > b.ksTTL {
			set, err = jwk.Fetch(ctx, b.cfg.Auth.JWKSURL)
			if err != nil {
				return nil, err
			}
			b.keyset = set
			b.ksAt = time.Now()
		}
		return jwt.Parse([]byte(token), jwt.WithKeySet(set), jwt.WithValidate(true))
	}
	if b.cfg.Auth.JWTSecret != "" {
		return jwt.Parse([]byte(token),
			jwt.WithKey(jwa.HS256, []byte(b.cfg.Auth.JWTSecret)),
			jwt.WithValidate(true))
	}
	return nil, errors.New("no jwt validation configured")
}
