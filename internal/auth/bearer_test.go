package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"teamcal/internal/config"
	"teamcal/internal/domain"
)

type staticUsers map[string]*domain.User

func (s staticUsers) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, domain.NotFoundf("user %s", id)
	}
	return u, nil
}

func testConfig(secret string) *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret: secret,
			Issuer:    "teamcal",
			TokenTTL:  time.Hour,
		},
	}
}

func TestIssueAndAuthenticate(t *testing.T) {
	alice := &domain.User{ID: "u1", Username: "alice", DisplayName: "Alice", Roles: []domain.Role{domain.RoleAdmin}}
	b := NewBearerAuth(testConfig("test-secret"), staticUsers{"u1": alice}, zerolog.Nop())

	token, err := b.Issue(alice)
	if err != nil {
		t.Fatal(err)
	}

	p, err := b.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "u1" || p.Username != "alice" || !p.IsAdmin() {
		t.Fatalf("principal mismatch: %+v", p)
	}

	// second pass hits the verification cache
	p2, err := b.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if p2.ID != p.ID {
		t.Fatal("cached principal differs")
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	alice := &domain.User{ID: "u1", Username: "alice", Roles: []domain.Role{domain.RoleUser}}
	users := staticUsers{"u1": alice}
	b := NewBearerAuth(testConfig("test-secret"), users, zerolog.Nop())

	if _, err := b.Authenticate(context.Background(), "not-a-token"); err == nil {
		t.Fatal("garbage token accepted")
	}

	// token signed with a different secret
	other := NewBearerAuth(testConfig("other-secret"), users, zerolog.Nop())
	token, err := other.Issue(alice)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Authenticate(context.Background(), token); err == nil {
		t.Fatal("token with wrong signature accepted")
	}
}

func TestAuthenticateDeletedUser(t *testing.T) {
	alice := &domain.User{ID: "u1", Username: "alice", Roles: []domain.Role{domain.RoleUser}}
	users := staticUsers{"u1": alice}
	b := NewBearerAuth(testConfig("test-secret"), users, zerolog.Nop())

	token, err := b.Issue(alice)
	if err != nil {
		t.Fatal(err)
	}
	delete(users, "u1")
	if _, err := b.Authenticate(context.Background(), token); err == nil {
		t.Fatal("token for deleted user accepted")
	}
}

func TestInvalidateDropsCache(t *testing.T) {
	alice := &domain.User{ID: "u1", Username: "alice", Roles: []domain.Role{domain.RoleUser}}
	users := staticUsers{"u1": alice}
	b := NewBearerAuth(testConfig("test-secret"), users, zerolog.Nop())

	token, err := b.Issue(alice)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Authenticate(context.Background(), token); err != nil {
		t.Fatal(err)
	}
	b.Invalidate(token)
	delete(users, "u1")
	// with the cache entry gone the live lookup runs again and fails
	if _, err := b.Authenticate(context.Background(), token); err == nil {
		t.Fatal("invalidated token still authenticated")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter42")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "hunter42") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "hunter43") {
		t.Fatal("wrong password accepted")
	}
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("short password accepted")
	}
}
