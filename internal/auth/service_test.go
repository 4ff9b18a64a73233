package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zh-portal/zh_portal/internal/identity"
	"github.com/zh-portal/zh_portal/internal/logging"
)

type stubAccounts struct {
	user identity.User
	err  error
}

func (s stubAccounts) Authenticate(_ context.Context, _, _ string) (identity.User, error) {
	return s.user, s.err
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tokens, err := NewTokens(TokenConfig{Secret: []byte("k"), Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	user := identity.User{ID: "u-1", Username: "anna", Email: "anna@example.com", PasswordHash: "$2a$hash"}
	svc := NewService(tokens, stubAccounts{user: user}, logging.Discard())

	session, err := svc.Login(context.Background(), "anna", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.User.ID != user.ID || session.User.Username != "anna" {
		t.Fatalf("unexpected session user %+v", session.User)
	}
	if !session.ExpiresAt.Equal(now.Add(DefaultTokenTTL)) {
		t.Fatalf("unexpected expiry %s", session.ExpiresAt)
	}

	claims, err := svc.Verify(session.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != user.ID {
		t.Fatalf("expected subject %s, got %s", user.ID, claims.Subject)
	}
}

func TestLoginPropagatesAuthenticationErrors(t *testing.T) {
	tokens, err := NewTokens(TokenConfig{Secret: []byte("k")})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	svc := NewService(tokens, stubAccounts{err: identity.ErrInvalidCredentials}, logging.Discard())

	if _, err := svc.Login(context.Background(), "anna", "bad"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
