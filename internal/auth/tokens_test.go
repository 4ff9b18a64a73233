package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTestTokens(t *testing.T, c *clock) *Tokens {
	t.Helper()
	tokens, err := NewTokens(TokenConfig{Secret: []byte("test-secret"), Now: c.Now})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	return tokens
}

func TestIssueAndVerify(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	tokens := newTestTokens(t, c)
	sub := Subject{ID: "user-1", Username: "anna", Email: "anna@example.com"}

	tok, exp, err := tokens.Issue(sub)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if want := c.t.Add(4 * time.Hour); !exp.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, exp)
	}

	c.t = c.t.Add(4*time.Hour - time.Second)
	claims, err := tokens.Verify(tok)
	if err != nil {
		t.Fatalf("verify before expiry: %v", err)
	}
	if claims.Subject != sub.ID || claims.Username != sub.Username || claims.Email != sub.Email {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.Issuer != DefaultIssuer {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestVerifyExpired(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	tokens := newTestTokens(t, c)

	tok, _, err := tokens.Issue(Subject{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c.t = c.t.Add(4*time.Hour + time.Second)

	_, err = tokens.Verify(tok)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken parent, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	c := &clock{t: time.Now()}
	tok, _, err := newTestTokens(t, c).Issue(Subject{ID: "u2"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, err := NewTokens(TokenConfig{Secret: []byte("other-secret"), Now: c.Now})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	if _, err := other.Verify(tok); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	c := &clock{t: time.Now()}
	tokens := newTestTokens(t, c)
	tok, _, err := tokens.Issue(Subject{ID: "u3"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	forged, _, err := tokens.Issue(Subject{ID: "admin"})
	if err != nil {
		t.Fatalf("issue forged: %v", err)
	}
	parts := strings.Split(tok, ".")
	forgedParts := strings.Split(forged, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	if _, err := tokens.Verify(spliced); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	tokens := newTestTokens(t, &clock{t: time.Now()})
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		if _, err := tokens.Verify(tok); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("token %q: expected ErrTokenMalformed, got %v", tok, err)
		}
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	c := &clock{t: time.Now()}
	tokens := newTestTokens(t, c)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u4",
		Issuer:    DefaultIssuer,
		ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour)),
	}}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}
	if _, err := tokens.Verify(hs512); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature for HS512, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := tokens.Verify(none); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg none, got %v", err)
	}
}

func TestVerifyRequiresExpiry(t *testing.T) {
	tokens := newTestTokens(t, &clock{t: time.Now()})
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u5", Issuer: DefaultIssuer}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := tokens.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken without exp, got %v", err)
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens(TokenConfig{}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
