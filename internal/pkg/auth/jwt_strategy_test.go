package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewJWTStrategy_DefaultTTL(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	if strategy.ttl != 24*time.Hour {
		t.Fatalf("unexpected ttl: %s", strategy.ttl)
	}
	if strategy.Name() != "jwt" {
		t.Fatalf("unexpected name: %s", strategy.Name())
	}
}

func TestJWTStrategy_IssueAndParse(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{TTL: time.Minute})
	token, err := strategy.IssueToken(42)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	userID, err := strategy.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if userID != 42 {
		t.Fatalf("unexpected user id: %d", userID)
	}
}

func TestJWTStrategy_RejectsForeignSecret(t *testing.T) {
	token, err := NewJWTStrategy("other", Options{}).IssueToken(1)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := NewJWTStrategy("secret", Options{}).ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTStrategy_RejectsExpired(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{TTL: time.Minute})
	issuedAt := time.Now().Add(-time.Hour)
	strategy.now = func() time.Time { return issuedAt }
	token, err := strategy.IssueToken(7)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	strategy.now = time.Now
	if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTStrategy_RejectsUnexpectedClaims(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}

	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))
	cases := map[string]string{
		"wrong issuer":  sign(jwt.RegisteredClaims{Subject: "1", Issuer: "someone", ExpiresAt: exp}, jwt.SigningMethodHS256, []byte("secret")),
		"no expiry":     sign(jwt.RegisteredClaims{Subject: "1", Issuer: tokenIssuer}, jwt.SigningMethodHS256, []byte("secret")),
		"bad subject":   sign(jwt.RegisteredClaims{Subject: "abc", Issuer: tokenIssuer, ExpiresAt: exp}, jwt.SigningMethodHS256, []byte("secret")),
		"other method":  sign(jwt.RegisteredClaims{Subject: "1", Issuer: tokenIssuer, ExpiresAt: exp}, jwt.SigningMethodHS512, []byte("secret")),
		"not a jwt":     "garbage",
		"empty subject": sign(jwt.RegisteredClaims{Issuer: tokenIssuer, ExpiresAt: exp}, jwt.SigningMethodHS256, []byte("secret")),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
