package test

import (
	"context"

	pkgAuth "github.com/polkiloo/refundstatus/internal/pkg/auth"
)

// StubHashPrefix marks passwords "hashed" by HasherStub.
const StubHashPrefix = "stub-hash:"

var (
	_ pkgAuth.PasswordHasher = HasherStub{}
	_ pkgAuth.Strategy       = StrategyStub{}
)

// HasherStub hashes by prefixing so tests can read stored passwords back.
type HasherStub struct {
	HashFn    func(string) (string, error)
	CompareFn func(string, string) error
}

func (h HasherStub) Hash(password string) (string, error) {
	if h.HashFn != nil {
		return h.HashFn(password)
	}
	return StubHashPrefix + password, nil
}

func (h HasherStub) Compare(hash, password string) error {
	if h.CompareFn != nil {
		return h.CompareFn(hash, password)
	}
	if hash != StubHashPrefix+password {
		return pkgAuth.ErrPasswordMismatch
	}
	return nil
}

// StrategyStub issues "token" and resolves every token to user 1 unless overridden.
type StrategyStub struct {
	IssueFn func(int64) (string, error)
	ParseFn func(string) (int64, error)
	NameVal string
}

func (s StrategyStub) IssueToken(userID int64) (string, error) {
	if s.IssueFn != nil {
		return s.IssueFn(userID)
	}
	return "token", nil
}

func (s StrategyStub) ParseToken(token string) (int64, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return 1, nil
}

func (s StrategyStub) Name() string {
	if s.NameVal == "" {
		return "stub"
	}
	return s.NameVal
}

// TokenParserStub answers middleware token lookups with ID or Err.
type TokenParserStub struct {
	ID      int64
	Err     error
	ParseFn func(string) (int64, error)
}

func (s TokenParserStub) ParseToken(token string) (int64, error) {
	switch {
	case s.ParseFn != nil:
		return s.ParseFn(token)
	case s.Err != nil:
		return 0, s.Err
	default:
		return s.ID, nil
	}
}

// AuthFacadeStub answers register and login with "token" unless overridden.
type AuthFacadeStub struct {
	RegisterFn     func(context.Context, string, string) (string, error)
	AuthenticateFn func(context.Context, string, string) (string, error)
	RenewFn        func(context.Context, int64) (string, error)
	ParseFn        func(string) (int64, error)
}

func (s AuthFacadeStub) RenewSession(ctx context.Context, userID int64) (string, error) {
	if s.RenewFn != nil {
		return s.RenewFn(ctx, userID)
	}
	return "renewed", nil
}

func (s AuthFacadeStub) Register(ctx context.Context, login, password string) (string, error) {
	if s.RegisterFn != nil {
		return s.RegisterFn(ctx, login, password)
	}
	return "token", nil
}

func (s AuthFacadeStub) Authenticate(ctx context.Context, login, password string) (string, error) {
	if s.AuthenticateFn != nil {
		return s.AuthenticateFn(ctx, login, password)
	}
	return "token", nil
}

func (s AuthFacadeStub) ParseToken(token string) (int64, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return 1, nil
}
