package usecase

import (
	"context"
	"errors"
	"log/slog"

	"go.uber.org/fx"

	domainErrors "github.com/polkiloo/refundstatus/internal/domain/errors"
	"github.com/polkiloo/refundstatus/internal/domain/model"
	"github.com/polkiloo/refundstatus/internal/domain/repository"
	pkgAuth "github.com/polkiloo/refundstatus/internal/pkg/auth"
)

// AuthParams lists AuthUseCase dependencies.
type AuthParams struct {
	fx.In

	Users  repository.UserRepository
	Hasher pkgAuth.PasswordHasher
	Tokens pkgAuth.Strategy
	Logger *slog.Logger
}

// AuthUseCase registers taxpayers and exchanges credentials for bearer tokens.
type AuthUseCase struct {
	users  repository.UserRepository
	hasher pkgAuth.PasswordHasher
	tokens pkgAuth.Strategy
	logger *slog.Logger
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(p AuthParams) *AuthUseCase {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthUseCase{users: p.Users, hasher: p.Hasher, tokens: p.Tokens, logger: logger}
}

// Register creates an account and returns a token for it. Logins are case-insensitive.
func (u *AuthUseCase) Register(ctx context.Context, login, password string) (*model.User, string, error) {
	login = model.NormalizeLogin(login)
	if login == "" || password == "" {
		return nil, "", domainErrors.ErrInvalidCredentials
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, pkgAuth.ErrPasswordTooLong) {
			return nil, "", domainErrors.ErrInvalidCredentials
		}
		return nil, "", err
	}

	usr, err := u.users.Create(ctx, login, hash)
	if err != nil {
		if errors.Is(err, domainErrors.ErrAlreadyExists) {
			u.logger.Warn("register_login_exists", "login", model.MaskLogin(login))
			return nil, "", domainErrors.ErrAlreadyExists
		}
		return nil, "", err
	}

	token, err := u.tokens.IssueToken(usr.ID)
	if err != nil {
		return nil, "", err
	}

	u.logger.Info("register_success", "user_id", usr.ID, "login", model.MaskLogin(login))
	return usr, token, nil
}

// Authenticate validates credentials and returns a fresh token.
func (u *AuthUseCase) Authenticate(ctx context.Context, login, password string) (*model.User, string, error) {
	login = model.NormalizeLogin(login)
	if login == "" || password == "" {
		return nil, "", domainErrors.ErrInvalidCredentials
	}

	usr, err := u.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			u.logger.Warn("login_bad_credentials", "login", model.MaskLogin(login))
			return nil, "", domainErrors.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := u.hasher.Compare(usr.PasswordHash, password); err != nil {
		if errors.Is(err, pkgAuth.ErrPasswordMismatch) {
			u.logger.Warn("login_bad_credentials", "user_id", usr.ID, "login", model.MaskLogin(login))
			return nil, "", domainErrors.ErrInvalidCredentials
		}
		return nil, "", err
	}

	token, err := u.tokens.IssueToken(usr.ID)
	if err != nil {
		return nil, "", err
	}

	u.logger.Info("login_issued_token", "user_id", usr.ID, "strategy", u.tokens.Name())
	return usr, token, nil
}

// ParseToken extracts user ID from provided token.
func (u *AuthUseCase) ParseToken(token string) (int64, error) {
	if token == "" {
		return 0, pkgAuth.ErrInvalidToken
	}
	return u.tokens.ParseToken(token)
}

// Renew issues a fresh token for an authenticated user whose account still exists.
func (u *AuthUseCase) Renew(ctx context.Context, userID int64) (string, error) {
	usr, err := u.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return "", domainErrors.ErrInvalidCredentials
		}
		return "", err
	}
	return u.tokens.IssueToken(usr.ID)
}

// GetByID fetches user by identifier.
func (u *AuthUseCase) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return u.users.GetByID(ctx, id)
}
