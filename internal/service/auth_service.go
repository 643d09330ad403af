package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/mission-service/internal/audit"
	"github.com/spec-kit/mission-service/internal/auth"
	"github.com/spec-kit/mission-service/internal/config"
	"github.com/spec-kit/mission-service/internal/domain"
	"github.com/spec-kit/mission-service/internal/repository"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

const invalidCredentialsMessage = "Invalid email or password"

// AuthService coordinates login, logout and credential changes.
type AuthService struct {
	users    repository.UserRepository
	tokens   *auth.TokenCodec
	hasher   auth.PasswordHasher
	recorder *audit.Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Hasher   auth.PasswordHasher
	Recorder *audit.Recorder
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    deps.UserRepo,
		tokens:   auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		hasher:   deps.Hasher,
		recorder: deps.Recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Login verifies credentials, issues a token, stamps lastLogin and records
// a login audit entry once the stamp is stored. Only last_login is written,
// so role or department changes made while the password was being checked
// survive. Unknown email and wrong password are reported identically.
func (s *AuthService) Login(ctx context.Context, email, password string, meta domain.ClientMeta) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("login rejected", zap.String("reason", "unknown_email"))
			return nil, apperrors.NewUnauthorized(invalidCredentialsMessage)
		}
		return nil, finalError(err)
	}
	if !s.hasher.Verify(password, user.PasswordDigest) {
		s.logger.Warn("login rejected", zap.String("reason", "bad_password"), zap.String("user_id", user.ID))
		return nil, apperrors.NewUnauthorized(invalidCredentialsMessage)
	}
	if user.AccountStatus != domain.AccountStatusActive {
		s.logger.Warn("login rejected",
			zap.String("reason", "account_not_active"),
			zap.String("user_id", user.ID),
			zap.String("account_status", string(user.AccountStatus)))
		return nil, apperrors.NewAccountInactive()
	}

	token, exp, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	loggedInAt := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, loggedInAt); err != nil {
		return nil, finalError(lookupError(err, "user", user.ID))
	}
	user.LastLogin = &loggedInAt

	if _, err := s.recorder.RecordAuth(ctx, domain.AuditLogin, user.ID, meta); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Logout records a logout. Tokens are stateless and stay valid until expiry.
func (s *AuthService) Logout(ctx context.Context, identity domain.Identity, meta domain.ClientMeta) error {
	if _, err := s.recorder.RecordAuth(ctx, domain.AuditLogout, identity.ID, meta); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged out", zap.String("user_id", identity.ID))
	return nil
}

// Me loads the account behind identity.
func (s *AuthService) Me(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": identity.ID})
		}
		return nil, finalError(err)
	}
	return user, nil
}

// ChangePassword verifies the current password before storing the new digest.
func (s *AuthService) ChangePassword(ctx context.Context, identity domain.Identity, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.Me(ctx, identity)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(currentPassword, user.PasswordDigest) {
		return apperrors.NewUnauthorized("current password is incorrect")
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		return finalError(lookupError(err, "user", user.ID))
	}
	return nil
}

// TokenCodec exposes the codec for the authentication gate.
func (s *AuthService) TokenCodec() *auth.TokenCodec {
	return s.tokens
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const minPasswordLength = 8

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("password too short", apperrors.FieldError{
			Field:   "password",
			Message: "password must be at least 8 characters",
		})
	}
	return nil
}
