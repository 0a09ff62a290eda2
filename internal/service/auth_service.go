package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campusvoice/complaint-service/internal/auth"
	"github.com/campusvoice/complaint-service/internal/config"
	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/notify"
	"github.com/campusvoice/complaint-service/internal/repository"
	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

// AuthService coordinates registration, login and credential flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	revoked    auth.RevocationList
	notifier   notify.Notifier
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
	publicURL  string
	exposeDev  bool
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	TokenManager      *auth.TokenManager
	Revocations       auth.RevocationList
	Notifier          notify.Notifier
	Logger            *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokens := deps.TokenManager
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	revoked := deps.Revocations
	if revoked == nil {
		revoked = auth.NewMemoryRevocationList()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   tokens,
		revoked:    revoked,
		notifier:   deps.Notifier,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
		publicURL:  strings.TrimRight(cfg.App.PublicURL, "/"),
		exposeDev:  !cfg.App.IsProduction(),
		now:        time.Now,
	}
}

// RegisterInput is the student self-registration payload.
type RegisterInput struct {
	Username        string
	Email           string
	Name            string
	GPA             *float64
	Password        string
	PasswordConfirm string
}

// AuthResult is returned after a successful registration or login.
type AuthResult struct {
	User          *domain.User
	Token         string
	ExpiresAt     time.Time
	DashboardPath string
}

// RegisterStudent creates a student account. The role is never taken from input.
func (s *AuthService) RegisterStudent(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if input.Password != input.PasswordConfirm {
		return nil, apperrors.NewFieldError("password_confirm", "passwords do not match")
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		Role:         domain.RoleStudent,
		GPA:          input.GPA,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapRepoError(err)
	}
	return s.issue(user)
}

// Login authenticates by username. Unknown users and bad passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	issued, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{
		User:          user,
		Token:         issued.Token,
		ExpiresAt:     issued.ExpiresAt,
		DashboardPath: user.Role.DashboardPath(),
	}, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// PasswordResetIssued describes the outcome of a reset request. Token is
// only populated outside production.
type PasswordResetIssued struct {
	Token        string
	ExpiresAt    time.Time
	Notification NotificationResult
}

// RequestPasswordReset issues a single-use token and emails a reset link.
// Unknown addresses return (nil, nil) so callers cannot discover which accounts exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*PasswordResetIssued, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}

	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &PasswordResetIssued{ExpiresAt: token.ExpiresAt, Notification: NotificationResult{Delivered: true}}
	if s.exposeDev {
		result.Token = token.Token
	}

	if s.notifier != nil {
		link := fmt.Sprintf("%s/auth/password/reset/confirm?token=%s", s.publicURL, url.QueryEscape(token.Token))
		body := fmt.Sprintf("Hello %s,\n\nUse the link below to reset your password. It expires at %s.\n\n%s\n",
			user.Name, token.ExpiresAt.UTC().Format(time.RFC1123), link)
		if err := s.notifier.Send(ctx, user.Email, "Password reset", body); err != nil {
			s.logger.Warn("password reset email failed", zap.String("user_id", user.ID), zap.Error(err))
			result.Notification = NotificationResult{Delivered: false, Error: err.Error()}
		}
	}
	return result, nil
}

// ConfirmPasswordReset redeems a token and sets the new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	invalid := apperrors.NewFieldError("token", "invalid or expired token")

	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invalid
		}
		return apperrors.MapError(err)
	}
	if !token.Usable(s.now()) {
		return invalid
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	// claim the token first so two concurrent confirmations cannot both succeed
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invalid
		}
		return apperrors.MapError(err)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return apperrors.MapError(err)
	}
	user.PasswordHash = hash
	return mapRepoError(s.users.Update(ctx, user))
}

// ChangePassword verifies the current password before updating to the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := auth.ComparePassword(actor.PasswordHash, currentPassword); err != nil {
		return apperrors.NewFieldError("current_password", "current password is incorrect")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	actor.PasswordHash = hash
	return mapRepoError(s.users.Update(ctx, actor))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Revocations exposes the revocation list for middleware usage.
func (s *AuthService) Revocations() auth.RevocationList {
	return s.revoked
}
