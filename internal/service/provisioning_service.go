package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/campusvoice/complaint-service/internal/auth"
	"github.com/campusvoice/complaint-service/internal/config"
	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/repository"
)

const minAdminPasswordLength = 8

// ProvisioningService creates the initial general manager at deployment time.
type ProvisioningService struct {
	users      repository.UserRepository
	logger     *zap.Logger
	bcryptCost int
}

// NewProvisioningService constructs the service.
func NewProvisioningService(cfg config.Config, users repository.UserRepository, logger *zap.Logger) *ProvisioningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProvisioningService{users: users, logger: logger, bcryptCost: cfg.Auth.BcryptCost}
}

// EnsureAdmin creates the bootstrap general manager unless the username is
// already taken. It reports whether an account was created.
func (s *ProvisioningService) EnsureAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	username := strings.TrimSpace(cfg.AdminUsername)
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if username == "" || email == "" {
		return false, errors.New("BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_EMAIL are required")
	}

	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != domain.RoleGeneralManager {
			s.logger.Warn("bootstrap username belongs to a non general manager", zap.String("username", username), zap.String("role", string(existing.Role)))
		} else {
			s.logger.Info("bootstrap admin already present", zap.String("username", username))
		}
		return false, nil
	case !isNoRows(err):
		return false, err
	}

	password, err := cfg.ResolveAdminPassword()
	if err != nil {
		return false, err
	}
	if len(password) < minAdminPasswordLength {
		return false, errors.New("bootstrap admin password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return false, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		Name:         strings.TrimSpace(cfg.AdminName),
		PasswordHash: hash,
		Role:         domain.RoleGeneralManager,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if dup, ok := repository.AsDuplicate(err); ok && dup.Field == "username" {
			// lost a race with a concurrent provisioning run
			return false, nil
		}
		return false, err
	}
	s.logger.Info("bootstrap admin created", zap.String("username", username), zap.String("user_id", user.ID))
	return true, nil
}
