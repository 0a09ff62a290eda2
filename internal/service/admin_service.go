package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/campusvoice/complaint-service/internal/auth"
	"github.com/campusvoice/complaint-service/internal/cache"
	"github.com/campusvoice/complaint-service/internal/config"
	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/repository"
	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

// AdminService manages departments and accounts on behalf of general managers.
type AdminService struct {
	departments repository.DepartmentRepository
	users       repository.UserRepository
	complaints  repository.ComplaintRepository
	cache       cache.TrackingCache
	logger      *zap.Logger
	bcryptCost  int
}

// AdminDependencies encapsulates repositories required for administration.
// ComplaintRepo and Cache are optional; with both set, department renames and
// deletions evict the tracking views that show the department name.
type AdminDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	UserRepo       repository.UserRepository
	ComplaintRepo  repository.ComplaintRepository
	Cache          cache.TrackingCache
	Logger         *zap.Logger
}

// NewAdminService constructs the service.
func NewAdminService(cfg config.Config, deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	trackingCache := deps.Cache
	if trackingCache == nil {
		trackingCache = cache.NoopTrackingCache{}
	}
	return &AdminService{
		departments: deps.DepartmentRepo,
		users:       deps.UserRepo,
		complaints:  deps.ComplaintRepo,
		cache:       trackingCache,
		logger:      logger,
		bcryptCost:  cfg.Auth.BcryptCost,
	}
}

func requireGeneralManager(actor *domain.User) error {
	return requireRole(actor, domain.RoleGeneralManager)
}

// CreateDepartment creates a department with a unique name.
func (s *AdminService) CreateDepartment(ctx context.Context, actor *domain.User, name string) (*domain.Department, error) {
	if err := requireGeneralManager(actor); err != nil {
		return nil, err
	}
	dept := &domain.Department{Name: strings.TrimSpace(name)}
	if dept.Name == "" {
		return nil, apperrors.NewFieldError("name", "name is required")
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, mapRepoError(err)
	}
	return dept, nil
}

// ListDepartments returns departments ordered by name.
func (s *AdminService) ListDepartments(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.Department, error) {
	if err := requireGeneralManager(actor); err != nil {
		return nil, err
	}
	depts, err := s.departments.List(ctx, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if depts == nil {
		depts = []domain.Department{}
	}
	return depts, nil
}

// GetDepartment fetches a department.
func (s *AdminService) GetDepartment(ctx context.Context, actor *domain.User, id string) (*domain.Department, error) {
	if err := requireGeneralManager(actor); err != nil {
		return nil, err
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "department", "department_id", id)
	}
	return dept, nil
}

// RenameDepartment changes a department's name.
func (s *AdminService) RenameDepartment(ctx context.Context, actor *domain.User, id, name string) (*domain.Department, error) {
	dept, err := s.GetDepartment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dept.Name = strings.TrimSpace(name)
	if dept.Name == "" {
		return nil, apperrors.NewFieldError("name", "name is required")
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, mapRepoError(err)
	}
	s.evictTrackingViews(ctx, s.departmentTrackingCodes(ctx, dept.ID))
	return dept, nil
}

// DeleteDepartment removes a department. Students and complaints referencing it
// lose their department link. A department that still has a department manager
// cannot be deleted until the manager is moved or removed.
func (s *AdminService) DeleteDepartment(ctx context.Context, actor *domain.User, id string) error {
	if err := requireGeneralManager(actor); err != nil {
		return err
	}
	role := domain.RoleDepartmentManager
	managers, err := s.users.List(ctx, repository.UserFilter{Role: &role, DepartmentID: &id, Page: repository.Page{Limit: 1}})
	if err != nil {
		return apperrors.MapError(err)
	}
	if len(managers) > 0 {
		return errDepartmentHasManager(id)
	}

	codes := s.departmentTrackingCodes(ctx, id)
	if err := s.departments.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrDepartmentHasManager) {
			return errDepartmentHasManager(id)
		}
		return mapNotFound(err, "department", "department_id", id)
	}
	s.evictTrackingViews(ctx, codes)
	return nil
}

func errDepartmentHasManager(id string) error {
	return apperrors.NewConflict("department still has a department manager", map[string]any{
		"field":         "department_id",
		"department_id": id,
	})
}

// departmentTrackingCodes lists the tracking codes of complaints assigned to
// the department. Lookup failures are logged and yield what was collected.
func (s *AdminService) departmentTrackingCodes(ctx context.Context, departmentID string) []string {
	if s.complaints == nil {
		return nil
	}
	const pageSize = 200
	var codes []string
	for offset := 0; ; offset += pageSize {
		page, err := s.complaints.List(ctx, repository.ComplaintFilter{
			DepartmentID: &departmentID,
			Page:         repository.Page{Limit: pageSize, Offset: offset},
		})
		if err != nil {
			s.logger.Warn("listing department complaints for cache eviction failed",
				zap.String("department_id", departmentID), zap.Error(err))
			return codes
		}
		for _, complaint := range page {
			codes = append(codes, complaint.TrackingCode)
		}
		if len(page) < pageSize {
			return codes
		}
	}
}

func (s *AdminService) evictTrackingViews(ctx context.Context, codes []string) {
	for _, code := range codes {
		invalidateTracking(ctx, s.cache, s.logger, code)
	}
}

// UserInput describes an account created by a general manager.
type UserInput struct {
	Username     string
	Email        string
	Name         string
	Password     string
	Role         domain.Role
	DepartmentID *string
	GPA          *float64
}

// CreateUser creates an account of any role. At most one department manager
// per department is enforced by the store's unique index.
func (s *AdminService) CreateUser(ctx context.Context, actor *domain.User, input UserInput) (*domain.User, error) {
	if err := requireGeneralManager(actor); err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Name:         strings.TrimSpace(input.Name),
		Role:         input.Role,
		DepartmentID: input.DepartmentID,
		GPA:          input.GPA,
	}
	if err := s.normalizeAccount(ctx, user); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

// normalizeAccount applies the per-role account rules.
func (s *AdminService) normalizeAccount(ctx context.Context, user *domain.User) error {
	if _, err := domain.ParseRole(string(user.Role)); err != nil {
		return apperrors.NewFieldError("role", "unknown role")
	}
	if user.DepartmentID != nil && strings.TrimSpace(*user.DepartmentID) == "" {
		user.DepartmentID = nil
	}

	switch user.Role {
	case domain.RoleStudent:
	case domain.RoleDepartmentManager:
		if user.DepartmentID == nil {
			return apperrors.NewFieldError("department_id", "department managers require a department")
		}
		user.GPA = nil
	case domain.RoleGeneralManager:
		user.GPA = nil
	}

	if user.DepartmentID != nil {
		if _, err := s.departments.GetByID(ctx, *user.DepartmentID); err != nil {
			if isNoRows(err) {
				return apperrors.NewFieldError("department_id", "department does not exist")
			}
			return apperrors.MapError(err)
		}
	}
	return nil
}

// UserQuery narrows user listings.
type UserQuery struct {
	Role         *domain.Role
	DepartmentID *string
	Limit        int
	Offset       int
}

// ListUsers returns accounts matching the query.
func (s *AdminService) ListUsers(ctx context.Context, actor *domain.User, query UserQuery) ([]domain.User, error) {
	if err := requireGeneralManager(actor); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, repository.UserFilter{
		Role:         query.Role,
		DepartmentID: query.DepartmentID,
		Page:         repository.Page{Limit: query.Limit, Offset: query.Offset},
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// GetUser fetches an account.
func (s *AdminService) GetUser(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := requireGeneralManager(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "user", "user_id", id)
	}
	return user, nil
}

// UserUpdate holds optional changes to an account. A non-nil DepartmentID
// pointing at an empty string clears the department.
type UserUpdate struct {
	Email        *string
	Name         *string
	Role         *domain.Role
	DepartmentID *string
	GPA          *float64
	Password     *string
}

// UpdateUser applies the changes and re-validates the role rules.
func (s *AdminService) UpdateUser(ctx context.Context, actor *domain.User, id string, update UserUpdate) (*domain.User, error) {
	user, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if update.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*update.Email))
	}
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Role != nil {
		if user.Role == domain.RoleGeneralManager && *update.Role != domain.RoleGeneralManager {
			return nil, apperrors.NewForbidden("general managers cannot be demoted")
		}
		user.Role = *update.Role
	}
	if update.DepartmentID != nil {
		dept := *update.DepartmentID
		user.DepartmentID = &dept
	}
	if update.GPA != nil {
		gpa := *update.GPA
		user.GPA = &gpa
	}
	if err := s.normalizeAccount(ctx, user); err != nil {
		return nil, err
	}
	if update.Password != nil {
		hash, err := auth.HashPassword(*update.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

// DeleteUser removes an account. General managers cannot be deleted.
func (s *AdminService) DeleteUser(ctx context.Context, actor *domain.User, id string) error {
	user, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return err
	}
	if user.Role == domain.RoleGeneralManager {
		return apperrors.NewForbidden("general managers cannot be deleted")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return mapNotFound(err, "user", "user_id", id)
	}
	return nil
}
