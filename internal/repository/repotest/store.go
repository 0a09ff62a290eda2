// Package repotest provides in-memory implementations of the repository
// interfaces for service and handler tests. Unique constraints mirror the
// Postgres indexes so conflict paths behave like production.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/repository"
)

// Store holds every table in memory.
type Store struct {
	mu          sync.Mutex
	seq         int
	users       map[string]domain.User
	departments map[string]domain.Department
	complaints  map[string]domain.Complaint
	attachments map[string]domain.Attachment
	responses   map[string]domain.Response
	sessions    map[string]domain.ChatbotSession
	resets      map[string]domain.PasswordResetToken
	order       map[string]int

	// TrackingExistsErr, when set, is returned by ExistsByTrackingCode.
	TrackingExistsErr error
	// TrackingLookups counts ExistsByTrackingCode calls.
	TrackingLookups int
	// AttachmentCreateErr, when set, is returned by attachment Create.
	AttachmentCreateErr error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:       map[string]domain.User{},
		departments: map[string]domain.Department{},
		complaints:  map[string]domain.Complaint{},
		attachments: map[string]domain.Attachment{},
		responses:   map[string]domain.Response{},
		sessions:    map[string]domain.ChatbotSession{},
		resets:      map[string]domain.PasswordResetToken{},
		order:       map[string]int{},
	}
}

func (s *Store) nextID() string {
	s.seq++
	id := uuid.NewString()
	s.order[id] = s.seq
	return id
}

// newestFirst sorts ids by descending insertion order.
func (s *Store) newestFirst(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return s.order[ids[i]] > s.order[ids[j]] })
}

func paginate[T any](items []T, page repository.Page) []T {
	limit := page.Limit
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func dup(constraint, field string) error {
	return &repository.DuplicateError{Constraint: constraint, Field: field}
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// Departments returns the department repository view.
func (s *Store) Departments() repository.DepartmentRepository { return &departmentRepo{s} }

// Complaints returns the complaint repository view.
func (s *Store) Complaints() repository.ComplaintRepository { return &complaintRepo{s} }

// Attachments returns the attachment repository view.
func (s *Store) Attachments() repository.AttachmentRepository { return &attachmentRepo{s} }

// Responses returns the response repository view.
func (s *Store) Responses() repository.ResponseRepository { return &responseRepo{s} }

// Sessions returns the chatbot session repository view.
func (s *Store) Sessions() repository.ChatbotSessionRepository { return &sessionRepo{s} }

// Resets returns the password reset repository view.
func (s *Store) Resets() repository.PasswordResetRepository { return &resetRepo{s} }

type userRepo struct{ s *Store }

func (r *userRepo) checkUnique(user *domain.User) error {
	for id, existing := range r.s.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(existing.Username, user.Username) {
			return dup("users_username_key", "username")
		}
		if strings.EqualFold(existing.Email, user.Email) {
			return dup("users_email_key", "email")
		}
		if user.Role == domain.RoleDepartmentManager && existing.Role == domain.RoleDepartmentManager &&
			user.DepartmentID != nil && existing.DepartmentID != nil && *user.DepartmentID == *existing.DepartmentID {
			return dup("users_department_manager_key", "department_id")
		}
	}
	return nil
}

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkUnique(user); err != nil {
		return err
	}
	now := time.Now()
	user.ID = r.s.nextID()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.users, id)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *userRepo) find(match func(domain.User) bool) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if match(user) {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	return r.List(ctx, repository.UserFilter{Role: &role, Page: repository.Page{Limit: 200}})
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.User
	for _, user := range r.s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.DepartmentID != nil && (user.DepartmentID == nil || *user.DepartmentID != *filter.DepartmentID) {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return paginate(result, filter.Page), nil
}

type departmentRepo struct{ s *Store }

func (r *departmentRepo) checkUnique(dept *domain.Department) error {
	for id, existing := range r.s.departments {
		if id != dept.ID && strings.EqualFold(existing.Name, dept.Name) {
			return dup("departments_name_key", "name")
		}
	}
	return nil
}

func (r *departmentRepo) Create(_ context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkUnique(dept); err != nil {
		return err
	}
	now := time.Now()
	dept.ID = r.s.nextID()
	dept.CreatedAt, dept.UpdatedAt = now, now
	r.s.departments[dept.ID] = *dept
	return nil
}

func (r *departmentRepo) Update(_ context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.departments[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	if err := r.checkUnique(dept); err != nil {
		return err
	}
	dept.UpdatedAt = time.Now()
	r.s.departments[dept.ID] = *dept
	return nil
}

// Delete mirrors ON DELETE SET NULL on users and complaints, and the
// manager check constraint that makes the cascade fail for a department manager.
func (r *departmentRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.departments[id]; !ok {
		return pgx.ErrNoRows
	}
	for _, user := range r.s.users {
		if user.Role == domain.RoleDepartmentManager && user.DepartmentID != nil && *user.DepartmentID == id {
			return repository.ErrDepartmentHasManager
		}
	}
	delete(r.s.departments, id)
	for uid, user := range r.s.users {
		if user.DepartmentID != nil && *user.DepartmentID == id {
			user.DepartmentID = nil
			r.s.users[uid] = user
		}
	}
	for cid, complaint := range r.s.complaints {
		if complaint.DepartmentID != nil && *complaint.DepartmentID == id {
			complaint.DepartmentID = nil
			r.s.complaints[cid] = complaint
		}
	}
	return nil
}

func (r *departmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	dept, ok := r.s.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &dept, nil
}

func (r *departmentRepo) List(_ context.Context, page repository.Page) ([]domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.Department, 0, len(r.s.departments))
	for _, dept := range r.s.departments {
		result = append(result, dept)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return paginate(result, page), nil
}

type complaintRepo struct{ s *Store }

func (r *complaintRepo) Create(_ context.Context, complaint *domain.Complaint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.complaints {
		if existing.TrackingCode == complaint.TrackingCode {
			return dup("complaints_tracking_code_key", "tracking_code")
		}
	}
	now := time.Now()
	complaint.ID = r.s.nextID()
	complaint.CreatedAt, complaint.UpdatedAt = now, now
	stored := *complaint
	stored.Attachments = nil
	r.s.complaints[complaint.ID] = stored
	return nil
}

func (r *complaintRepo) Update(_ context.Context, complaint *domain.Complaint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.complaints[complaint.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = complaint.Status
	stored.DepartmentID = complaint.DepartmentID
	stored.UpdatedAt = time.Now()
	complaint.UpdatedAt = stored.UpdatedAt
	r.s.complaints[complaint.ID] = stored
	return nil
}

func (r *complaintRepo) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	complaint, ok := r.s.complaints[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &complaint, nil
}

func (r *complaintRepo) GetByTrackingCode(_ context.Context, code string) (*domain.Complaint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, complaint := range r.s.complaints {
		if complaint.TrackingCode == code {
			c := complaint
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *complaintRepo) ExistsByTrackingCode(_ context.Context, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.TrackingLookups++
	if r.s.TrackingExistsErr != nil {
		return false, r.s.TrackingExistsErr
	}
	for _, complaint := range r.s.complaints {
		if complaint.TrackingCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *complaintRepo) List(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]string, 0, len(r.s.complaints))
	for id := range r.s.complaints {
		ids = append(ids, id)
	}
	r.s.newestFirst(ids)

	var result []domain.Complaint
	for _, id := range ids {
		complaint := r.s.complaints[id]
		if filter.SubmitterID != nil && complaint.SubmitterID != *filter.SubmitterID {
			continue
		}
		if filter.DepartmentID != nil && (complaint.DepartmentID == nil || *complaint.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, complaint.Status) {
			continue
		}
		if len(filter.Types) > 0 && !contains(filter.Types, complaint.Type) {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			haystack := strings.ToLower(complaint.Title + " " + complaint.Description + " " + complaint.TrackingCode)
			if term != "" && !strings.Contains(haystack, term) {
				continue
			}
		}
		result = append(result, complaint)
	}
	return paginate(result, filter.Page), nil
}

func contains[T comparable](items []T, target T) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

type attachmentRepo struct{ s *Store }

func (r *attachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.AttachmentCreateErr != nil {
		return r.s.AttachmentCreateErr
	}
	attachment.ID = r.s.nextID()
	attachment.CreatedAt = time.Now()
	r.s.attachments[attachment.ID] = *attachment
	return nil
}

func (r *attachmentRepo) ListByComplaint(_ context.Context, complaintID string) ([]domain.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []string{}
	for id, att := range r.s.attachments {
		if att.ComplaintID == complaintID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return r.s.order[ids[i]] < r.s.order[ids[j]] })
	result := make([]domain.Attachment, 0, len(ids))
	for _, id := range ids {
		result = append(result, r.s.attachments[id])
	}
	return result, nil
}

type responseRepo struct{ s *Store }

func (r *responseRepo) Create(_ context.Context, response *domain.Response) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.complaints[response.ComplaintID]; !ok {
		return pgx.ErrNoRows
	}
	response.ID = r.s.nextID()
	response.CreatedAt = time.Now()
	r.s.responses[response.ID] = *response
	return nil
}

func (r *responseRepo) UpdateVisibility(_ context.Context, response *domain.Response) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.responses[response.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.VisibleToStudent = response.VisibleToStudent
	stored.PublishedAt = response.PublishedAt
	r.s.responses[response.ID] = stored
	return nil
}

func (r *responseRepo) GetByID(_ context.Context, id string) (*domain.Response, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	response, ok := r.s.responses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &response, nil
}

func (r *responseRepo) ListByComplaint(ctx context.Context, complaintID string, visibleOnly bool) ([]domain.Response, error) {
	filter := repository.ResponseFilter{ComplaintID: &complaintID, Page: repository.Page{Limit: 200}}
	if visibleOnly {
		visible := true
		filter.Visible = &visible
	}
	return r.List(ctx, filter)
}

func (r *responseRepo) List(_ context.Context, filter repository.ResponseFilter) ([]domain.Response, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]string, 0, len(r.s.responses))
	for id := range r.s.responses {
		ids = append(ids, id)
	}
	r.s.newestFirst(ids)
	var result []domain.Response
	for _, id := range ids {
		response := r.s.responses[id]
		if filter.ComplaintID != nil && response.ComplaintID != *filter.ComplaintID {
			continue
		}
		if filter.Visible != nil && response.VisibleToStudent != *filter.Visible {
			continue
		}
		result = append(result, response)
	}
	return paginate(result, filter.Page), nil
}

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(_ context.Context, session *domain.ChatbotSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	session.ID = r.s.nextID()
	session.StartedAt, session.LastActivityAt = now, now
	r.s.sessions[session.ID] = *session
	return nil
}

func (r *sessionRepo) Update(_ context.Context, session *domain.ChatbotSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[session.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.s.sessions[session.ID] = *session
	return nil
}

func (r *sessionRepo) GetByID(_ context.Context, id string) (*domain.ChatbotSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &session, nil
}

func (r *sessionRepo) ListByUser(_ context.Context, userID string) ([]domain.ChatbotSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []string{}
	for id, session := range r.s.sessions {
		if session.UserID == userID {
			ids = append(ids, id)
		}
	}
	r.s.newestFirst(ids)
	result := make([]domain.ChatbotSession, 0, len(ids))
	for _, id := range ids {
		result = append(result, r.s.sessions[id])
	}
	return result, nil
}

type resetRepo struct{ s *Store }

func (r *resetRepo) Create(_ context.Context, token *domain.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	token.ID = r.s.nextID()
	token.CreatedAt = time.Now()
	r.s.resets[token.ID] = *token
	return nil
}

func (r *resetRepo) GetByToken(_ context.Context, tokenStr string) (*domain.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, token := range r.s.resets {
		if token.Token == tokenStr {
			t := token
			return &t, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *resetRepo) MarkUsed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	token, ok := r.s.resets[id]
	if !ok || token.UsedAt != nil {
		return pgx.ErrNoRows
	}
	now := time.Now()
	token.UsedAt = &now
	r.s.resets[id] = token
	return nil
}
