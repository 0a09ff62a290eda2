package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusvoice/complaint-service/internal/cache"
	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/events"
	"github.com/campusvoice/complaint-service/internal/repository"
	"github.com/campusvoice/complaint-service/internal/storage"
	"github.com/campusvoice/complaint-service/internal/tracking"
	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

// ComplaintService coordinates the complaint lifecycle and its read views.
type ComplaintService struct {
	complaints  repository.ComplaintRepository
	attachments repository.AttachmentRepository
	responses   repository.ResponseRepository
	departments repository.DepartmentRepository
	generator   *tracking.Generator
	files       storage.FileStore
	cache       cache.TrackingCache
	events      publisher
	logger      *zap.Logger
	maxFiles    int
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo  repository.ComplaintRepository
	AttachmentRepo repository.AttachmentRepository
	ResponseRepo   repository.ResponseRepository
	DepartmentRepo repository.DepartmentRepository
	Generator      *tracking.Generator
	Files          storage.FileStore
	Cache          cache.TrackingCache
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	MaxFiles       int
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	generator := deps.Generator
	if generator == nil {
		generator = tracking.NewGenerator(deps.ComplaintRepo, logger)
	}
	trackingCache := deps.Cache
	if trackingCache == nil {
		trackingCache = cache.NoopTrackingCache{}
	}
	maxFiles := deps.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &ComplaintService{
		complaints:  deps.ComplaintRepo,
		attachments: deps.AttachmentRepo,
		responses:   deps.ResponseRepo,
		departments: deps.DepartmentRepo,
		generator:   generator,
		files:       deps.Files,
		cache:       trackingCache,
		events:      newPublisher(deps.Dispatcher, logger),
		logger:      logger,
		maxFiles:    maxFiles,
	}
}

// Upload is one file attached to a submission.
type Upload struct {
	FileName string
	Open     func() (io.ReadCloser, error)
}

// SubmitInput describes a new complaint or suggestion.
type SubmitInput struct {
	Type        domain.ComplaintType
	Title       string
	Description string
	Files       []Upload
}

// ComplaintResult pairs a written complaint with the notification outcome.
type ComplaintResult struct {
	Complaint    *domain.Complaint
	Notification NotificationResult
}

// SubmitComplaint creates a Pending, unassigned complaint for a student.
// Files are stored before the row is written and removed again if the write fails.
func (s *ComplaintService) SubmitComplaint(ctx context.Context, actor *domain.User, input SubmitInput) (*ComplaintResult, error) {
	if err := requireRole(actor, domain.RoleStudent); err != nil {
		return nil, err
	}
	if _, err := domain.ParseComplaintType(string(input.Type)); err != nil {
		return nil, apperrors.NewFieldError("type", "must be Complaint or Suggestion")
	}
	if len(input.Files) > s.maxFiles {
		return nil, apperrors.NewFieldError("files", "too many files")
	}
	if len(input.Files) > 0 && s.files == nil {
		return nil, apperrors.NewFieldError("files", "attachments are not accepted")
	}

	code, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	stored, err := s.storeUploads(ctx, code, input.Files)
	if err != nil {
		return nil, err
	}

	complaint := &domain.Complaint{
		TrackingCode: code,
		SubmitterID:  actor.ID,
		Type:         input.Type,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Status:       domain.ComplaintStatusPending,
	}
	if err := s.complaints.Create(ctx, complaint); err != nil {
		s.discard(ctx, stored)
		return nil, mapRepoError(err)
	}

	// The complaint row is committed at this point, so a failed attachment
	// insert drops the unrecorded files and the submission still succeeds.
	for i, file := range stored {
		attachment := &domain.Attachment{
			ComplaintID: complaint.ID,
			StorageKey:  file.Key,
			FileName:    input.Files[i].FileName,
			MimeType:    file.MimeType,
			SizeBytes:   file.Size,
			URL:         file.URL,
		}
		if err := s.attachments.Create(ctx, attachment); err != nil {
			s.logger.Warn("attachment insert failed, discarding remaining uploads",
				zap.String("complaint_id", complaint.ID),
				zap.Int("discarded", len(stored)-i),
				zap.Error(err),
			)
			s.discard(ctx, stored[i:])
			break
		}
		complaint.Attachments = append(complaint.Attachments, *attachment)
	}

	notification := s.events.publish(ctx, events.Event{
		Type:        events.EventComplaintSubmitted,
		ComplaintID: complaint.ID,
		Actor:       actorOf(actor),
		Payload: events.ComplaintSubmittedPayload{
			TrackingCode: complaint.TrackingCode,
			Type:         complaint.Type,
			Title:        complaint.Title,
			SubmitterID:  complaint.SubmitterID,
		},
	})
	return &ComplaintResult{Complaint: complaint, Notification: notification}, nil
}

func (s *ComplaintService) storeUploads(ctx context.Context, folder string, uploads []Upload) ([]storage.StoredFile, error) {
	stored := make([]storage.StoredFile, 0, len(uploads))
	for _, upload := range uploads {
		file, err := s.storeOne(ctx, folder, upload)
		if err != nil {
			s.discard(ctx, stored)
			if errors.Is(err, storage.ErrFileTooLarge) {
				return nil, apperrors.NewValidationError("file too large", map[string]any{"files": upload.FileName})
			}
			return nil, apperrors.NewInternalError(err)
		}
		stored = append(stored, file)
	}
	return stored, nil
}

func (s *ComplaintService) storeOne(ctx context.Context, folder string, upload Upload) (storage.StoredFile, error) {
	rc, err := upload.Open()
	if err != nil {
		return storage.StoredFile{}, err
	}
	defer rc.Close()
	return s.files.Save(ctx, folder, upload.FileName, rc)
}

func (s *ComplaintService) discard(ctx context.Context, files []storage.StoredFile) {
	for _, file := range files {
		if err := s.files.Delete(ctx, file.Key); err != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("key", file.Key), zap.Error(err))
		}
	}
}

// AssignDepartment routes a complaint to a department. A Pending complaint
// moves to In Review; an In Review complaint is reassigned without a status
// change. Resolved complaints cannot be reassigned.
func (s *ComplaintService) AssignDepartment(ctx context.Context, actor *domain.User, complaintID, departmentID string) (*ComplaintResult, error) {
	if err := requireRole(actor, domain.RoleGeneralManager); err != nil {
		return nil, err
	}
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapNotFound(err, "complaint", "complaint_id", complaintID)
	}
	if _, err := s.departments.GetByID(ctx, departmentID); err != nil {
		return nil, mapNotFound(err, "department", "department_id", departmentID)
	}

	oldStatus := complaint.Status
	switch complaint.Status {
	case domain.ComplaintStatusPending:
		complaint.Status = domain.ComplaintStatusInReview
	case domain.ComplaintStatusInReview:
	case domain.ComplaintStatusResolved:
		return nil, apperrors.NewConflict("complaint already resolved", map[string]any{"status": string(complaint.Status)})
	default:
		return nil, apperrors.NewInternalError(errors.New("unknown complaint status " + string(complaint.Status)))
	}
	complaint.DepartmentID = &departmentID

	if err := s.complaints.Update(ctx, complaint); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx, complaint.TrackingCode)

	notification := s.events.publish(ctx, events.Event{
		Type:        events.EventComplaintAssigned,
		ComplaintID: complaint.ID,
		Actor:       actorOf(actor),
		Payload: events.ComplaintAssignedPayload{
			TrackingCode: complaint.TrackingCode,
			DepartmentID: departmentID,
			OldStatus:    oldStatus,
			NewStatus:    complaint.Status,
		},
	})
	return &ComplaintResult{Complaint: complaint, Notification: notification}, nil
}

// ComplaintQuery narrows complaint listings.
type ComplaintQuery struct {
	Statuses     []domain.ComplaintStatus
	Types        []domain.ComplaintType
	DepartmentID *string
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

func (q ComplaintQuery) filter() repository.ComplaintFilter {
	return repository.ComplaintFilter{
		Statuses:    q.Statuses,
		Types:       q.Types,
		SearchTerm:  q.SearchTerm,
		CreatedFrom: q.CreatedFrom,
		CreatedTo:   q.CreatedTo,
		Page:        repository.Page{Limit: q.Limit, Offset: q.Offset},
	}
}

// ListForStudent returns the actor's own submissions.
func (s *ComplaintService) ListForStudent(ctx context.Context, actor *domain.User, query ComplaintQuery) ([]domain.Complaint, error) {
	if err := requireRole(actor, domain.RoleStudent); err != nil {
		return nil, err
	}
	filter := query.filter()
	filter.SubmitterID = &actor.ID
	return s.list(ctx, filter)
}

// ListAll returns every complaint, optionally filtered by department.
func (s *ComplaintService) ListAll(ctx context.Context, actor *domain.User, query ComplaintQuery) ([]domain.Complaint, error) {
	if err := requireRole(actor, domain.RoleGeneralManager); err != nil {
		return nil, err
	}
	filter := query.filter()
	filter.DepartmentID = query.DepartmentID
	return s.list(ctx, filter)
}

// ListForDepartment returns complaints assigned to the manager's department.
func (s *ComplaintService) ListForDepartment(ctx context.Context, actor *domain.User, query ComplaintQuery) ([]domain.Complaint, error) {
	if err := requireRole(actor, domain.RoleDepartmentManager); err != nil {
		return nil, err
	}
	if actor.DepartmentID == nil {
		return []domain.Complaint{}, nil
	}
	filter := query.filter()
	filter.DepartmentID = actor.DepartmentID
	return s.list(ctx, filter)
}

func (s *ComplaintService) list(ctx context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	complaints, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if complaints == nil {
		complaints = []domain.Complaint{}
	}
	return complaints, nil
}

// ComplaintDetail is a complaint with its attachments and the responses the viewer may see.
type ComplaintDetail struct {
	Complaint *domain.Complaint
	Responses []domain.Response
}

// GetForStudent returns one of the actor's complaints with published responses only.
// Complaints owned by someone else are reported as not found.
func (s *ComplaintService) GetForStudent(ctx context.Context, actor *domain.User, complaintID string) (*ComplaintDetail, error) {
	if err := requireRole(actor, domain.RoleStudent); err != nil {
		return nil, err
	}
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapNotFound(err, "complaint", "complaint_id", complaintID)
	}
	if complaint.SubmitterID != actor.ID {
		return nil, notFound("complaint", "complaint_id", complaintID)
	}
	return s.detail(ctx, complaint, true)
}

// GetForManager returns a complaint with every response. Department managers
// only see complaints assigned to their department.
func (s *ComplaintService) GetForManager(ctx context.Context, actor *domain.User, complaintID string) (*ComplaintDetail, error) {
	if err := requireRole(actor, domain.RoleGeneralManager, domain.RoleDepartmentManager); err != nil {
		return nil, err
	}
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapNotFound(err, "complaint", "complaint_id", complaintID)
	}
	if actor.Role == domain.RoleDepartmentManager && !actor.IsManagerOf(complaint.DepartmentID) {
		return nil, apperrors.NewForbidden("complaint is not assigned to your department")
	}
	return s.detail(ctx, complaint, false)
}

func (s *ComplaintService) detail(ctx context.Context, complaint *domain.Complaint, visibleOnly bool) (*ComplaintDetail, error) {
	attachments, err := s.attachments.ListByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.files != nil {
		for i := range attachments {
			attachments[i].URL = s.files.URL(attachments[i].StorageKey)
		}
	}
	complaint.Attachments = attachments

	responses, err := s.responses.ListByComplaint(ctx, complaint.ID, visibleOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if responses == nil {
		responses = []domain.Response{}
	}
	return &ComplaintDetail{Complaint: complaint, Responses: responses}, nil
}

// TrackComplaint returns the public view for a tracking code. No authentication is required.
func (s *ComplaintService) TrackComplaint(ctx context.Context, code string) (*domain.TrackingView, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperrors.NewFieldError("code", "tracking code required")
	}

	if view, ok, err := s.cache.Get(ctx, code); err != nil {
		s.logger.Warn("tracking cache read failed", zap.String("tracking_code", code), zap.Error(err))
	} else if ok {
		return view, nil
	}

	complaint, err := s.complaints.GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, mapNotFound(err, "complaint", "tracking_code", code)
	}

	view := &domain.TrackingView{
		TrackingCode: complaint.TrackingCode,
		Type:         complaint.Type,
		Title:        complaint.Title,
		Status:       complaint.Status,
		CreatedAt:    complaint.CreatedAt,
		UpdatedAt:    complaint.UpdatedAt,
		Responses:    []domain.PublicResponse{},
	}
	if complaint.DepartmentID != nil {
		dept, err := s.departments.GetByID(ctx, *complaint.DepartmentID)
		if err == nil {
			view.DepartmentName = &dept.Name
		} else if !isNoRows(err) {
			return nil, apperrors.MapError(err)
		}
	}

	responses, err := s.responses.ListByComplaint(ctx, complaint.ID, true)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, response := range responses {
		if response.PublishedAt == nil {
			continue
		}
		view.Responses = append(view.Responses, domain.PublicResponse{
			Message:     response.Message,
			PublishedAt: *response.PublishedAt,
		})
	}

	if err := s.cache.Set(ctx, view); err != nil {
		s.logger.Warn("tracking cache write failed", zap.String("tracking_code", code), zap.Error(err))
	}
	return view, nil
}

func (s *ComplaintService) invalidate(ctx context.Context, code string) {
	invalidateTracking(ctx, s.cache, s.logger, code)
}

func invalidateTracking(ctx context.Context, c cache.TrackingCache, logger *zap.Logger, code string) {
	if c == nil {
		return
	}
	if err := c.Invalidate(ctx, code); err != nil {
		logger.Warn("tracking cache invalidation failed", zap.String("tracking_code", code), zap.Error(err))
	}
}
