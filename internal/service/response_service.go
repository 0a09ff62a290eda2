package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusvoice/complaint-service/internal/cache"
	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/events"
	"github.com/campusvoice/complaint-service/internal/repository"
	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

// ResponseService files department responses and operates the visibility gate.
type ResponseService struct {
	complaints repository.ComplaintRepository
	responses  repository.ResponseRepository
	cache      cache.TrackingCache
	events     publisher
	logger     *zap.Logger
	now        func() time.Time
}

// ResponseDependencies bundles collaborators for the response service.
type ResponseDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	ResponseRepo  repository.ResponseRepository
	Cache         cache.TrackingCache
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewResponseService constructs the service.
func NewResponseService(deps ResponseDependencies) *ResponseService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	trackingCache := deps.Cache
	if trackingCache == nil {
		trackingCache = cache.NoopTrackingCache{}
	}
	return &ResponseService{
		complaints: deps.ComplaintRepo,
		responses:  deps.ResponseRepo,
		cache:      trackingCache,
		events:     newPublisher(deps.Dispatcher, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// FileResponseResult carries the new response, the updated complaint and the notification outcome.
type FileResponseResult struct {
	Response     *domain.Response
	Complaint    *domain.Complaint
	Notification NotificationResult
}

// FileResponse records a department manager's reply. The complaint must be
// assigned to the manager's own department. An In Review complaint becomes
// Resolved; a Resolved one stays Resolved. The response starts hidden.
func (s *ResponseService) FileResponse(ctx context.Context, actor *domain.User, complaintID, message string) (*FileResponseResult, error) {
	if err := requireRole(actor, domain.RoleDepartmentManager); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewFieldError("message", "message is required")
	}

	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapNotFound(err, "complaint", "complaint_id", complaintID)
	}
	if !actor.IsManagerOf(complaint.DepartmentID) {
		return nil, apperrors.NewForbidden("complaint is not assigned to your department")
	}

	oldStatus := complaint.Status
	switch complaint.Status {
	case domain.ComplaintStatusInReview:
		complaint.Status = domain.ComplaintStatusResolved
	case domain.ComplaintStatusResolved:
	case domain.ComplaintStatusPending:
		return nil, apperrors.NewConflict("complaint has not been assigned", map[string]any{"status": string(complaint.Status)})
	default:
		return nil, apperrors.NewInternalError(errors.New("unknown complaint status " + string(complaint.Status)))
	}

	senderID := actor.ID
	response := &domain.Response{
		ComplaintID:      complaint.ID,
		SenderID:         &senderID,
		Message:          message,
		VisibleToStudent: false,
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, apperrors.MapError(err)
	}
	if complaint.Status != oldStatus {
		if err := s.complaints.Update(ctx, complaint); err != nil {
			return nil, apperrors.MapError(err)
		}
		invalidateTracking(ctx, s.cache, s.logger, complaint.TrackingCode)
	}

	notification := s.events.publish(ctx, events.Event{
		Type:        events.EventResponseFiled,
		ComplaintID: complaint.ID,
		Actor:       actorOf(actor),
		Payload: events.ResponseFiledPayload{
			ResponseID:   response.ID,
			TrackingCode: complaint.TrackingCode,
			OldStatus:    oldStatus,
			NewStatus:    complaint.Status,
			BodyPreview:  preview(message, 140),
		},
	})
	return &FileResponseResult{Response: response, Complaint: complaint, Notification: notification}, nil
}

// VisibilityResult carries the response after the toggle. Notification is
// nil when the visibility did not change and no event was published.
type VisibilityResult struct {
	Response     *domain.Response
	Changed      bool
	Notification *NotificationResult
}

// SetResponseVisibility publishes or hides a response. Repeating the same
// toggle is a no-op that keeps the original publish time.
func (s *ResponseService) SetResponseVisibility(ctx context.Context, actor *domain.User, responseID string, visible bool) (*VisibilityResult, error) {
	if err := requireRole(actor, domain.RoleGeneralManager); err != nil {
		return nil, err
	}
	response, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		return nil, mapNotFound(err, "response", "response_id", responseID)
	}

	wasVisible := response.VisibleToStudent
	response.SetVisibility(visible, s.now())
	if wasVisible == response.VisibleToStudent {
		return &VisibilityResult{Response: response}, nil
	}

	if err := s.responses.UpdateVisibility(ctx, response); err != nil {
		return nil, apperrors.MapError(err)
	}

	complaint, err := s.complaints.GetByID(ctx, response.ComplaintID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	invalidateTracking(ctx, s.cache, s.logger, complaint.TrackingCode)

	notification := s.events.publish(ctx, events.Event{
		Type:        events.EventResponseVisibilityChanged,
		ComplaintID: complaint.ID,
		Actor:       actorOf(actor),
		Payload: events.ResponseVisibilityChangedPayload{
			ResponseID:   response.ID,
			TrackingCode: complaint.TrackingCode,
			SubmitterID:  complaint.SubmitterID,
			Visible:      response.VisibleToStudent,
		},
	})
	return &VisibilityResult{Response: response, Changed: true, Notification: &notification}, nil
}

// ResponseQuery narrows the general manager's response listing.
type ResponseQuery struct {
	ComplaintID *string
	Visible     *bool
	Limit       int
	Offset      int
}

// ListResponses returns responses across complaints for review.
func (s *ResponseService) ListResponses(ctx context.Context, actor *domain.User, query ResponseQuery) ([]domain.Response, error) {
	if err := requireRole(actor, domain.RoleGeneralManager); err != nil {
		return nil, err
	}
	responses, err := s.responses.List(ctx, repository.ResponseFilter{
		ComplaintID: query.ComplaintID,
		Visible:     query.Visible,
		Page:        repository.Page{Limit: query.Limit, Offset: query.Offset},
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if responses == nil {
		responses = []domain.Response{}
	}
	return responses, nil
}
