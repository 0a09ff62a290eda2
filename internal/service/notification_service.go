package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campusvoice/complaint-service/internal/config"
	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/events"
	"github.com/campusvoice/complaint-service/internal/notify"
	"github.com/campusvoice/complaint-service/internal/repository"
)

// NotificationService turns domain events into emails.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notify.Notifier
	users      repository.UserRepository
	logger     *zap.Logger
	publicURL  string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier notify.Notifier, users repository.UserRepository, logger *zap.Logger, cfg config.AppConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		users:      users,
		logger:     logger,
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintSubmitted, n.handleComplaintSubmitted)
	n.dispatcher.Subscribe(events.EventComplaintAssigned, n.handleComplaintAssigned)
	n.dispatcher.Subscribe(events.EventResponseFiled, n.handleResponseFiled)
	n.dispatcher.Subscribe(events.EventResponseVisibilityChanged, n.handleResponseVisibilityChanged)
}

func (n *NotificationService) trackURL(code string) string {
	return fmt.Sprintf("%s/track/%s", n.publicURL, code)
}

func (n *NotificationService) handleComplaintSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintSubmittedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("ComplaintSubmitted", zap.String("complaint_id", event.ComplaintID), zap.String("tracking_code", payload.TrackingCode))

	student, err := n.users.GetByID(ctx, payload.SubmitterID)
	if err != nil {
		return fmt.Errorf("load submitter: %w", err)
	}
	body := fmt.Sprintf("Hello %s,\n\nYour %s \"%s\" has been received.\nTracking code: %s\nTrack it at %s\n",
		student.Name, strings.ToLower(string(payload.Type)), payload.Title, payload.TrackingCode, n.trackURL(payload.TrackingCode))
	return n.notifier.Send(ctx, student.Email, "Submission received: "+payload.TrackingCode, body)
}

func (n *NotificationService) handleComplaintAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("ComplaintAssigned", zap.String("complaint_id", event.ComplaintID), zap.String("department_id", payload.DepartmentID))

	role := domain.RoleDepartmentManager
	managers, err := n.users.List(ctx, repository.UserFilter{Role: &role, DepartmentID: &payload.DepartmentID})
	if err != nil {
		return fmt.Errorf("load department manager: %w", err)
	}
	if len(managers) == 0 {
		n.logger.Warn("assigned department has no manager", zap.String("department_id", payload.DepartmentID))
		return nil
	}
	body := fmt.Sprintf("Complaint %s has been assigned to your department and is awaiting a response.\n", payload.TrackingCode)
	return n.sendAll(ctx, managers, "Complaint assigned: "+payload.TrackingCode, body)
}

func (n *NotificationService) handleResponseFiled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ResponseFiledPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("ResponseFiled", zap.String("complaint_id", event.ComplaintID), zap.String("response_id", payload.ResponseID))

	managers, err := n.users.ListByRole(ctx, domain.RoleGeneralManager)
	if err != nil {
		return fmt.Errorf("load general managers: %w", err)
	}
	body := fmt.Sprintf("A response to complaint %s is awaiting review:\n\n%s\n", payload.TrackingCode, payload.BodyPreview)
	return n.sendAll(ctx, managers, "Response awaiting review: "+payload.TrackingCode, body)
}

func (n *NotificationService) handleResponseVisibilityChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ResponseVisibilityChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("ResponseVisibilityChanged", zap.String("complaint_id", event.ComplaintID), zap.Bool("visible", payload.Visible))
	if !payload.Visible {
		return nil
	}

	student, err := n.users.GetByID(ctx, payload.SubmitterID)
	if err != nil {
		return fmt.Errorf("load submitter: %w", err)
	}
	body := fmt.Sprintf("Hello %s,\n\nA response to your submission %s is now available.\nView it at %s\n",
		student.Name, payload.TrackingCode, n.trackURL(payload.TrackingCode))
	return n.notifier.Send(ctx, student.Email, "New response: "+payload.TrackingCode, body)
}

func (n *NotificationService) sendAll(ctx context.Context, recipients []domain.User, subject, body string) error {
	var errs []error
	for _, user := range recipients {
		if err := n.notifier.Send(ctx, user.Email, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
