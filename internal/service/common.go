package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/events"
	"github.com/campusvoice/complaint-service/internal/repository"
	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

// NotificationResult reports the outcome of the synchronous notification
// side call that follows a committed write.
type NotificationResult struct {
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

func requireRole(actor *domain.User, allowed ...domain.Role) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	for _, role := range allowed {
		if actor.Role == role {
			return nil
		}
	}
	return apperrors.NewForbidden("insufficient role")
}

var duplicateMessages = map[string]string{
	"username":      "username already taken",
	"email":         "email already registered",
	"department_id": "department already has a manager",
	"name":          "department name already exists",
	"tracking_code": "tracking code already in use",
}

// mapRepoError turns unique violations into conflicts and everything else into domain errors.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if dup, ok := repository.AsDuplicate(err); ok {
		msg, known := duplicateMessages[dup.Field]
		if !known {
			msg = fmt.Sprintf("%s already exists", dup.Field)
		}
		return apperrors.NewConflict(msg, map[string]any{"field": dup.Field})
	}
	return apperrors.MapError(err)
}

func notFound(resource, key, id string) error {
	return apperrors.NewNotFound(resource, map[string]any{key: id})
}

type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func newPublisher(dispatcher events.Dispatcher, logger *zap.Logger) publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return publisher{dispatcher: dispatcher, logger: logger, now: time.Now}
}

// publish dispatches the event and reports handler failures without
// returning them as errors; the triggering write has already committed.
func (p publisher) publish(ctx context.Context, event events.Event) NotificationResult {
	if p.dispatcher == nil {
		return NotificationResult{Delivered: true}
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("complaint_id", event.ComplaintID),
			zap.Error(err),
		)
		return NotificationResult{Delivered: false, Error: err.Error()}
	}
	return NotificationResult{Delivered: true}
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Role: user.Role}
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "..."
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// mapNotFound reports a missing row as a not-found error on the named resource.
func mapNotFound(err error, resource, key, id string) error {
	if isNoRows(err) {
		return notFound(resource, key, id)
	}
	return apperrors.MapError(err)
}
