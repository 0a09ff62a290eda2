package service

import (
	"context"
	"strings"
	"time"

	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/repository"
	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

// ChatbotService tracks students' chatbot session windows.
type ChatbotService struct {
	sessions repository.ChatbotSessionRepository
	now      func() time.Time
}

// NewChatbotService constructs the service.
func NewChatbotService(sessions repository.ChatbotSessionRepository) *ChatbotService {
	return &ChatbotService{sessions: sessions, now: time.Now}
}

// StartSession opens a session, optionally linked to an external conversation id.
func (s *ChatbotService) StartSession(ctx context.Context, actor *domain.User, externalID *string) (*domain.ChatbotSession, error) {
	if err := requireRole(actor, domain.RoleStudent); err != nil {
		return nil, err
	}
	session := &domain.ChatbotSession{UserID: actor.ID}
	if externalID != nil && strings.TrimSpace(*externalID) != "" {
		id := strings.TrimSpace(*externalID)
		session.ExternalConversationID = &id
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

// ListSessions returns the actor's sessions, newest first.
func (s *ChatbotService) ListSessions(ctx context.Context, actor *domain.User) ([]domain.ChatbotSession, error) {
	if err := requireRole(actor, domain.RoleStudent); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if sessions == nil {
		sessions = []domain.ChatbotSession{}
	}
	return sessions, nil
}

// Touch records activity on an open session.
func (s *ChatbotService) Touch(ctx context.Context, actor *domain.User, id string) (*domain.ChatbotSession, error) {
	session, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, apperrors.NewConflict("session already ended", map[string]any{"session_id": id})
	}
	session.LastActivityAt = s.now()
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

// End closes a session. Ending an already ended session returns it unchanged.
func (s *ChatbotService) End(ctx context.Context, actor *domain.User, id string) (*domain.ChatbotSession, error) {
	session, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return session, nil
	}
	now := s.now()
	session.EndedAt = &now
	session.LastActivityAt = now
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

func (s *ChatbotService) owned(ctx context.Context, actor *domain.User, id string) (*domain.ChatbotSession, error) {
	if err := requireRole(actor, domain.RoleStudent); err != nil {
		return nil, err
	}
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "chatbot session", "session_id", id)
	}
	if session.UserID != actor.ID {
		return nil, notFound("chatbot session", "session_id", id)
	}
	return session, nil
}
