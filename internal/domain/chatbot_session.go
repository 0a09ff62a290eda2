package domain

import "time"

// ChatbotSession records a student's chatbot conversation window.
type ChatbotSession struct {
	ID                     string
	UserID                 string
	ExternalConversationID *string
	StartedAt              time.Time
	LastActivityAt         time.Time
	EndedAt                *time.Time
}

// Active reports whether the session has not been ended.
func (s *ChatbotSession) Active() bool {
	return s.EndedAt == nil
}
