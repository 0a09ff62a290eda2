package dto

import (
	"time"

	"github.com/campusvoice/complaint-service/internal/domain"
)

// SubmitComplaintRequest is accepted as JSON or multipart form. Files arrive
// in the multipart field "files".
type SubmitComplaintRequest struct {
	Type        string `json:"type" form:"type" validate:"required,oneof=Complaint Suggestion"`
	Title       string `json:"title" form:"title" validate:"required,max=255"`
	Description string `json:"description" form:"description" validate:"required,max=10000"`
}

// AssignDepartmentRequest payload.
type AssignDepartmentRequest struct {
	DepartmentID string `json:"department_id" validate:"required"`
}

// FileResponseRequest payload.
type FileResponseRequest struct {
	Message string `json:"message" validate:"required,max=10000"`
}

// VisibilityRequest toggles a response's visibility.
type VisibilityRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

// NotificationStatus reports whether the follow-up notification went out.
type NotificationStatus struct {
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// AttachmentResponse payload.
type AttachmentResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	URL       string `json:"url"`
}

// ComplaintSummary response.
type ComplaintSummary struct {
	ID           string                 `json:"id"`
	TrackingCode string                 `json:"tracking_code"`
	Type         domain.ComplaintType   `json:"type"`
	Title        string                 `json:"title"`
	Status       domain.ComplaintStatus `json:"status"`
	DepartmentID *string                `json:"department_id"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// ComplaintDetailResponse provides full complaint info.
type ComplaintDetailResponse struct {
	ComplaintSummary
	SubmitterID string               `json:"submitter_id,omitempty"`
	Description string               `json:"description"`
	Attachments []AttachmentResponse `json:"attachments"`
	Responses   []ResponseView       `json:"responses"`
}

// ResponseView represents a department response.
type ResponseView struct {
	ID               string     `json:"id"`
	ComplaintID      string     `json:"complaint_id"`
	SenderID         *string    `json:"sender_id,omitempty"`
	Message          string     `json:"message"`
	VisibleToStudent bool       `json:"visible_to_student"`
	PublishedAt      *time.Time `json:"published_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ChatbotSessionRequest starts a chatbot session.
type ChatbotSessionRequest struct {
	ExternalConversationID *string `json:"external_conversation_id" validate:"omitempty,max=255"`
}

// ChatbotSessionResponse payload.
type ChatbotSessionResponse struct {
	ID                     string     `json:"id"`
	ExternalConversationID *string    `json:"external_conversation_id"`
	StartedAt              time.Time  `json:"started_at"`
	LastActivityAt         time.Time  `json:"last_activity_at"`
	EndedAt                *time.Time `json:"ended_at"`
	Active                 bool       `json:"active"`
}
