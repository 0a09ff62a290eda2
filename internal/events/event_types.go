package events

import (
	"time"

	"github.com/campusvoice/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintSubmitted        EventType = "complaint_submitted"
	EventComplaintAssigned         EventType = "complaint_assigned"
	EventResponseFiled             EventType = "response_filed"
	EventResponseVisibilityChanged EventType = "response_visibility_changed"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID string      `json:"complaint_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// ComplaintSubmittedPayload payload.
type ComplaintSubmittedPayload struct {
	TrackingCode string               `json:"tracking_code"`
	Type         domain.ComplaintType `json:"type"`
	Title        string               `json:"title"`
	SubmitterID  string               `json:"submitter_id"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	TrackingCode string                 `json:"tracking_code"`
	DepartmentID string                 `json:"department_id"`
	OldStatus    domain.ComplaintStatus `json:"old_status"`
	NewStatus    domain.ComplaintStatus `json:"new_status"`
}

// ResponseFiledPayload payload.
type ResponseFiledPayload struct {
	ResponseID   string                 `json:"response_id"`
	TrackingCode string                 `json:"tracking_code"`
	OldStatus    domain.ComplaintStatus `json:"old_status"`
	NewStatus    domain.ComplaintStatus `json:"new_status"`
	BodyPreview  string                 `json:"body_preview"`
}

// ResponseVisibilityChangedPayload payload.
type ResponseVisibilityChangedPayload struct {
	ResponseID   string `json:"response_id"`
	TrackingCode string `json:"tracking_code"`
	SubmitterID  string `json:"submitter_id"`
	Visible      bool   `json:"visible"`
}
