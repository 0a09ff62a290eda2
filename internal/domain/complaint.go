package domain

import (
	"fmt"
	"time"
)

// ComplaintType distinguishes complaints from suggestions.
type ComplaintType string

const (
	ComplaintTypeComplaint  ComplaintType = "Complaint"
	ComplaintTypeSuggestion ComplaintType = "Suggestion"
)

// ParseComplaintType validates a raw type string.
func ParseComplaintType(raw string) (ComplaintType, error) {
	switch ComplaintType(raw) {
	case ComplaintTypeComplaint, ComplaintTypeSuggestion:
		return ComplaintType(raw), nil
	default:
		return "", fmt.Errorf("unknown complaint type %q", raw)
	}
}

// ComplaintStatus enumerates lifecycle states.
type ComplaintStatus string

const (
	ComplaintStatusPending  ComplaintStatus = "Pending"
	ComplaintStatusInReview ComplaintStatus = "In Review"
	ComplaintStatusResolved ComplaintStatus = "Resolved"
)

// ParseComplaintStatus validates a raw status string.
func ParseComplaintStatus(raw string) (ComplaintStatus, error) {
	switch ComplaintStatus(raw) {
	case ComplaintStatusPending, ComplaintStatusInReview, ComplaintStatusResolved:
		return ComplaintStatus(raw), nil
	default:
		return "", fmt.Errorf("unknown complaint status %q", raw)
	}
}

// Complaint is a student submission tracked by a public code.
type Complaint struct {
	ID           string
	TrackingCode string
	SubmitterID  string
	Type         ComplaintType
	Title        string
	Description  string
	Status       ComplaintStatus
	DepartmentID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Attachments  []Attachment
}

// Attachment references a stored upload belonging to a complaint.
type Attachment struct {
	ID          string
	ComplaintID string
	StorageKey  string
	FileName    string
	MimeType    string
	SizeBytes   int64
	URL         string
	CreatedAt   time.Time
}
