package domain

import "time"

// TrackingView is the public, unauthenticated projection of a complaint.
// Only published responses are included.
type TrackingView struct {
	TrackingCode   string           `json:"tracking_code"`
	Type           ComplaintType    `json:"type"`
	Title          string           `json:"title"`
	Status         ComplaintStatus  `json:"status"`
	DepartmentName *string          `json:"department_name,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Responses      []PublicResponse `json:"responses"`
}

// PublicResponse is a published response as shown to anyone holding the code.
type PublicResponse struct {
	Message     string    `json:"message"`
	PublishedAt time.Time `json:"published_at"`
}
