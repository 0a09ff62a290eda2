package domain

import "time"

// Response is a manager's reply to a complaint, hidden from the student until published.
type Response struct {
	ID               string
	ComplaintID      string
	SenderID         *string
	Message          string
	VisibleToStudent bool
	PublishedAt      *time.Time
	CreatedAt        time.Time
}

// SetVisibility flips the visibility gate. Publishing an already visible
// response keeps its original publish time.
func (r *Response) SetVisibility(visible bool, now time.Time) {
	if !visible {
		r.VisibleToStudent = false
		r.PublishedAt = nil
		return
	}
	if r.VisibleToStudent && r.PublishedAt != nil {
		return
	}
	r.VisibleToStudent = true
	r.PublishedAt = &now
}
