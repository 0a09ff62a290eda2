package domain

import "time"

// Department receives complaints and has at most one manager.
type Department struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
