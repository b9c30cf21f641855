package domain

import "time"

// Category is a named, colored classification tag tickets reference.
type Category struct {
	ID          string
	Name        string
	Description string
	Color       string
	IsActive    bool
	CreatedAt   time.Time
}
