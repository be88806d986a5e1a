package models

import "time"

// Request priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Request statuses. Any status may follow any other; the server does
// not enforce a transition table.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

// Request is a dealer support ticket.
type Request struct {
	ID              string         `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"user_id"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description"`
	Priority        string         `db:"priority" json:"priority"`
	Status          string         `db:"status" json:"status"`
	MediaURLs       AttachmentList `db:"media_urls" json:"media_urls"`
	Archived        bool           `db:"archived" json:"archived"`
	AssignedAdminID *string        `db:"assigned_admin_id" json:"assigned_admin_id,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// ValidPriority reports whether p is one of the enumerated priorities.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidStatus reports whether s is one of the enumerated statuses.
func ValidStatus(s string) bool {
	return s == StatusNew || s == StatusInProgress || s == StatusResolved || s == StatusClosed
}
