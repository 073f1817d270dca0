package history

import "time"

// Submission outcomes
const (
	StatusSent        = "sent"
	StatusFailed      = "failed"
	StatusRateLimited = "rate_limited"
	StatusInvalid     = "invalid"
)

// SubmissionRecord is one contact form attempt in the audit trail
type SubmissionRecord struct {
	ID           int64     `json:"id"`
	SubmissionID string    `json:"submission_id"`
	IP           string    `json:"ip"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Status       string    `json:"status"` // sent, failed, rate_limited, invalid
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
