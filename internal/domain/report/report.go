package report

import (
	"time"

	"github.com/geocoder89/garbagewatch/internal/domain/user"
)

// Report is a user-submitted garbage detection record.
type Report struct {
	ID          string       `json:"id"`
	Location    string       `json:"location"`
	GarbageType string       `json:"garbageType"`
	Severity    Severity     `json:"severity"`
	Status      Status       `json:"status"`
	Description string       `json:"description,omitempty"`
	Image       string       `json:"image,omitempty"`
	ReportedBy  user.Summary `json:"reportedBy"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type SubmitRequest struct {
	Location    string `json:"location" binding:"required,max=255"`
	GarbageType string `json:"garbageType" binding:"required,max=80"`
	Severity    string `json:"severity" binding:"required,oneof=Low Medium High"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	Image       string `json:"image" binding:"omitempty,max=2048"`
	// Status is accepted for compatibility with older clients and ignored.
	Status string `json:"status"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof='Pending' 'In Progress' 'Resolved'"`
}
