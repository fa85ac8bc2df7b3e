package report

import (
	"time"

	"github.com/geocoder89/garbagewatch/internal/domain/user"
	"github.com/google/uuid"
)

// NewFromSubmission always starts a report as Pending and binds it to author.
func NewFromSubmission(req SubmitRequest, author user.User) Report {
	return Report{
		ID:          uuid.NewString(),
		Location:    req.Location,
		GarbageType: req.GarbageType,
		Severity:    Severity(req.Severity),
		Status:      StatusPending,
		Description: req.Description,
		Image:       req.Image,
		ReportedBy:  author.Summary(),
		CreatedAt:   time.Now().UTC(),
	}
}
