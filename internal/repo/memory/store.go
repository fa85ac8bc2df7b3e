package memory

import (
	"sync"

	"github.com/geocoder89/garbagewatch/internal/domain/report"
	"github.com/geocoder89/garbagewatch/internal/domain/user"
)

type storedReport struct {
	seq      uint64
	authorID string
	report   report.Report
}

// Store is the shared in-process state behind UsersRepo and ReportsRepo.
// Reports reference users by id so author summaries resolve like a join.
type Store struct {
	mu      sync.RWMutex
	users   map[string]user.User
	byEmail map[string]string
	reports map[string]storedReport
	seq     uint64
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]user.User),
		byEmail: make(map[string]string),
		reports: make(map[string]storedReport),
	}
}

// withAuthor must be called with mu held.
func (s *Store) withAuthor(row storedReport) report.Report {
	r := row.report
	if u, ok := s.users[row.authorID]; ok {
		r.ReportedBy = u.Summary()
	} else {
		// author deleted, no cascade
		r.ReportedBy = user.Summary{ID: row.authorID}
	}
	return r
}
