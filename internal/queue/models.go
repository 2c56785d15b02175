package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a drafting job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusDrafting   Status = "drafting"
	StatusConverged  Status = "converged"
	StatusNeedsHuman Status = "needs_human"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusDrafting,
	StatusConverged,
	StatusNeedsHuman,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Job is one asset drafting task persisted in SQLite.
type Job struct {
	ID            int64
	EpisodeID     string
	WorkspacePath string
	AssetID       string
	Status        Status
	Iterations    int
	Reason        string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Drafting   int
	Converged  int
	NeedsHuman int
	Failed     int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the job's lifecycle. Failed jobs
// can be retried back to pending, needs_human jobs resume after a human edits
// the workspace and requeues.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusConverged, StatusNeedsHuman, StatusFailed:
		return true
	default:
		return false
	}
}

// IsDrafting reports whether the job is currently claimed by a worker.
func (j Job) IsDrafting() bool { return j.Status == StatusDrafting }
