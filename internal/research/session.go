// Package research holds the session registry and the service that backs the
// exposed research tools. Records live in process memory only; a restart
// forgets every session.
package research

import "time"

// Status is the lifecycle state of a research session.
type Status string

const (
	StatusPending        Status = "pending"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusError          Status = "error"
	StatusNotFound       Status = "not_found"
	StatusManualRequired Status = "manual_required"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Citation is a source reference attached to a completed report.
type Citation struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	StartIndex *int   `json:"start_index,omitempty"`
	EndIndex   *int   `json:"end_index,omitempty"`
}

// Step is one diagnostic entry describing how the provider produced a report,
// either a reasoning summary or a tool call.
type Step struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Tool    string `json:"tool,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// SessionRecord tracks one research request from creation to a terminal
// state. ID and Query are immutable after creation; CompletedAt is set
// exactly once, on the transition to StatusCompleted.
type SessionRecord struct {
	ID             string
	Query          string
	Model          string
	Status         Status
	StartedAt      time.Time
	CompletedAt    *time.Time
	Report         string
	Citations      []Citation
	Steps          []Step
	Err            string
	ErrDetails     string
	Instructions   string
	ProviderHandle string
	MaxSources     int
}

// clone returns a copy whose slices do not alias the original.
func (r *SessionRecord) clone() SessionRecord {
	c := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.Citations != nil {
		c.Citations = make([]Citation, len(r.Citations))
		copy(c.Citations, r.Citations)
	}
	if r.Steps != nil {
		c.Steps = make([]Step, len(r.Steps))
		copy(c.Steps, r.Steps)
	}
	return c
}

// Summary is the per-session row returned by list_sessions.
type Summary struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}
