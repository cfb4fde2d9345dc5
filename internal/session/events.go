// Package session provides an append-only NDJSON audit log of tool activity
// plus a small viewer for inspecting past logs. The log is an audit trail
// only; the in-memory registry stays the single source of truth for
// get_result and is never rebuilt from these files.
package session

import "time"

// EventType identifies the kind of audit event.
type EventType string

const (
	EventServerStart       EventType = "server_start"
	EventServerStop        EventType = "server_stop"
	EventResearchStarted   EventType = "research_started"
	EventResultFetched     EventType = "result_fetched"
	EventResearchCompleted EventType = "research_completed"
	EventResearchFailed    EventType = "research_failed"
	EventConnectionTested  EventType = "connection_tested"
)

// Event is a single timestamped entry in an audit log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// ServerStartData returns event data for server startup.
func ServerStartData(provider, model string) map[string]any {
	return map[string]any{
		"provider": provider,
		"model":    model,
	}
}

// ServerStopData returns event data for server shutdown.
func ServerStopData(sessions int) map[string]any {
	return map[string]any{
		"sessions": sessions,
	}
}

// ResearchStartedData returns event data for a new research session.
func ResearchStartedData(sessionID, query, model, status string) map[string]any {
	return map[string]any{
		"session_id": sessionID,
		"query":      query,
		"model":      model,
		"status":     status,
	}
}

// ResultFetchedData returns event data for one poll of a session.
func ResultFetchedData(sessionID, status string) map[string]any {
	return map[string]any{
		"session_id": sessionID,
		"status":     status,
	}
}

// ResearchCompletedData returns event data for a session reaching completed.
func ResearchCompletedData(sessionID string, citations, reportChars int, durationMS int64) map[string]any {
	return map[string]any{
		"session_id":   sessionID,
		"citations":    citations,
		"report_chars": reportChars,
		"duration_ms":  durationMS,
	}
}

// ResearchFailedData returns event data for a session reaching failed.
func ResearchFailedData(sessionID, message string) map[string]any {
	return map[string]any{
		"session_id": sessionID,
		"message":    message,
	}
}

// ConnectionTestedData returns event data for a connectivity check.
func ConnectionTestedData(connection string, modelCount int) map[string]any {
	return map[string]any{
		"connection":  connection,
		"model_count": modelCount,
	}
}
