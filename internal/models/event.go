package models

import "time"

// EventKind enumerates the progress notification types streamed to clients.
type EventKind string

const (
	EventAgentStart    EventKind = "agent_start"
	EventAgentProgress EventKind = "agent_progress"
	EventAgentComplete EventKind = "agent_complete"
	EventToolCall      EventKind = "tool_call"
	EventSearchQuery   EventKind = "search_query"
	EventDataFetch     EventKind = "data_fetch"
	EventAnalysis      EventKind = "analysis"
	EventThinking      EventKind = "thinking"
	EventError         EventKind = "error"
	EventInfo          EventKind = "info"
	EventSuccess       EventKind = "success"
	EventWarning       EventKind = "warning"
)

// LogEvent is a single structured progress notification for one request.
// Immutable once constructed; ordering is the publish order within a
// request, nothing is guaranteed across requests.
type LogEvent struct {
	Kind      EventKind      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message"`
	Agent     string         `json:"agent,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewLogEvent stamps an event with the current time.
func NewLogEvent(kind EventKind, message string) LogEvent {
	return LogEvent{
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Message:   message,
	}
}

// Terminal reports whether the event ends its request's stream: the final
// completion notice or a request-level failure. Per-ticker errors are not
// terminal, sibling analyses keep streaming.
func (e LogEvent) Terminal() bool {
	if e.Details == nil {
		return false
	}
	final, ok := e.Details["final"].(bool)
	return ok && final
}
