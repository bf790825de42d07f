package models

// Area classifies a changed path into one of the tracked document categories.
type Area string

const (
	AreaInitiatives Area = "initiatives"
	AreaSessions    Area = "sessions"
	AreaDecisions   Area = "decisions"
	AreaPlans       Area = "plans"
	AreaTodos       Area = "todos"
	AreaIdeas       Area = "ideas"
)

// EventType is the kind of change reported by the watcher.
type EventType string

const (
	EventAdd    EventType = "add"
	EventChange EventType = "change"
	EventRemove EventType = "remove"
)

// FileChangeEvent is emitted once per settled change to a tracked document.
type FileChangeEvent struct {
	Area         Area      `json:"area"`
	Type         EventType `json:"type"`
	Path         string    `json:"path"`         // absolute
	RelativePath string    `json:"relativePath"` // relative to the workspace root
}
