package watcher

import (
	"path/filepath"
	"strings"

	"github.com/starford/tracker/internal/models"
	"github.com/starford/tracker/internal/naming"
)

// Classify maps a workspace-relative path to the area it belongs to.
// Paths outside the tracked trees are not classifiable.
func Classify(rel string) (models.Area, bool) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	switch parts[0] {
	case naming.InitiativesDir:
		if len(parts) >= 4 {
			switch parts[3] {
			case naming.SessionsDir:
				return models.AreaSessions, true
			case naming.DecisionsDir:
				return models.AreaDecisions, true
			case naming.PlansDir:
				return models.AreaPlans, true
			}
		}
		return models.AreaInitiatives, true
	case naming.TodosDir:
		return models.AreaTodos, true
	case naming.IdeasDir:
		return models.AreaIdeas, true
	}
	return "", false
}

// hidden reports whether any element of rel starts with a dot.
func hidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}
