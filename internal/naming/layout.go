package naming

import (
	"path/filepath"
	"strings"

	"github.com/starford/tracker/internal/models"
)

// Workspace directory and file names.
const (
	InitiativesDir = "initiatives"
	TodosDir       = "todos"
	IdeasDir       = "ideas"

	InitiativeFile = "INITIATIVE.md"
	TrackerFile    = "TRACKER.md"
	SessionsDir    = "sessions"
	DecisionsDir   = "decisions"
	PlansDir       = "plans"

	Ext = ".md"
)

// All paths below are relative to the workspace root.

// StateDir returns the subtree holding initiatives in state s.
func StateDir(s models.State) string {
	return filepath.Join(InitiativesDir, string(s))
}

// StateOf reports which state subtree rel lies in.
func StateOf(rel string) (models.State, bool) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(rel)), "/")
	if len(parts) < 2 || parts[0] != InitiativesDir {
		return "", false
	}
	s := models.State(parts[1])
	return s, s.Valid()
}

// RequiredDirs lists the directories every workspace must contain.
func RequiredDirs() []string {
	dirs := make([]string, 0, 5)
	for _, s := range models.States() {
		dirs = append(dirs, StateDir(s))
	}
	return append(dirs, TodosDir, IdeasDir)
}

// InitiativeDir is the directory owning an initiative.
func InitiativeDir(s models.State, name string) string {
	return filepath.Join(StateDir(s), name)
}

// InitiativePath is the main document of an initiative.
func InitiativePath(s models.State, name string) string {
	return filepath.Join(InitiativeDir(s, name), InitiativeFile)
}

// TrackerPath is the optional tracker document of an initiative.
func TrackerPath(s models.State, name string) string {
	return filepath.Join(InitiativeDir(s, name), TrackerFile)
}

// SessionsPath is the sessions folder of an initiative.
func SessionsPath(s models.State, name string) string {
	return filepath.Join(InitiativeDir(s, name), SessionsDir)
}

// DecisionsPath is the decisions folder of an initiative.
func DecisionsPath(s models.State, name string) string {
	return filepath.Join(InitiativeDir(s, name), DecisionsDir)
}

// PlansPath is the plans folder of an initiative.
func PlansPath(s models.State, name string) string {
	return filepath.Join(InitiativeDir(s, name), PlansDir)
}

// SessionFileName is "{date}-{slug}.md".
func SessionFileName(date, description string) string {
	return date + "-" + Slugify(description) + Ext
}

// TodoPath is the document of a todo.
func TodoPath(name string) string {
	return filepath.Join(TodosDir, name+Ext)
}

// IdeaPath is the document of an idea.
func IdeaPath(name string) string {
	return filepath.Join(IdeasDir, name+Ext)
}

// IsDocument reports whether name carries the document extension.
func IsDocument(name string) bool {
	return strings.HasSuffix(name, Ext)
}

// Stem strips the document extension.
func Stem(name string) string {
	return strings.TrimSuffix(name, Ext)
}
