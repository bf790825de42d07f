package models

// Priority orders todos. The zero value means "unset".
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort position of p: high < medium < low < unset.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Todo is a single todo document.
type Todo struct {
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	Frontmatter map[string]any `json:"frontmatter"`
	Content     string         `json:"content"`
}

// TodoSummary is the lightweight form returned by ListTodos.
type TodoSummary struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Created  string   `json:"created"`
	Priority Priority `json:"priority,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Idea is a single idea document.
type Idea struct {
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	Frontmatter map[string]any `json:"frontmatter"`
	Content     string         `json:"content"`
}

// IdeaSummary is the lightweight form returned by ListIdeas.
type IdeaSummary struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Title   string   `json:"title"`
	Created string   `json:"created"`
	Tags    []string `json:"tags,omitempty"`
}

// InitiativesByState groups initiative summaries by lifecycle state.
type InitiativesByState struct {
	Active    []InitiativeSummary `json:"active"`
	Backlog   []InitiativeSummary `json:"backlog"`
	Completed []InitiativeSummary `json:"completed"`
}

// WorkspaceTree is the complete overview of a workspace.
type WorkspaceTree struct {
	Initiatives InitiativesByState `json:"initiatives"`
	Todos       []TodoSummary      `json:"todos"`
	Ideas       []IdeaSummary      `json:"ideas"`
}

// WorkspaceConfig describes where the workspace lives.
type WorkspaceConfig struct {
	WorkspacePath string `json:"workspacePath"`
	ProjectRoot   string `json:"projectRoot,omitempty"`
}

// NodeType distinguishes files from directories in a FileTreeNode.
type NodeType string

const (
	NodeFile      NodeType = "file"
	NodeDirectory NodeType = "directory"
)

// FileTreeNode is one entry of a generic directory listing.
type FileTreeNode struct {
	Type     NodeType       `json:"type"`
	Name     string         `json:"name"`
	Path     string         `json:"path"`
	Children []FileTreeNode `json:"children,omitempty"`
}

// FileContent is the raw text of an ad hoc file beneath an initiative.
type FileContent struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}
