// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes tracker tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tracker/internal/models"
	"github.com/starford/tracker/internal/workspace"
)

// WorkspaceFormatURI identifies the format contract resource.
const WorkspaceFormatURI = "tracker://workspace-format"

// Server wraps the MCP server with tracker tools.
type Server struct {
	mcp *server.MCPServer
	svc *workspace.Service
}

// New creates a new MCP server with all tracker tools registered.
func New(svc *workspace.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Tracker",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	stateEnum := mcp.Enum(string(models.StateActive), string(models.StateBacklog), string(models.StateCompleted))

	s.mcp.AddTool(mcp.NewTool("workspace_overview",
		mcp.WithDescription("Summarize every initiative (grouped by state), todo and idea in the workspace."),
	), s.workspaceOverview)

	s.mcp.AddTool(mcp.NewTool("list_initiatives",
		mcp.WithDescription("List initiatives, newest first. Omit state to list all three states."),
		mcp.WithString("state", mcp.Description("Lifecycle state"), stateEnum),
	), s.listInitiatives)

	s.mcp.AddTool(mcp.NewTool("get_initiative",
		mcp.WithDescription("Read an initiative with its tracker, sessions, decisions and plans."),
		mcp.WithString("state", mcp.Required(), mcp.Description("Lifecycle state"), stateEnum),
		mcp.WithString("name", mcp.Required(), mcp.Description("Initiative directory name")),
	), s.getInitiative)

	s.mcp.AddTool(mcp.NewTool("create_initiative",
		mcp.WithDescription("Create an initiative. The name defaults to a slug of the title and the state to backlog."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Human-readable title")),
		mcp.WithString("goal", mcp.Description("What the initiative should achieve")),
		mcp.WithString("name", mcp.Description("Directory name (slug)")),
		mcp.WithString("state", mcp.Description("Initial state"), stateEnum),
		mcp.WithArray("in_scope", mcp.WithStringItems(), mcp.Description("Items in scope")),
		mcp.WithArray("out_of_scope", mcp.WithStringItems(), mcp.Description("Items out of scope")),
		mcp.WithArray("completion_criteria", mcp.WithStringItems(), mcp.Description("Checklist that marks the initiative done")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags")),
	), s.createInitiative)

	s.mcp.AddTool(mcp.NewTool("move_initiative",
		mcp.WithDescription("Move an initiative to another lifecycle state."),
		mcp.WithString("state", mcp.Required(), mcp.Description("Current state"), stateEnum),
		mcp.WithString("name", mcp.Required(), mcp.Description("Initiative directory name")),
		mcp.WithString("target_state", mcp.Required(), mcp.Description("State to move into"), stateEnum),
	), s.moveInitiative)

	s.mcp.AddTool(mcp.NewTool("log_session",
		mcp.WithDescription("Record a dated work session against an initiative."),
		mcp.WithString("initiative", mcp.Required(), mcp.Description("Initiative directory name")),
		mcp.WithString("state", mcp.Required(), mcp.Description("Initiative state"), stateEnum),
		mcp.WithString("description", mcp.Required(), mcp.Description("One-line summary, also used for the file name")),
		mcp.WithString("context", mcp.Description("Background for the session")),
		mcp.WithArray("completed", mcp.WithStringItems(), mcp.Description("Work completed")),
		mcp.WithArray("decisions", mcp.WithStringItems(), mcp.Description("Decisions made")),
		mcp.WithArray("blockers", mcp.WithStringItems(), mcp.Description("Blockers or open questions")),
		mcp.WithArray("next_steps", mcp.WithStringItems(), mcp.Description("Next session checklist")),
		mcp.WithArray("files_changed", mcp.WithStringItems(), mcp.Description("Files touched")),
		mcp.WithString("branch", mcp.Description("VCS branch")),
	), s.logSession)

	s.mcp.AddTool(mcp.NewTool("list_todos",
		mcp.WithDescription("List todos by priority, newest first within a priority."),
	), s.listTodos)

	s.mcp.AddTool(mcp.NewTool("create_todo",
		mcp.WithDescription("Create a todo."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Todo title")),
		mcp.WithString("description", mcp.Description("Details")),
		mcp.WithString("priority", mcp.Description("Priority"),
			mcp.Enum(string(models.PriorityHigh), string(models.PriorityMedium), string(models.PriorityLow))),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags")),
	), s.createTodo)

	s.mcp.AddTool(mcp.NewTool("list_ideas",
		mcp.WithDescription("List captured ideas, newest first."),
	), s.listIdeas)

	s.mcp.AddTool(mcp.NewTool("create_idea",
		mcp.WithDescription("Capture an idea."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Idea title")),
		mcp.WithString("description", mcp.Description("Details")),
		mcp.WithString("value", mcp.Description("Why this could be valuable")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags")),
	), s.createIdea)

	s.mcp.AddTool(mcp.NewTool("get_workspace_contract",
		mcp.WithDescription("Returns the workspace layout and document format contract. "+
			"Call this before editing workspace files directly."),
	), s.getWorkspaceContract)

	// Resource: workspace format contract.
	s.mcp.AddResource(
		mcp.NewResource(WorkspaceFormatURI, "Workspace Format Contract",
			mcp.WithResourceDescription("Directory layout and document format of a tracker workspace."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readWorkspaceFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func requireState(req mcp.CallToolRequest, key string) (models.State, error) {
	raw, err := req.RequireString(key)
	if err != nil {
		return "", err
	}
	return models.ParseState(raw)
}

func (s *Server) workspaceOverview(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree, err := s.svc.GetWorkspaceTree(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tree)
}

func (s *Server) listInitiatives(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	states := models.States()
	if raw := req.GetString("state", ""); raw != "" {
		state, err := models.ParseState(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		states = []models.State{state}
	}

	out := make([]models.InitiativeSummary, 0)
	for _, state := range states {
		items, err := s.svc.ListInitiatives(ctx, state)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out = append(out, items...)
	}
	return jsonResult(out)
}

func (s *Server) getInitiative(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := requireState(req, "state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	initiative, err := s.svc.GetInitiative(ctx, state, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(initiative)
}

func (s *Server) createInitiative(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := models.CreateInitiativePayload{
		Name:               req.GetString("name", ""),
		Title:              title,
		Goal:               req.GetString("goal", ""),
		State:              models.State(req.GetString("state", "")),
		CompletionCriteria: req.GetStringSlice("completion_criteria", nil),
		Tags:               req.GetStringSlice("tags", nil),
	}
	in, out := req.GetStringSlice("in_scope", nil), req.GetStringSlice("out_of_scope", nil)
	if len(in) > 0 || len(out) > 0 {
		p.Scope = &models.Scope{InScope: in, OutOfScope: out}
	}

	initiative, err := s.svc.CreateInitiative(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(initiative)
}

func (s *Server) moveInitiative(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := requireState(req, "state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := requireState(req, "target_state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	initiative, err := s.svc.MoveInitiative(ctx, state, name, models.MoveInitiativePayload{TargetState: target})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(initiative)
}

func (s *Server) logSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("initiative")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state, err := requireState(req, "state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	session, err := s.svc.CreateSession(ctx, models.CreateSessionPayload{
		InitiativeName:  name,
		InitiativeState: state,
		Description:     description,
		Context:         req.GetString("context", ""),
		Completed:       req.GetStringSlice("completed", nil),
		Decisions:       req.GetStringSlice("decisions", nil),
		Blockers:        req.GetStringSlice("blockers", nil),
		NextSteps:       req.GetStringSlice("next_steps", nil),
		FilesChanged:    req.GetStringSlice("files_changed", nil),
		Branch:          req.GetString("branch", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(session)
}

func (s *Server) listTodos(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	todos, err := s.svc.ListTodos(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(todos)
}

func (s *Server) createTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	todo, err := s.svc.CreateTodo(ctx, models.CreateTodoPayload{
		Title:       title,
		Description: req.GetString("description", ""),
		Priority:    models.Priority(req.GetString("priority", "")),
		Tags:        req.GetStringSlice("tags", nil),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(todo)
}

func (s *Server) listIdeas(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ideas, err := s.svc.ListIdeas(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ideas)
}

func (s *Server) createIdea(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	idea, err := s.svc.CreateIdea(ctx, models.CreateIdeaPayload{
		Title:            title,
		Description:      req.GetString("description", ""),
		ValueProposition: req.GetString("value", ""),
		Tags:             req.GetStringSlice("tags", nil),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(idea)
}

func (s *Server) getWorkspaceContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(WorkspaceFormatContract), nil
}

func (s *Server) readWorkspaceFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      WorkspaceFormatURI,
			MIMEType: "text/markdown",
			Text:     WorkspaceFormatContract,
		},
	}, nil
}
