package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tracker/internal/checksum"
	"github.com/starford/tracker/internal/models"
	"github.com/starford/tracker/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	svc *workspace.Service
	cfg models.WorkspaceConfig
}

// NewHandler creates a new Handler.
func NewHandler(svc *workspace.Service, cfg models.WorkspaceConfig) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

// initiativeRef extracts the state and name path parameters.
func initiativeRef(r *http.Request) (models.State, string, error) {
	state, err := models.ParseState(chi.URLParam(r, "state"))
	if err != nil {
		return "", "", err
	}
	return state, chi.URLParam(r, "name"), nil
}

// WorkspaceTree handles GET /api/workspace/tree.
//
//	@Summary	Get the full workspace overview
//	@Tags		workspace
//	@Produce	json
//	@Success	200	{object}	models.WorkspaceTree
//	@Router		/workspace/tree [get]
func (h *Handler) WorkspaceTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.svc.GetWorkspaceTree(r.Context())
	if err != nil {
		writeError(w, r, "workspace tree", err)
		return
	}
	writeData(w, http.StatusOK, tree)
}

// WorkspaceConfig handles GET /api/workspace/config.
func (h *Handler) WorkspaceConfig(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, h.cfg)
}

// InitializeWorkspace handles POST /api/workspace/init.
func (h *Handler) InitializeWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.InitializeWorkspace(r.Context()); err != nil {
		writeError(w, r, "initialize workspace", err)
		return
	}
	writeData(w, http.StatusOK, h.cfg)
}

// ListInitiatives handles GET /api/initiatives.
//
//	@Summary	List initiatives, grouped by state unless one is given
//	@Tags		initiatives
//	@Produce	json
//	@Param		state	query		string	false	"Lifecycle state"	Enums(active, backlog, completed)
//	@Success	200		{object}	InitiativesByState
//	@Failure	400		{object}	envelope
//	@Router		/initiatives [get]
func (h *Handler) ListInitiatives(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("state"); raw != "" {
		state, err := models.ParseState(raw)
		if err != nil {
			writeError(w, r, "list initiatives", err)
			return
		}
		items, err := h.svc.ListInitiatives(r.Context(), state)
		if err != nil {
			writeError(w, r, "list initiatives", err)
			return
		}
		writeData(w, http.StatusOK, items)
		return
	}

	var grouped models.InitiativesByState
	for _, state := range models.States() {
		items, err := h.svc.ListInitiatives(r.Context(), state)
		if err != nil {
			writeError(w, r, "list initiatives", err)
			return
		}
		switch state {
		case models.StateActive:
			grouped.Active = items
		case models.StateBacklog:
			grouped.Backlog = items
		case models.StateCompleted:
			grouped.Completed = items
		}
	}
	writeData(w, http.StatusOK, grouped)
}

// GetInitiative handles GET /api/initiatives/{state}/{name}.
//
//	@Summary	Get an initiative with its sessions, decisions and plans
//	@Tags		initiatives
//	@Produce	json
//	@Param		state	path		string	true	"Lifecycle state"
//	@Param		name	path		string	true	"Initiative name"
//	@Success	200		{object}	InitiativeDetail
//	@Failure	404		{object}	envelope
//	@Router		/initiatives/{state}/{name} [get]
func (h *Handler) GetInitiative(w http.ResponseWriter, r *http.Request) {
	state, name, err := initiativeRef(r)
	if err != nil {
		writeError(w, r, "get initiative", err)
		return
	}
	initiative, err := h.svc.GetInitiative(r.Context(), state, name)
	if err != nil {
		writeError(w, r, "get initiative", err)
		return
	}
	writeData(w, http.StatusOK, initiative)
}

// CreateInitiative handles POST /api/initiatives.
//
//	@Summary	Create an initiative
//	@Tags		initiatives
//	@Accept		json
//	@Produce	json
//	@Param		body	body		models.CreateInitiativePayload	true	"Initiative to create"
//	@Success	201		{object}	InitiativeDetail
//	@Failure	400		{object}	envelope
//	@Router		/initiatives [post]
func (h *Handler) CreateInitiative(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInitiativePayload
	if !decodeJSON(w, r, &req) {
		return
	}
	initiative, err := h.svc.CreateInitiative(r.Context(), req)
	if err != nil {
		writeError(w, r, "create initiative", err)
		return
	}
	writeData(w, http.StatusCreated, initiative)
}

// UpdateInitiative handles PATCH /api/initiatives/{state}/{name}.
func (h *Handler) UpdateInitiative(w http.ResponseWriter, r *http.Request) {
	state, name, err := initiativeRef(r)
	if err != nil {
		writeError(w, r, "update initiative", err)
		return
	}
	var req models.UpdateInitiativePayload
	if !decodeJSON(w, r, &req) {
		return
	}
	initiative, err := h.svc.UpdateInitiative(r.Context(), state, name, req)
	if err != nil {
		writeError(w, r, "update initiative", err)
		return
	}
	writeData(w, http.StatusOK, initiative)
}

// MoveInitiative handles POST /api/initiatives/{state}/{name}/move.
//
//	@Summary	Move an initiative to another lifecycle state
//	@Tags		initiatives
//	@Accept		json
//	@Produce	json
//	@Param		body	body		models.MoveInitiativePayload	true	"Target state"
//	@Success	200		{object}	InitiativeDetail
//	@Failure	404		{object}	envelope
//	@Failure	409		{object}	envelope
//	@Router		/initiatives/{state}/{name}/move [post]
func (h *Handler) MoveInitiative(w http.ResponseWriter, r *http.Request) {
	state, name, err := initiativeRef(r)
	if err != nil {
		writeError(w, r, "move initiative", err)
		return
	}
	var req models.MoveInitiativePayload
	if !decodeJSON(w, r, &req) {
		return
	}
	initiative, err := h.svc.MoveInitiative(r.Context(), state, name, req)
	if err != nil {
		writeError(w, r, "move initiative", err)
		return
	}
	writeData(w, http.StatusOK, initiative)
}

// DeleteInitiative handles DELETE /api/initiatives/{state}/{name}.
func (h *Handler) DeleteInitiative(w http.ResponseWriter, r *http.Request) {
	state, name, err := initiativeRef(r)
	if err != nil {
		writeError(w, r, "delete initiative", err)
		return
	}
	if err := h.svc.DeleteInitiative(r.Context(), state, name); err != nil {
		writeError(w, r, "delete initiative", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// InitiativeFiles handles GET /api/initiatives/{state}/{name}/files.
func (h *Handler) InitiativeFiles(w http.ResponseWriter, r *http.Request) {
	state, name, err := initiativeRef(r)
	if err != nil {
		writeError(w, r, "initiative files", err)
		return
	}
	nodes, err := h.svc.GetInitiativeFileTree(r.Context(), state, name)
	if err != nil {
		writeError(w, r, "initiative files", err)
		return
	}
	writeData(w, http.StatusOK, nodes)
}

// InitiativeFile handles GET /api/initiatives/{state}/{name}/file?path=.
// The response carries an ETag of the raw content and honours If-None-Match.
//
//	@Summary	Read one file inside an initiative directory
//	@Tags		initiatives
//	@Produce	json
//	@Param		path	query		string	true	"Path relative to the initiative directory"
//	@Success	200		{object}	FileContent
//	@Success	304		"Not modified"
//	@Failure	404		{object}	envelope
//	@Router		/initiatives/{state}/{name}/file [get]
func (h *Handler) InitiativeFile(w http.ResponseWriter, r *http.Request) {
	state, name, err := initiativeRef(r)
	if err != nil {
		writeError(w, r, "initiative file", err)
		return
	}
	file, err := h.svc.GetInitiativeFile(r.Context(), state, name, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, "initiative file", err)
		return
	}

	etag := checksum.ETag(file.Content)
	w.Header().Set("ETag", etag)
	if checksum.Match(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeData(w, http.StatusOK, file)
}

// WriteTracker handles PUT /api/initiatives/{state}/{name}/tracker.
func (h *Handler) WriteTracker(w http.ResponseWriter, r *http.Request) {
	state, name, err := initiativeRef(r)
	if err != nil {
		writeError(w, r, "write tracker", err)
		return
	}
	var req WriteTrackerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.WriteTracker(r.Context(), state, name, req.Content); err != nil {
		writeError(w, r, "write tracker", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// CreateDecision handles POST /api/initiatives/{state}/{name}/decisions.
func (h *Handler) CreateDecision(w http.ResponseWriter, r *http.Request) {
	state, name, err := initiativeRef(r)
	if err != nil {
		writeError(w, r, "create decision", err)
		return
	}
	var req models.CreateDecisionPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	req.InitiativeState, req.InitiativeName = state, name
	decision, err := h.svc.CreateDecision(r.Context(), req)
	if err != nil {
		writeError(w, r, "create decision", err)
		return
	}
	writeData(w, http.StatusCreated, decision)
}

// CreatePlan handles POST /api/initiatives/{state}/{name}/plans.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	state, name, err := initiativeRef(r)
	if err != nil {
		writeError(w, r, "create plan", err)
		return
	}
	var req models.CreatePlanPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	req.InitiativeState, req.InitiativeName = state, name
	plan, err := h.svc.CreatePlan(r.Context(), req)
	if err != nil {
		writeError(w, r, "create plan", err)
		return
	}
	writeData(w, http.StatusCreated, plan)
}

// CreateSession handles POST /api/sessions.
//
//	@Summary	Log a work session against an initiative
//	@Tags		sessions
//	@Accept		json
//	@Produce	json
//	@Param		body	body		models.CreateSessionPayload	true	"Session to log"
//	@Success	201		{object}	SessionDetail
//	@Failure	400		{object}	envelope
//	@Failure	404		{object}	envelope
//	@Router		/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.svc.CreateSession(r.Context(), req)
	if err != nil {
		writeError(w, r, "create session", err)
		return
	}
	writeData(w, http.StatusCreated, session)
}
