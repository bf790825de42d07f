package api

import "github.com/starford/tracker/internal/models"

// WriteTrackerRequest is the request body for replacing a tracker body.
type WriteTrackerRequest struct {
	Content string `json:"content" example:"# Tracker\n- [x] scaffolding"`
}

// Response aliases of the domain types for swag.
type (
	InitiativeDetail   = models.Initiative
	InitiativeSummary  = models.InitiativeSummary
	InitiativesByState = models.InitiativesByState
	SessionDetail      = models.Session
	DecisionDetail     = models.Decision
	PlanDetail         = models.Plan
	TodoDetail         = models.Todo
	IdeaDetail         = models.Idea
	FileContent        = models.FileContent
)
