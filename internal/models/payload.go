package models

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tracker/internal/apperr"
)

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
}

var (
	stateRule    = validation.In(StateActive, StateBacklog, StateCompleted)
	priorityRule = validation.In(PriorityHigh, PriorityMedium, PriorityLow)
	decisionRule = validation.In(DecisionProposed, DecisionAccepted, DecisionSuperseded, DecisionDeprecated)
)

// Scope lists what an initiative includes and excludes.
type Scope struct {
	InScope    []string `json:"inScope"`
	OutOfScope []string `json:"outOfScope"`
}

// CreateInitiativePayload is the input of CreateInitiative. Name falls back
// to Title when empty; State defaults to backlog.
type CreateInitiativePayload struct {
	Name               string   `json:"name"`
	Title              string   `json:"title"`
	Goal               string   `json:"goal"`
	Scope              *Scope   `json:"scope,omitempty"`
	CompletionCriteria []string `json:"completionCriteria,omitempty"`
	State              State    `json:"state,omitempty"`
	Tags               []string `json:"tags,omitempty"`
}

// Validate validates the payload.
func (p *CreateInitiativePayload) Validate() error {
	return invalid(validation.ValidateStruct(p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.State, stateRule),
	))
}

// UpdateInitiativePayload changes the title, body or tags of an initiative.
// Nil fields are left untouched.
type UpdateInitiativePayload struct {
	Title   *string  `json:"title,omitempty"`
	Content *string  `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Validate validates the payload.
func (p *UpdateInitiativePayload) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return invalid(fmt.Errorf("title: cannot be blank"))
	}
	return nil
}

// MoveInitiativePayload names the state an initiative moves into.
type MoveInitiativePayload struct {
	TargetState State `json:"targetState"`
}

// Validate validates the payload.
func (p *MoveInitiativePayload) Validate() error {
	return invalid(validation.ValidateStruct(p,
		validation.Field(&p.TargetState, validation.Required, stateRule),
	))
}

// CreateSessionPayload is the input of CreateSession.
type CreateSessionPayload struct {
	InitiativeName  string   `json:"initiativeName"`
	InitiativeState State    `json:"initiativeState"`
	Description     string   `json:"description"`
	Context         string   `json:"context,omitempty"`
	Completed       []string `json:"completed,omitempty"`
	Decisions       []string `json:"decisions,omitempty"`
	Blockers        []string `json:"blockers,omitempty"`
	NextSteps       []string `json:"nextSteps,omitempty"`
	FilesChanged    []string `json:"filesChanged,omitempty"`
	Branch          string   `json:"branch,omitempty"`
}

// Validate validates the payload.
func (p *CreateSessionPayload) Validate() error {
	return invalid(validation.ValidateStruct(p,
		validation.Field(&p.InitiativeName, validation.Required),
		validation.Field(&p.InitiativeState, validation.Required, stateRule),
		validation.Field(&p.Description, validation.Required),
	))
}

// Alternative is an option that was considered and rejected.
type Alternative struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Consequences lists the expected effects of a decision.
type Consequences struct {
	Positive []string `json:"positive,omitempty"`
	Negative []string `json:"negative,omitempty"`
}

// CreateDecisionPayload appends a decision record to an initiative.
type CreateDecisionPayload struct {
	InitiativeName  string         `json:"initiativeName"`
	InitiativeState State          `json:"initiativeState"`
	Name            string         `json:"name,omitempty"`
	Title           string         `json:"title"`
	Date            string         `json:"date,omitempty"`
	Status          DecisionStatus `json:"status,omitempty"`
	Context         string         `json:"context"`
	Decision        string         `json:"decision"`
	Rationale       string         `json:"rationale"`
	Alternatives    []Alternative  `json:"alternatives,omitempty"`
	Consequences    *Consequences  `json:"consequences,omitempty"`
}

// Validate validates the payload.
func (p *CreateDecisionPayload) Validate() error {
	return invalid(validation.ValidateStruct(p,
		validation.Field(&p.InitiativeName, validation.Required),
		validation.Field(&p.InitiativeState, validation.Required, stateRule),
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Status, decisionRule),
	))
}

// CreatePlanPayload appends a plan document to an initiative.
type CreatePlanPayload struct {
	InitiativeName  string `json:"initiativeName"`
	InitiativeState State  `json:"initiativeState"`
	Name            string `json:"name"`
	Content         string `json:"content"`
}

// Validate validates the payload.
func (p *CreatePlanPayload) Validate() error {
	return invalid(validation.ValidateStruct(p,
		validation.Field(&p.InitiativeName, validation.Required),
		validation.Field(&p.InitiativeState, validation.Required, stateRule),
		validation.Field(&p.Name, validation.Required),
	))
}

// CreateTodoPayload is the input of CreateTodo.
type CreateTodoPayload struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Validate validates the payload.
func (p *CreateTodoPayload) Validate() error {
	return invalid(validation.ValidateStruct(p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Priority, priorityRule),
	))
}

// CreateIdeaPayload is the input of CreateIdea.
type CreateIdeaPayload struct {
	Name             string   `json:"name"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ValueProposition string   `json:"valueProposition,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

// Validate validates the payload.
func (p *CreateIdeaPayload) Validate() error {
	return invalid(validation.ValidateStruct(p,
		validation.Field(&p.Title, validation.Required),
	))
}
