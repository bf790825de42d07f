// Package models defines the domain types for the tracker workspace.
package models

import (
	"fmt"

	"github.com/starford/tracker/internal/apperr"
)

// State is the lifecycle stage of an initiative. It is encoded on disk purely
// by which state subtree the initiative directory lives in.
type State string

const (
	StateActive    State = "active"
	StateBacklog   State = "backlog"
	StateCompleted State = "completed"
)

// States returns every state in display order.
func States() []State {
	return []State{StateActive, StateBacklog, StateCompleted}
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateActive, StateBacklog, StateCompleted:
		return true
	}
	return false
}

// ParseState converts user input into a State.
func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown initiative state %q", apperr.ErrInvalidInput, raw)
	}
	return s, nil
}

// DecisionStatus is the review status carried by a decision record.
type DecisionStatus string

const (
	DecisionProposed   DecisionStatus = "proposed"
	DecisionAccepted   DecisionStatus = "accepted"
	DecisionSuperseded DecisionStatus = "superseded"
	DecisionDeprecated DecisionStatus = "deprecated"
)

// Initiative is a fully loaded initiative with all of its sub-records.
type Initiative struct {
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	State       State          `json:"state"`
	Frontmatter map[string]any `json:"frontmatter"`
	Content     string         `json:"content"`
	Tracker     string         `json:"tracker,omitempty"`
	Sessions    []Session      `json:"sessions"`
	Decisions   []Decision     `json:"decisions"`
	Plans       []Plan         `json:"plans"`
}

// InitiativeSummary is the lightweight form returned by listings.
type InitiativeSummary struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	State         State    `json:"state"`
	Title         string   `json:"title"`
	Created       string   `json:"created"`
	SessionCount  int      `json:"sessionCount"`
	LatestSession string   `json:"latestSession,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// Session is a dated work log stored under an initiative's sessions/ folder.
type Session struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Date    string `json:"date"`
	Branch  string `json:"branch,omitempty"`
	Content string `json:"content"`
}

// Decision is a decision record stored under decisions/.
type Decision struct {
	Name    string         `json:"name"`
	Path    string         `json:"path"`
	Date    string         `json:"date"`
	Status  DecisionStatus `json:"status"`
	Content string         `json:"content"`
}

// Plan is a free-form plan document stored under plans/.
type Plan struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}
