package workspace

import (
	"fmt"
	"strings"

	"github.com/starford/tracker/internal/models"
)

func bullets(b *strings.Builder, items []string, format string) {
	for _, item := range items {
		fmt.Fprintf(b, format+"\n", item)
	}
}

func initiativeBody(p *models.CreateInitiativePayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	fmt.Fprintf(&b, "## Goal\n\n%s\n\n", p.Goal)

	if p.Scope != nil {
		b.WriteString("## Scope\n\n")
		b.WriteString("### In Scope\n\n")
		bullets(&b, p.Scope.InScope, "- %s")
		b.WriteString("\n### Out of Scope\n\n")
		bullets(&b, p.Scope.OutOfScope, "- %s")
		b.WriteString("\n")
	}

	if len(p.CompletionCriteria) > 0 {
		b.WriteString("## Completion Criteria\n\n")
		bullets(&b, p.CompletionCriteria, "- [ ] %s")
		b.WriteString("\n")
	}

	b.WriteString("## Current Status\n\n*No updates yet*\n\n")
	b.WriteString("## Blockers\n\n*None*\n")
	return b.String()
}

func sessionBody(p *models.CreateSessionPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Description)

	if p.Context != "" {
		fmt.Fprintf(&b, "## Context\n\n%s\n\n", p.Context)
	}
	sections := []struct {
		heading string
		items   []string
		format  string
	}{
		{"Completed", p.Completed, "- %s"},
		{"Decisions Made", p.Decisions, "- %s"},
		{"Blockers / Open Questions", p.Blockers, "- %s"},
		{"Next Session", p.NextSteps, "- [ ] %s"},
		{"Files Changed", p.FilesChanged, "- `%s`"},
	}
	for _, sec := range sections {
		if len(sec.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", sec.heading)
		bullets(&b, sec.items, sec.format)
		b.WriteString("\n")
	}
	return b.String()
}

func decisionBody(p *models.CreateDecisionPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	fmt.Fprintf(&b, "## Context\n\n%s\n\n", p.Context)
	fmt.Fprintf(&b, "## Decision\n\n%s\n\n", p.Decision)
	fmt.Fprintf(&b, "## Rationale\n\n%s\n\n", p.Rationale)

	if len(p.Alternatives) > 0 {
		b.WriteString("## Alternatives Considered\n\n")
		for _, alt := range p.Alternatives {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", alt.Name, alt.Reason)
		}
	}

	if c := p.Consequences; c != nil {
		b.WriteString("## Consequences\n\n")
		if len(c.Positive) > 0 {
			b.WriteString("### Positive\n\n")
			bullets(&b, c.Positive, "- %s")
			b.WriteString("\n")
		}
		if len(c.Negative) > 0 {
			b.WriteString("### Negative\n\n")
			bullets(&b, c.Negative, "- %s")
			b.WriteString("\n")
		}
	}
	return b.String()
}

func todoBody(p *models.CreateTodoPayload) string {
	return fmt.Sprintf("# %s\n\n%s\n", p.Title, p.Description)
}

func ideaBody(p *models.CreateIdeaPayload, today string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", p.Title, p.Description)
	if p.ValueProposition != "" {
		fmt.Fprintf(&b, "\n## Why This Could Be Valuable\n\n%s\n", p.ValueProposition)
	}
	fmt.Fprintf(&b, "\n---\n*Captured: %s*\n", today)
	return b.String()
}
