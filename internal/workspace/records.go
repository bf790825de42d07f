package workspace

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/starford/tracker/internal/document"
	"github.com/starford/tracker/internal/models"
	"github.com/starford/tracker/internal/naming"
)

// byDateDesc orders two date strings newest first. Unparsable dates count
// as today.
func byDateDesc(a, b, today string) int {
	return dateOf(b, today).Compare(dateOf(a, today))
}

func dateOf(s, today string) time.Time {
	if t, ok := naming.ParseDate(s); ok {
		return t
	}
	t, _ := naming.ParseDate(today)
	return t
}

func (s *Service) readSessions(state models.State, name string) []models.Session {
	dir := naming.SessionsPath(state, name)
	today := s.today()
	sessions := make([]models.Session, 0)
	for _, file := range s.listDocuments(dir) {
		rel := filepath.Join(dir, file)
		doc, err := s.readDocument(rel)
		if err != nil {
			s.logger.Debug("workspace: skipping session", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		date := doc.Metadata.String("date")
		if date == "" {
			date, _ = naming.LeadingDate(file)
		}
		sessions = append(sessions, models.Session{
			Name:    naming.Stem(file),
			Path:    s.abs(rel),
			Date:    orDefault(date, today),
			Branch:  doc.Metadata.String("branch"),
			Content: doc.Body,
		})
	}
	slices.SortStableFunc(sessions, func(a, b models.Session) int {
		return byDateDesc(a.Date, b.Date, today)
	})
	return sessions
}

func (s *Service) readDecisions(state models.State, name string) []models.Decision {
	dir := naming.DecisionsPath(state, name)
	today := s.today()
	decisions := make([]models.Decision, 0)
	for _, file := range s.listDocuments(dir) {
		rel := filepath.Join(dir, file)
		doc, err := s.readDocument(rel)
		if err != nil {
			s.logger.Debug("workspace: skipping decision", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		decisions = append(decisions, models.Decision{
			Name:    naming.Stem(file),
			Path:    s.abs(rel),
			Date:    orDefault(doc.Metadata.String("date"), today),
			Status:  models.DecisionStatus(orDefault(doc.Metadata.String("status"), string(models.DecisionProposed))),
			Content: doc.Body,
		})
	}
	slices.SortStableFunc(decisions, func(a, b models.Decision) int {
		return byDateDesc(a.Date, b.Date, today)
	})
	return decisions
}

func (s *Service) readPlans(state models.State, name string) []models.Plan {
	dir := naming.PlansPath(state, name)
	plans := make([]models.Plan, 0)
	for _, file := range s.listDocuments(dir) {
		rel := filepath.Join(dir, file)
		doc, err := s.readDocument(rel)
		if err != nil {
			s.logger.Debug("workspace: skipping plan", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		plans = append(plans, models.Plan{
			Name:    naming.Stem(file),
			Path:    s.abs(rel),
			Content: doc.Body,
		})
	}
	slices.SortFunc(plans, func(a, b models.Plan) int { return cmp.Compare(a.Name, b.Name) })
	return plans
}

// CreateSession writes a dated session log into an existing initiative.
func (s *Service) CreateSession(ctx context.Context, p models.CreateSessionPayload) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateRef(p.InitiativeState, p.InitiativeName); err != nil {
		return nil, err
	}
	if _, err := slugFor(p.Description, ""); err != nil {
		return nil, err
	}

	defer s.lock(naming.InitiativeDir(p.InitiativeState, p.InitiativeName))()

	if err := s.requireInitiative(p.InitiativeState, p.InitiativeName); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	date := s.today()
	file := naming.SessionFileName(date, p.Description)
	rel := filepath.Join(naming.SessionsPath(p.InitiativeState, p.InitiativeName), file)

	meta := document.Metadata{"date": date}
	if p.Branch != "" {
		meta["branch"] = p.Branch
	}
	body := sessionBody(&p)
	if err := s.store.WriteFile(rel, document.Serialize(meta, body)); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("workspace: session logged",
		slog.String("initiative", p.InitiativeName), slog.String("file", file))

	return &models.Session{
		Name:    naming.Stem(file),
		Path:    s.abs(rel),
		Date:    date,
		Branch:  p.Branch,
		Content: strings.TrimSpace(body),
	}, nil
}

// CreateDecision writes a decision record into an existing initiative.
// Status defaults to proposed and date to today.
func (s *Service) CreateDecision(ctx context.Context, p models.CreateDecisionPayload) (*models.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateRef(p.InitiativeState, p.InitiativeName); err != nil {
		return nil, err
	}
	name, err := slugFor(p.Name, p.Title)
	if err != nil {
		return nil, err
	}

	defer s.lock(naming.InitiativeDir(p.InitiativeState, p.InitiativeName))()

	if err := s.requireInitiative(p.InitiativeState, p.InitiativeName); err != nil {
		return nil, fmt.Errorf("create decision: %w", err)
	}

	date := s.today()
	if p.Date != "" {
		date = naming.NormalizeDate(p.Date, s.clock)
	}
	status := p.Status
	if status == "" {
		status = models.DecisionProposed
	}
	meta := document.Metadata{
		"title":  p.Title,
		"date":   date,
		"status": string(status),
	}
	body := decisionBody(&p)
	rel := filepath.Join(naming.DecisionsPath(p.InitiativeState, p.InitiativeName), name+naming.Ext)
	if err := s.store.WriteFile(rel, document.Serialize(meta, body)); err != nil {
		return nil, fmt.Errorf("create decision: %w", err)
	}

	return &models.Decision{
		Name:    name,
		Path:    s.abs(rel),
		Date:    date,
		Status:  status,
		Content: strings.TrimSpace(body),
	}, nil
}

// CreatePlan writes p.Content verbatim as a plan of an existing initiative.
func (s *Service) CreatePlan(ctx context.Context, p models.CreatePlanPayload) (*models.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateRef(p.InitiativeState, p.InitiativeName); err != nil {
		return nil, err
	}
	name, err := slugFor(p.Name, "")
	if err != nil {
		return nil, err
	}

	defer s.lock(naming.InitiativeDir(p.InitiativeState, p.InitiativeName))()

	if err := s.requireInitiative(p.InitiativeState, p.InitiativeName); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	content := p.Content
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	rel := filepath.Join(naming.PlansPath(p.InitiativeState, p.InitiativeName), name+naming.Ext)
	if err := s.store.WriteFile(rel, []byte(content)); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	return &models.Plan{
		Name:    name,
		Path:    s.abs(rel),
		Content: document.Parse([]byte(content)).Body,
	}, nil
}
