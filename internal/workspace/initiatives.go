package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/tracker/internal/apperr"
	"github.com/starford/tracker/internal/document"
	"github.com/starford/tracker/internal/models"
	"github.com/starford/tracker/internal/naming"
	"github.com/starford/tracker/internal/tree"
)

// ListInitiatives returns the initiatives in state, most recently created
// first. Initiatives whose main document cannot be read are skipped. The
// only errors are an unknown state and a cancelled context.
func (s *Service) ListInitiatives(ctx context.Context, state models.State) ([]models.InitiativeSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !state.Valid() {
		return nil, fmt.Errorf("%w: unknown initiative state %q", apperr.ErrInvalidInput, state)
	}

	summaries := make([]models.InitiativeSummary, 0)
	entries, err := s.store.ReadDir(naming.StateDir(state))
	if err != nil {
		return summaries, nil
	}
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		sum, ok := s.initiativeSummary(state, e.Name())
		if ok {
			summaries = append(summaries, sum)
		}
	}

	today := s.today()
	slices.SortStableFunc(summaries, func(a, b models.InitiativeSummary) int {
		return byDateDesc(a.Created, b.Created, today)
	})
	return summaries, nil
}

func (s *Service) initiativeSummary(state models.State, name string) (models.InitiativeSummary, bool) {
	rel := naming.InitiativePath(state, name)
	doc, err := s.readDocument(rel)
	if err != nil {
		s.logger.Debug("workspace: skipping initiative",
			slog.String("path", rel), slog.String("error", err.Error()))
		return models.InitiativeSummary{}, false
	}

	sessions := s.listDocuments(naming.SessionsPath(state, name))
	sum := models.InitiativeSummary{
		Name:         name,
		Path:         s.abs(naming.InitiativeDir(state, name)),
		State:        state,
		Title:        orDefault(doc.Metadata.String("title"), name),
		Created:      orDefault(doc.Metadata.String("created"), s.today()),
		SessionCount: len(sessions),
		Tags:         doc.Metadata.Strings("tags"),
	}
	for _, session := range sessions {
		if d, ok := naming.LeadingDate(session); ok && d > sum.LatestSession {
			sum.LatestSession = d
		}
	}
	return sum, true
}

// GetInitiative loads an initiative with its tracker, sessions, decisions
// and plans. A missing or unreadable main document yields apperr.ErrNotFound.
func (s *Service) GetInitiative(ctx context.Context, state models.State, name string) (*models.Initiative, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRef(state, name); err != nil {
		return nil, err
	}

	rel := naming.InitiativePath(state, name)
	doc, err := s.readDocument(rel)
	if err != nil {
		return nil, s.absent("initiative", rel, err)
	}

	out := &models.Initiative{
		Name:        name,
		Path:        s.abs(naming.InitiativeDir(state, name)),
		State:       state,
		Frontmatter: doc.Metadata,
		Content:     doc.Body,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if tracker, err := s.readDocument(naming.TrackerPath(state, name)); err == nil {
			out.Tracker = tracker.Body
		}
		return gctx.Err()
	})
	g.Go(func() error {
		out.Sessions = s.readSessions(state, name)
		return gctx.Err()
	})
	g.Go(func() error {
		out.Decisions = s.readDecisions(state, name)
		return gctx.Err()
	})
	g.Go(func() error {
		out.Plans = s.readPlans(state, name)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInitiative writes a new initiative with an empty sessions folder.
// An existing initiative of the same name and state is overwritten.
func (s *Service) CreateInitiative(ctx context.Context, p models.CreateInitiativePayload) (*models.Initiative, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	name, err := slugFor(p.Name, p.Title)
	if err != nil {
		return nil, err
	}
	state := p.State
	if state == "" {
		state = models.StateBacklog
	}

	defer s.lock(naming.InitiativeDir(state, name))()

	if err := s.store.MkdirAll(naming.SessionsPath(state, name)); err != nil {
		return nil, fmt.Errorf("create initiative: %w", err)
	}
	meta := document.Metadata{
		"title":   p.Title,
		"created": s.today(),
		"status":  string(state),
	}
	if len(p.Tags) > 0 {
		meta["tags"] = p.Tags
	}
	rel := naming.InitiativePath(state, name)
	if err := s.store.WriteFile(rel, document.Serialize(meta, initiativeBody(&p))); err != nil {
		return nil, fmt.Errorf("create initiative: %w", err)
	}
	s.logger.Info("workspace: initiative created",
		slog.String("name", name), slog.String("state", string(state)))

	return s.GetInitiative(ctx, state, name)
}

// UpdateInitiative rewrites the title, tags or body of an initiative,
// preserving every other metadata field.
func (s *Service) UpdateInitiative(ctx context.Context, state models.State, name string, p models.UpdateInitiativePayload) (*models.Initiative, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRef(state, name); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	defer s.lock(naming.InitiativeDir(state, name))()

	rel := naming.InitiativePath(state, name)
	doc, err := s.readDocument(rel)
	if err != nil {
		return nil, fmt.Errorf("update initiative: %w", err)
	}
	meta := doc.Metadata.Clone()
	body := doc.Body
	if p.Title != nil {
		meta["title"] = *p.Title
	}
	if p.Tags != nil {
		meta["tags"] = p.Tags
	}
	if p.Content != nil {
		body = *p.Content
	}
	if err := s.store.WriteFile(rel, document.Serialize(meta, body)); err != nil {
		return nil, fmt.Errorf("update initiative: %w", err)
	}
	return s.GetInitiative(ctx, state, name)
}

// MoveInitiative relocates an initiative into p.TargetState and rewrites its
// status field. An initiative of the same name already in the target state
// fails with apperr.ErrConflict; moving into the current state only rewrites
// the status field.
func (s *Service) MoveInitiative(ctx context.Context, from models.State, name string, p models.MoveInitiativePayload) (*models.Initiative, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRef(from, name); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	to := p.TargetState
	src, dst := naming.InitiativeDir(from, name), naming.InitiativeDir(to, name)

	defer s.lock(src, dst)()

	if from != to {
		if err := s.store.Rename(src, dst); err != nil {
			return nil, fmt.Errorf("move initiative: %w", err)
		}
	}

	rel := naming.InitiativePath(to, name)
	raw, err := s.store.ReadFile(rel)
	if err != nil {
		return nil, fmt.Errorf("move initiative: %w", err)
	}
	updated := document.MergeMetadata(raw, document.Metadata{"status": string(to)})
	if err := s.store.WriteFile(rel, updated); err != nil {
		return nil, fmt.Errorf("move initiative: %w", err)
	}
	s.logger.Info("workspace: initiative moved",
		slog.String("name", name), slog.String("from", string(from)), slog.String("to", string(to)))

	return s.GetInitiative(ctx, to, name)
}

// DeleteInitiative removes the initiative directory recursively.
func (s *Service) DeleteInitiative(ctx context.Context, state models.State, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRef(state, name); err != nil {
		return err
	}
	dir := naming.InitiativeDir(state, name)

	defer s.lock(dir)()

	if err := s.store.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete initiative: %w", err)
	}
	s.logger.Info("workspace: initiative deleted",
		slog.String("name", name), slog.String("state", string(state)))
	return nil
}

// WriteTracker replaces the body of the initiative's tracker document,
// creating it when absent. Existing tracker metadata is kept.
func (s *Service) WriteTracker(ctx context.Context, state models.State, name, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRef(state, name); err != nil {
		return err
	}

	defer s.lock(naming.InitiativeDir(state, name))()

	if err := s.requireInitiative(state, name); err != nil {
		return fmt.Errorf("write tracker: %w", err)
	}
	rel := naming.TrackerPath(state, name)
	meta := document.Metadata{"updated": s.today()}
	if existing, err := s.readDocument(rel); err == nil {
		meta = existing.Metadata.Clone()
		meta["updated"] = s.today()
	}
	if err := s.store.WriteFile(rel, document.Serialize(meta, body)); err != nil {
		return fmt.Errorf("write tracker: %w", err)
	}
	return nil
}

// GetInitiativeFileTree lists everything beneath the initiative directory.
// Node paths are relative to that directory.
func (s *Service) GetInitiativeFileTree(ctx context.Context, state models.State, name string) ([]models.FileTreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRef(state, name); err != nil {
		return nil, err
	}
	nodes, err := tree.Build(s.store, naming.InitiativeDir(state, name))
	if err != nil {
		return nil, fmt.Errorf("initiative files: %w", err)
	}
	return nodes, nil
}

// GetInitiativeFile reads the raw text of a file beneath the initiative
// directory. Paths leaving the directory are reported as not found.
func (s *Service) GetInitiativeFile(ctx context.Context, state models.State, name, relPath string) (*models.FileContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRef(state, name); err != nil {
		return nil, err
	}
	dir := naming.InitiativeDir(state, name)
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if relPath == "" || filepath.IsAbs(cleaned) || cleaned == "." ||
		cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("initiative file %q: %w", relPath, apperr.ErrNotFound)
	}

	rel := filepath.Join(dir, cleaned)
	raw, err := s.store.ReadFile(rel)
	if err != nil {
		return nil, s.absent("initiative file", rel, err)
	}
	return &models.FileContent{
		Name:    filepath.Base(cleaned),
		Path:    filepath.ToSlash(cleaned),
		Content: string(raw),
	}, nil
}

func validateRef(state models.State, name string) error {
	if !state.Valid() {
		return fmt.Errorf("%w: unknown initiative state %q", apperr.ErrInvalidInput, state)
	}
	return naming.ValidateName(name)
}

// slugFor derives an identifier from name, or from title when name is empty.
func slugFor(name, title string) (string, error) {
	src := name
	if strings.TrimSpace(src) == "" {
		src = title
	}
	slug := naming.Slugify(src)
	if slug == "" {
		return "", fmt.Errorf("%w: %q does not produce a usable name", apperr.ErrInvalidInput, src)
	}
	return slug, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
