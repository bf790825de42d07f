package workspace

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/starford/tracker/internal/document"
	"github.com/starford/tracker/internal/models"
	"github.com/starford/tracker/internal/naming"
)

// entry is a flat single-document collection member: a todo or an idea.
type entry struct {
	name string
	rel  string
	doc  document.Document
}

// listEntries parses every document of a flat collection directory.
func (s *Service) listEntries(dir string) []entry {
	var out []entry
	for _, file := range s.listDocuments(dir) {
		rel := filepath.Join(dir, file)
		doc, err := s.readDocument(rel)
		if err != nil {
			s.logger.Debug("workspace: skipping entry", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		out = append(out, entry{name: naming.Stem(file), rel: rel, doc: doc})
	}
	return out
}

// ListTodos returns todos ordered by priority (high, medium, low, unset),
// then newest first.
func (s *Service) ListTodos(ctx context.Context) ([]models.TodoSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	today := s.today()
	todos := make([]models.TodoSummary, 0)
	for _, e := range s.listEntries(naming.TodosDir) {
		todos = append(todos, models.TodoSummary{
			Name:     e.name,
			Path:     s.abs(e.rel),
			Title:    orDefault(e.doc.Metadata.String("title"), e.name),
			Created:  orDefault(e.doc.Metadata.String("created"), today),
			Priority: models.Priority(e.doc.Metadata.String("priority")),
			Tags:     e.doc.Metadata.Strings("tags"),
		})
	}
	slices.SortStableFunc(todos, func(a, b models.TodoSummary) int {
		if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
			return c
		}
		return byDateDesc(a.Created, b.Created, today)
	})
	return todos, nil
}

// GetTodo loads one todo. A missing or unreadable document yields
// apperr.ErrNotFound.
func (s *Service) GetTodo(ctx context.Context, name string) (*models.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := naming.ValidateName(name); err != nil {
		return nil, err
	}
	rel := naming.TodoPath(name)
	doc, err := s.readDocument(rel)
	if err != nil {
		return nil, s.absent("todo", rel, err)
	}
	return &models.Todo{
		Name:        name,
		Path:        s.abs(rel),
		Frontmatter: doc.Metadata,
		Content:     doc.Body,
	}, nil
}

// CreateTodo writes a todo, replacing any todo of the same name.
func (s *Service) CreateTodo(ctx context.Context, p models.CreateTodoPayload) (*models.Todo, error) {
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
	rel := naming.TodoPath(name)

	defer s.lock(rel)()

	meta := document.Metadata{
		"title":   p.Title,
		"created": s.today(),
	}
	if p.Priority != "" {
		meta["priority"] = string(p.Priority)
	}
	if len(p.Tags) > 0 {
		meta["tags"] = p.Tags
	}
	if err := s.store.WriteFile(rel, document.Serialize(meta, todoBody(&p))); err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	s.logger.Info("workspace: todo created", slog.String("name", name))
	return s.GetTodo(ctx, name)
}

// DeleteTodo removes a todo. A missing todo is an error.
func (s *Service) DeleteTodo(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := naming.ValidateName(name); err != nil {
		return err
	}
	rel := naming.TodoPath(name)

	defer s.lock(rel)()

	if err := s.store.Remove(rel); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	s.logger.Info("workspace: todo deleted", slog.String("name", name))
	return nil
}

// ListIdeas returns ideas newest first.
func (s *Service) ListIdeas(ctx context.Context) ([]models.IdeaSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	today := s.today()
	ideas := make([]models.IdeaSummary, 0)
	for _, e := range s.listEntries(naming.IdeasDir) {
		ideas = append(ideas, models.IdeaSummary{
			Name:    e.name,
			Path:    s.abs(e.rel),
			Title:   orDefault(e.doc.Metadata.String("title"), e.name),
			Created: orDefault(e.doc.Metadata.String("created"), today),
			Tags:    e.doc.Metadata.Strings("tags"),
		})
	}
	slices.SortStableFunc(ideas, func(a, b models.IdeaSummary) int {
		return byDateDesc(a.Created, b.Created, today)
	})
	return ideas, nil
}

// GetIdea loads one idea. A missing or unreadable document yields
// apperr.ErrNotFound.
func (s *Service) GetIdea(ctx context.Context, name string) (*models.Idea, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := naming.ValidateName(name); err != nil {
		return nil, err
	}
	rel := naming.IdeaPath(name)
	doc, err := s.readDocument(rel)
	if err != nil {
		return nil, s.absent("idea", rel, err)
	}
	return &models.Idea{
		Name:        name,
		Path:        s.abs(rel),
		Frontmatter: doc.Metadata,
		Content:     doc.Body,
	}, nil
}

// CreateIdea writes an idea, replacing any idea of the same name.
func (s *Service) CreateIdea(ctx context.Context, p models.CreateIdeaPayload) (*models.Idea, error) {
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
	rel := naming.IdeaPath(name)

	defer s.lock(rel)()

	today := s.today()
	meta := document.Metadata{
		"title":   p.Title,
		"created": today,
	}
	if len(p.Tags) > 0 {
		meta["tags"] = p.Tags
	}
	if err := s.store.WriteFile(rel, document.Serialize(meta, ideaBody(&p, today))); err != nil {
		return nil, fmt.Errorf("create idea: %w", err)
	}
	s.logger.Info("workspace: idea captured", slog.String("name", name))
	return s.GetIdea(ctx, name)
}

// DeleteIdea removes an idea. A missing idea is an error.
func (s *Service) DeleteIdea(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := naming.ValidateName(name); err != nil {
		return err
	}
	rel := naming.IdeaPath(name)

	defer s.lock(rel)()

	if err := s.store.Remove(rel); err != nil {
		return fmt.Errorf("delete idea: %w", err)
	}
	s.logger.Info("workspace: idea deleted", slog.String("name", name))
	return nil
}

// PromoteIdeaToInitiative creates an initiative from p and then deletes the
// idea. The two steps are not atomic: when the deletion fails the created
// initiative is returned together with the error and the idea remains.
func (s *Service) PromoteIdeaToInitiative(ctx context.Context, ideaName string, p models.CreateInitiativePayload) (*models.Initiative, error) {
	if err := naming.ValidateName(ideaName); err != nil {
		return nil, err
	}
	created, err := s.CreateInitiative(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("promote idea %s: %w", ideaName, err)
	}
	if err := s.DeleteIdea(ctx, ideaName); err != nil {
		s.logger.Warn("workspace: idea kept after promotion",
			slog.String("idea", ideaName), slog.String("error", err.Error()))
		return created, fmt.Errorf("promote idea %s: %w", ideaName, err)
	}
	return created, nil
}
