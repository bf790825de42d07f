// Package workspace implements typed create/read/move/delete operations over
// the initiatives, todos and ideas stored in a workspace directory.
//
// The Service keeps no in-memory state about entities: every call re-reads
// the disk. Mutating calls are not coordinated with each other unless the
// Service is built WithEntityLocks; two concurrent creates of the same name
// race and the last write wins.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/starford/tracker/internal/apperr"
	"github.com/starford/tracker/internal/document"
	"github.com/starford/tracker/internal/models"
	"github.com/starford/tracker/internal/naming"
	"github.com/starford/tracker/internal/storage"
)

// Service coordinates the document codec, the naming policy and storage.
type Service struct {
	store  storage.Provider
	clock  naming.Clock
	logger *slog.Logger
	locks  *storage.PathLocker
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for creation dates and session filenames.
func WithClock(c naming.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEntityLocks serializes mutating operations per entity path.
func WithEntityLocks() Option {
	return func(s *Service) { s.locks = storage.NewPathLocker() }
}

// New creates a Service over store.
func New(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  naming.SystemClock,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the absolute workspace directory.
func (s *Service) Root() string { return s.store.Root() }

// lock acquires the entity locks for paths when enabled.
func (s *Service) lock(paths ...string) func() {
	if s.locks == nil {
		return func() {}
	}
	return s.locks.Lock(paths...)
}

// abs resolves rel for the Path field of returned entities.
func (s *Service) abs(rel string) string {
	p, err := s.store.Abs(rel)
	if err != nil {
		return filepath.Join(s.store.Root(), rel)
	}
	return p
}

func (s *Service) today() string { return naming.Today(s.clock) }

// readDocument loads and parses the document at rel.
func (s *Service) readDocument(rel string) (document.Document, error) {
	raw, err := s.store.ReadFile(rel)
	if err != nil {
		return document.Document{}, err
	}
	return document.Parse(raw), nil
}

// absent converts a read failure of a single named document into
// apperr.ErrNotFound. The cause is only logged.
func (s *Service) absent(what, rel string, err error) error {
	s.logger.Debug("workspace: document unavailable",
		slog.String("kind", what),
		slog.String("path", rel),
		slog.String("error", err.Error()))
	return fmt.Errorf("%s %s: %w", what, rel, apperr.ErrNotFound)
}

// requireInitiative fails with a not-found error when the main document of
// the initiative is missing.
func (s *Service) requireInitiative(state models.State, name string) error {
	rel := naming.InitiativePath(state, name)
	if _, err := s.store.Stat(rel); err != nil {
		return fmt.Errorf("initiative %s/%s: %w", state, name, err)
	}
	return nil
}

// listDocuments returns the names of the .md files directly inside dir.
// A missing or unreadable directory yields no names.
func (s *Service) listDocuments(dir string) []string {
	entries, err := s.store.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("workspace: list failed", slog.String("dir", dir), slog.String("error", err.Error()))
		}
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !naming.IsDocument(e.Name()) || isHidden(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

func isHidden(name string) bool { return len(name) > 0 && name[0] == '.' }

// InitializeWorkspace creates the required directories if they are missing.
func (s *Service) InitializeWorkspace(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, dir := range naming.RequiredDirs() {
		if err := s.store.MkdirAll(dir); err != nil {
			return fmt.Errorf("initialize workspace: %w", err)
		}
	}
	s.logger.Info("workspace: initialized", slog.String("root", s.store.Root()))
	return nil
}

// IsValidWorkspace reports whether the top-level directories exist.
func (s *Service) IsValidWorkspace(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	for _, dir := range []string{naming.InitiativesDir, naming.TodosDir, naming.IdeasDir} {
		info, err := s.store.Stat(dir)
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// GetWorkspaceTree lists every state, the todos and the ideas concurrently.
func (s *Service) GetWorkspaceTree(ctx context.Context) (*models.WorkspaceTree, error) {
	var tree models.WorkspaceTree
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		tree.Initiatives.Active, err = s.ListInitiatives(gctx, models.StateActive)
		return err
	})
	g.Go(func() (err error) {
		tree.Initiatives.Backlog, err = s.ListInitiatives(gctx, models.StateBacklog)
		return err
	})
	g.Go(func() (err error) {
		tree.Initiatives.Completed, err = s.ListInitiatives(gctx, models.StateCompleted)
		return err
	})
	g.Go(func() (err error) {
		tree.Todos, err = s.ListTodos(gctx)
		return err
	})
	g.Go(func() (err error) {
		tree.Ideas, err = s.ListIdeas(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &tree, nil
}
