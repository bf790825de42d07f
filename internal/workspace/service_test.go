package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/tracker/internal/apperr"
	"github.com/starford/tracker/internal/models"
	"github.com/starford/tracker/internal/testutil"
)

func newService(t *testing.T, opts ...Option) (*Service, string, *testutil.Clock) {
	t.Helper()
	root, store := testutil.Workspace(t)
	clock := testutil.FixedClock(t, "2024-03-09")
	opts = append([]Option{WithClock(clock), WithLogger(testutil.Logger())}, opts...)
	return New(store, opts...), root, clock
}

func exists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

func TestCreateInitiative_DefaultsToBacklog(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()

	got, err := svc.CreateInitiative(ctx, models.CreateInitiativePayload{
		Name:  "My Plan",
		Title: "My Plan",
		Goal:  "G",
	})
	if err != nil {
		t.Fatalf("CreateInitiative: %v", err)
	}
	if got.Name != "my-plan" || got.State != models.StateBacklog {
		t.Errorf("name/state = %q/%q", got.Name, got.State)
	}
	if !exists(root, "initiatives/backlog/my-plan/INITIATIVE.md") {
		t.Fatal("INITIATIVE.md not written at the backlog path")
	}
	if !exists(root, "initiatives/backlog/my-plan/sessions") {
		t.Error("sessions directory not created")
	}
	wantMeta := map[string]any{"title": "My Plan", "created": "2024-03-09", "status": "backlog"}
	if diff := cmp.Diff(wantMeta, got.Frontmatter); diff != "" {
		t.Errorf("frontmatter mismatch (-want +got):\n%s", diff)
	}
	wantBody := "# My Plan\n\n## Goal\n\nG\n\n## Current Status\n\n*No updates yet*\n\n## Blockers\n\n*None*"
	if got.Content != wantBody {
		t.Errorf("content = %q", got.Content)
	}
	if got.Path != filepath.Join(root, "initiatives", "backlog", "my-plan") {
		t.Errorf("path = %q", got.Path)
	}
	if len(got.Sessions) != 0 || got.Sessions == nil {
		t.Errorf("sessions = %#v, want empty", got.Sessions)
	}
}

func TestCreateInitiative_ScopeCriteriaAndTags(t *testing.T) {
	svc, _, _ := newService(t)
	got, err := svc.CreateInitiative(context.Background(), models.CreateInitiativePayload{
		Title:              "Search Revamp",
		Goal:               "Faster search",
		Scope:              &models.Scope{InScope: []string{"ranking"}, OutOfScope: []string{"UI"}},
		CompletionCriteria: []string{"p95 < 100ms"},
		State:              models.StateActive,
		Tags:               []string{"search", "perf"},
	})
	if err != nil {
		t.Fatalf("CreateInitiative: %v", err)
	}
	if got.Name != "search-revamp" || got.State != models.StateActive {
		t.Errorf("name/state = %q/%q", got.Name, got.State)
	}
	for _, want := range []string{
		"## Scope\n\n### In Scope\n\n- ranking\n\n### Out of Scope\n\n- UI\n",
		"## Completion Criteria\n\n- [ ] p95 < 100ms\n",
	} {
		if !strings.Contains(got.Content, want) {
			t.Errorf("content missing %q:\n%s", want, got.Content)
		}
	}
	if diff := cmp.Diff([]any{"search", "perf"}, got.Frontmatter["tags"]); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateInitiative_InvalidInput(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	cases := map[string]models.CreateInitiativePayload{
		"missing title": {Name: "x", Goal: "g"},
		"unknown state": {Title: "x", State: "archived"},
		"unusable name": {Title: "!!!"},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.CreateInitiative(ctx, p); !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestMoveInitiative(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateInitiative(ctx, models.CreateInitiativePayload{Name: "My Plan", Title: "My Plan", Goal: "G", Tags: []string{"a"}}); err != nil {
		t.Fatal(err)
	}

	moved, err := svc.MoveInitiative(ctx, models.StateBacklog, "my-plan", models.MoveInitiativePayload{TargetState: models.StateActive})
	if err != nil {
		t.Fatalf("MoveInitiative: %v", err)
	}
	if exists(root, "initiatives/backlog/my-plan") {
		t.Error("source directory still present")
	}
	if !exists(root, "initiatives/active/my-plan/INITIATIVE.md") {
		t.Error("destination missing")
	}

	reloaded, err := svc.GetInitiative(ctx, models.StateActive, "my-plan")
	if err != nil {
		t.Fatalf("GetInitiative: %v", err)
	}
	if reloaded.Frontmatter["status"] != "active" {
		t.Errorf("status = %v, want active", reloaded.Frontmatter["status"])
	}
	if reloaded.Frontmatter["title"] != "My Plan" || reloaded.Frontmatter["created"] != "2024-03-09" {
		t.Errorf("other metadata not preserved: %v", reloaded.Frontmatter)
	}
	if reloaded.Content != moved.Content || !strings.HasPrefix(reloaded.Content, "# My Plan") {
		t.Errorf("body changed: %q", reloaded.Content)
	}
}

func TestMoveInitiative_DestinationOccupied(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	for _, st := range []models.State{models.StateBacklog, models.StateActive} {
		if _, err := svc.CreateInitiative(ctx, models.CreateInitiativePayload{Title: "Dup", Goal: string(st), State: st}); err != nil {
			t.Fatal(err)
		}
	}

	_, err := svc.MoveInitiative(ctx, models.StateBacklog, "dup", models.MoveInitiativePayload{TargetState: models.StateActive})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if !exists(root, "initiatives/backlog/dup/INITIATIVE.md") {
		t.Error("source removed after conflict")
	}
	active, err := svc.GetInitiative(ctx, models.StateActive, "dup")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(active.Content, "active") {
		t.Errorf("destination overwritten: %q", active.Content)
	}
}

func TestMoveInitiative_Missing(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.MoveInitiative(context.Background(), models.StateBacklog, "ghost", models.MoveInitiativePayload{TargetState: models.StateCompleted})
	if !errors.Is(err, apperr.ErrNotFound) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestMoveInitiative_SameStateRewritesStatus(t *testing.T) {
	svc, root, _ := newService(t)
	testutil.WriteFile(t, root, "initiatives/active/x/INITIATIVE.md", "---\ntitle: X\nstatus: backlog\n---\nbody\n")

	got, err := svc.MoveInitiative(context.Background(), models.StateActive, "x", models.MoveInitiativePayload{TargetState: models.StateActive})
	if err != nil {
		t.Fatalf("MoveInitiative: %v", err)
	}
	if got.Frontmatter["status"] != "active" || got.Content != "body" {
		t.Errorf("got %v %q", got.Frontmatter, got.Content)
	}
}

func TestMoveInitiative_InvalidTarget(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.MoveInitiative(context.Background(), models.StateBacklog, "x", models.MoveInitiativePayload{TargetState: "archived"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestDeleteInitiative(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateInitiative(ctx, models.CreateInitiativePayload{Title: "Gone", Goal: "g"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteInitiative(ctx, models.StateBacklog, "gone"); err != nil {
		t.Fatalf("DeleteInitiative: %v", err)
	}
	if exists(root, "initiatives/backlog/gone") {
		t.Error("directory still present")
	}
	err := svc.DeleteInitiative(ctx, models.StateBacklog, "gone")
	if !errors.Is(err, apperr.ErrNotFound) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("second delete = %v, want not found", err)
	}
}

func TestGetInitiative_MissingMainDocument(t *testing.T) {
	svc, root, _ := newService(t)
	testutil.WriteFile(t, root, "initiatives/active/broken/sessions/2024-01-01-a.md", "x")

	got, err := svc.GetInitiative(context.Background(), models.StateActive, "broken")
	if !errors.Is(err, apperr.ErrNotFound) || got != nil {
		t.Errorf("got %v, %v; want nil, ErrNotFound", got, err)
	}
}

func TestGetInitiative_RejectsTraversal(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.GetInitiative(context.Background(), models.StateActive, ".."); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestGetInitiative_SubRecords(t *testing.T) {
	svc, root, _ := newService(t)
	base := "initiatives/active/x/"
	testutil.WriteFile(t, root, base+"INITIATIVE.md", "---\ntitle: X\n---\nmain\n")
	testutil.WriteFile(t, root, base+"TRACKER.md", "---\nupdated: 2024-01-01\n---\n- [x] step\n")
	testutil.WriteFile(t, root, base+"sessions/2024-01-01-first.md", "---\ndate: 2024-01-01\n---\none\n")
	testutil.WriteFile(t, root, base+"sessions/2024-02-01-second.md", "---\nbranch: feat/x\n---\ntwo\n")
	testutil.WriteFile(t, root, base+"sessions/notes.txt", "ignored")
	testutil.WriteFile(t, root, base+"decisions/use-go.md", "---\ndate: 2024-01-05\nstatus: accepted\n---\nGo.\n")
	testutil.WriteFile(t, root, base+"decisions/later.md", "---\ndate: 2024-02-05\n---\nLater.\n")
	testutil.WriteFile(t, root, base+"plans/b-plan.md", "B\n")
	testutil.WriteFile(t, root, base+"plans/a-plan.md", "A\n")

	got, err := svc.GetInitiative(context.Background(), models.StateActive, "x")
	if err != nil {
		t.Fatalf("GetInitiative: %v", err)
	}
	if got.Tracker != "- [x] step" {
		t.Errorf("tracker = %q", got.Tracker)
	}

	sessions := make([]string, 0, len(got.Sessions))
	for _, s := range got.Sessions {
		sessions = append(sessions, fmt.Sprintf("%s|%s|%s|%s", s.Name, s.Date, s.Branch, s.Content))
	}
	wantSessions := []string{
		"2024-02-01-second|2024-02-01|feat/x|two",
		"2024-01-01-first|2024-01-01||one",
	}
	if diff := cmp.Diff(wantSessions, sessions); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}

	if len(got.Decisions) != 2 || got.Decisions[0].Name != "later" || got.Decisions[1].Name != "use-go" {
		t.Fatalf("decisions = %+v", got.Decisions)
	}
	if got.Decisions[0].Status != models.DecisionProposed || got.Decisions[1].Status != models.DecisionAccepted {
		t.Errorf("statuses = %q, %q", got.Decisions[0].Status, got.Decisions[1].Status)
	}

	if len(got.Plans) != 2 || got.Plans[0].Name != "a-plan" || got.Plans[1].Content != "B\n" {
		t.Errorf("plans = %+v", got.Plans)
	}
}

func TestListInitiatives(t *testing.T) {
	svc, root, _ := newService(t)
	testutil.WriteFile(t, root, "initiatives/active/old/INITIATIVE.md", "---\ntitle: Old\ncreated: 2023-01-01\n---\n")
	testutil.WriteFile(t, root, "initiatives/active/new/INITIATIVE.md", "---\ntitle: New\ncreated: 2024-01-01\ntags: [a, b]\n---\n")
	testutil.WriteFile(t, root, "initiatives/active/new/sessions/2024-01-02-a.md", "x")
	testutil.WriteFile(t, root, "initiatives/active/new/sessions/2024-01-10-b.md", "x")
	testutil.WriteFile(t, root, "initiatives/active/untitled/INITIATIVE.md", "no frontmatter")
	testutil.WriteFile(t, root, "initiatives/active/broken/notes.md", "missing main doc")
	testutil.WriteFile(t, root, "initiatives/active/.hidden/INITIATIVE.md", "---\ntitle: H\n---\n")

	got, err := svc.ListInitiatives(context.Background(), models.StateActive)
	if err != nil {
		t.Fatalf("ListInitiatives: %v", err)
	}
	want := []models.InitiativeSummary{
		{Name: "untitled", Path: filepath.Join(root, "initiatives", "active", "untitled"), State: models.StateActive, Title: "untitled", Created: "2024-03-09"},
		{Name: "new", Path: filepath.Join(root, "initiatives", "active", "new"), State: models.StateActive, Title: "New", Created: "2024-01-01", SessionCount: 2, LatestSession: "2024-01-10", Tags: []string{"a", "b"}},
		{Name: "old", Path: filepath.Join(root, "initiatives", "active", "old"), State: models.StateActive, Title: "Old", Created: "2023-01-01"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summaries mismatch (-want +got):\n%s", diff)
	}
}

func TestListInitiatives_LatestSessionIgnoresUndatedFiles(t *testing.T) {
	svc, root, _ := newService(t)
	base := "initiatives/active/x/"
	testutil.WriteFile(t, root, base+"INITIATIVE.md", "---\ntitle: X\n---\n")
	testutil.WriteFile(t, root, base+"sessions/2024-01-02-a.md", "x")
	testutil.WriteFile(t, root, base+"sessions/2024-03-01-b.md", "x")
	testutil.WriteFile(t, root, base+"sessions/notes.md", "x")

	got, err := svc.ListInitiatives(context.Background(), models.StateActive)
	if err != nil {
		t.Fatalf("ListInitiatives: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d summaries", len(got))
	}
	if got[0].SessionCount != 3 || got[0].LatestSession != "2024-03-01" {
		t.Errorf("sessions = %d, latest = %q", got[0].SessionCount, got[0].LatestSession)
	}
}

func TestMoveInitiative_PreservesHandWrittenMetadata(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	testutil.WriteFile(t, root, "initiatives/backlog/legacy/INITIATIVE.md",
		"---\ncreated: 2024-01-15\npriority: 2\nstatus: backlog\ntitle: Legacy\n---\n# Legacy\n")

	summaries, err := svc.ListInitiatives(ctx, models.StateBacklog)
	if err != nil || len(summaries) != 1 {
		t.Fatalf("ListInitiatives = %v, %v", summaries, err)
	}
	if summaries[0].Created != "2024-01-15" {
		t.Errorf("created = %q", summaries[0].Created)
	}

	if _, err := svc.MoveInitiative(ctx, models.StateBacklog, "legacy", models.MoveInitiativePayload{TargetState: models.StateActive}); err != nil {
		t.Fatalf("MoveInitiative: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(root, "initiatives", "active", "legacy", "INITIATIVE.md"))
	if err != nil {
		t.Fatal(err)
	}
	want := "---\ncreated: 2024-01-15\npriority: 2\nstatus: active\ntitle: Legacy\n---\n# Legacy\n"
	if string(raw) != want {
		t.Errorf("file after move:\n%q\nwant:\n%q", raw, want)
	}
}

func TestListInitiatives_EmptyAndInvalid(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	if err := os.RemoveAll(filepath.Join(root, "initiatives")); err != nil {
		t.Fatal(err)
	}
	got, err := svc.ListInitiatives(ctx, models.StateCompleted)
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("got %#v, %v; want empty non-nil", got, err)
	}
	if _, err := svc.ListInitiatives(ctx, "archived"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateInitiative(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateInitiative(ctx, models.CreateInitiativePayload{Title: "Plan", Goal: "g"}); err != nil {
		t.Fatal(err)
	}
	title, body := "Renamed", "# Renamed\n\nnew body"
	got, err := svc.UpdateInitiative(ctx, models.StateBacklog, "plan", models.UpdateInitiativePayload{
		Title:   &title,
		Content: &body,
		Tags:    []string{"x"},
	})
	if err != nil {
		t.Fatalf("UpdateInitiative: %v", err)
	}
	if got.Frontmatter["title"] != "Renamed" || got.Frontmatter["status"] != "backlog" || got.Content != body {
		t.Errorf("got %v %q", got.Frontmatter, got.Content)
	}

	empty := ""
	if _, err := svc.UpdateInitiative(ctx, models.StateBacklog, "plan", models.UpdateInitiativePayload{Title: &empty}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank title err = %v", err)
	}
	if _, err := svc.UpdateInitiative(ctx, models.StateActive, "plan", models.UpdateInitiativePayload{Title: &title}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestWriteTracker(t *testing.T) {
	svc, _, clock := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateInitiative(ctx, models.CreateInitiativePayload{Title: "T", Goal: "g", State: models.StateActive}); err != nil {
		t.Fatal(err)
	}
	if err := svc.WriteTracker(ctx, models.StateActive, "t", "- [ ] one"); err != nil {
		t.Fatalf("WriteTracker: %v", err)
	}
	clock.Set(t, "2024-03-10")
	if err := svc.WriteTracker(ctx, models.StateActive, "t", "- [x] one"); err != nil {
		t.Fatalf("WriteTracker: %v", err)
	}
	got, err := svc.GetInitiative(ctx, models.StateActive, "t")
	if err != nil {
		t.Fatal(err)
	}
	if got.Tracker != "- [x] one" {
		t.Errorf("tracker = %q", got.Tracker)
	}

	err = svc.WriteTracker(ctx, models.StateBacklog, "t", "x")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing initiative err = %v", err)
	}
}

func TestCreateSession(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateInitiative(ctx, models.CreateInitiativePayload{Title: "X", Goal: "g", State: models.StateActive}); err != nil {
		t.Fatal(err)
	}

	got, err := svc.CreateSession(ctx, models.CreateSessionPayload{
		InitiativeName:  "x",
		InitiativeState: models.StateActive,
		Description:     "Fix the Build",
		Completed:       []string{"a"},
		NextSteps:       []string{"b"},
		FilesChanged:    []string{"main.go"},
		Branch:          "fix/build",
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if got.Name != "2024-03-09-fix-the-build" || got.Date != "2024-03-09" || got.Branch != "fix/build" {
		t.Errorf("session = %+v", got)
	}
	want := "# Fix the Build\n\n## Completed\n\n- a\n\n## Next Session\n\n- [ ] b\n\n## Files Changed\n\n- `main.go`"
	if got.Content != want {
		t.Errorf("content = %q", got.Content)
	}
	if !exists(root, "initiatives/active/x/sessions/2024-03-09-fix-the-build.md") {
		t.Error("session file missing")
	}

	reloaded, err := svc.GetInitiative(ctx, models.StateActive, "x")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]models.Session{*got}, reloaded.Sessions); diff != "" {
		t.Errorf("reloaded session mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateSession_MissingInitiative(t *testing.T) {
	svc, root, _ := newService(t)
	_, err := svc.CreateSession(context.Background(), models.CreateSessionPayload{
		InitiativeName:  "ghost",
		InitiativeState: models.StateActive,
		Description:     "d",
	})
	if !errors.Is(err, apperr.ErrNotFound) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want not found", err)
	}
	if exists(root, "initiatives/active/ghost") {
		t.Error("directory created for missing initiative")
	}
}

func TestCreateDecisionAndPlan(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateInitiative(ctx, models.CreateInitiativePayload{Title: "X", Goal: "g"}); err != nil {
		t.Fatal(err)
	}

	dec, err := svc.CreateDecision(ctx, models.CreateDecisionPayload{
		InitiativeName:  "x",
		InitiativeState: models.StateBacklog,
		Title:           "Use YAML",
		Date:            "January 5, 2024",
		Context:         "c",
		Decision:        "d",
		Rationale:       "r",
		Alternatives:    []models.Alternative{{Name: "TOML", Reason: "less common"}},
		Consequences:    &models.Consequences{Negative: []string{"indentation"}},
	})
	if err != nil {
		t.Fatalf("CreateDecision: %v", err)
	}
	if dec.Name != "use-yaml" || dec.Date != "2024-01-05" || dec.Status != models.DecisionProposed {
		t.Errorf("decision = %+v", dec)
	}
	for _, want := range []string{"## Alternatives Considered\n\n### TOML\n\nless common", "## Consequences\n\n### Negative\n\n- indentation"} {
		if !strings.Contains(dec.Content, want) {
			t.Errorf("decision body missing %q:\n%s", want, dec.Content)
		}
	}
	if strings.Contains(dec.Content, "### Positive") {
		t.Error("empty positive consequences rendered")
	}

	plan, err := svc.CreatePlan(ctx, models.CreatePlanPayload{
		InitiativeName:  "x",
		InitiativeState: models.StateBacklog,
		Name:            "Phase One",
		Content:         "# Phase one\n\n1. do it",
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.Name != "phase-one" {
		t.Errorf("plan name = %q", plan.Name)
	}

	got, err := svc.GetInitiative(ctx, models.StateBacklog, "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Decisions) != 1 || got.Decisions[0].Content != dec.Content {
		t.Errorf("decisions = %+v", got.Decisions)
	}
	if len(got.Plans) != 1 || got.Plans[0].Content != "# Phase one\n\n1. do it\n" {
		t.Errorf("plans = %+v", got.Plans)
	}

	_, err = svc.CreateDecision(ctx, models.CreateDecisionPayload{InitiativeName: "x", InitiativeState: models.StateBacklog, Title: "t", Status: "maybe"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad status err = %v", err)
	}
	_, err = svc.CreatePlan(ctx, models.CreatePlanPayload{InitiativeName: "y", InitiativeState: models.StateBacklog, Name: "p"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing initiative err = %v", err)
	}
}

func TestInitiativeFiles(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	base := "initiatives/active/x/"
	testutil.WriteFile(t, root, base+"INITIATIVE.md", "---\ntitle: X\n---\n")
	testutil.WriteFile(t, root, base+"notes/scratch.txt", "raw text")
	testutil.WriteFile(t, root, "todos/secret.md", "outside")

	nodes, err := svc.GetInitiativeFileTree(ctx, models.StateActive, "x")
	if err != nil {
		t.Fatalf("GetInitiativeFileTree: %v", err)
	}
	want := []models.FileTreeNode{
		{Type: models.NodeDirectory, Name: "notes", Path: "notes", Children: []models.FileTreeNode{
			{Type: models.NodeFile, Name: "scratch.txt", Path: "notes/scratch.txt"},
		}},
		{Type: models.NodeFile, Name: "INITIATIVE.md", Path: "INITIATIVE.md"},
	}
	if diff := cmp.Diff(want, nodes); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}

	file, err := svc.GetInitiativeFile(ctx, models.StateActive, "x", "notes/scratch.txt")
	if err != nil {
		t.Fatalf("GetInitiativeFile: %v", err)
	}
	if diff := cmp.Diff(&models.FileContent{Name: "scratch.txt", Path: "notes/scratch.txt", Content: "raw text"}, file); diff != "" {
		t.Errorf("file mismatch (-want +got):\n%s", diff)
	}

	for _, p := range []string{"../../../todos/secret.md", "/etc/passwd", "", "missing.md", ".."} {
		if _, err := svc.GetInitiativeFile(ctx, models.StateActive, "x", p); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("GetInitiativeFile(%q) = %v, want ErrNotFound", p, err)
		}
	}

	if _, err := svc.GetInitiativeFileTree(ctx, models.StateBacklog, "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("tree of missing initiative = %v", err)
	}
}

func TestTodos(t *testing.T) {
	svc, root, clock := newService(t)
	ctx := context.Background()

	days := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}
	prios := []models.Priority{models.PriorityLow, models.PriorityHigh, models.PriorityMedium, ""}
	for i, p := range prios {
		clock.Set(t, days[i])
		if _, err := svc.CreateTodo(ctx, models.CreateTodoPayload{Title: fmt.Sprintf("Todo %d", i), Description: "d", Priority: p}); err != nil {
			t.Fatalf("CreateTodo: %v", err)
		}
	}
	clock.Set(t, "2024-01-05")
	if _, err := svc.CreateTodo(ctx, models.CreateTodoPayload{Title: "Newer high", Priority: models.PriorityHigh}); err != nil {
		t.Fatal(err)
	}

	list, err := svc.ListTodos(ctx)
	if err != nil {
		t.Fatalf("ListTodos: %v", err)
	}
	var order []string
	for _, td := range list {
		order = append(order, td.Name)
	}
	want := []string{"newer-high", "todo-1", "todo-2", "todo-0", "todo-3"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	todo, err := svc.GetTodo(ctx, "todo-1")
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if todo.Content != "# Todo 1\n\nd" || todo.Frontmatter["priority"] != "high" {
		t.Errorf("todo = %+v", todo)
	}
	if todo.Path != filepath.Join(root, "todos", "todo-1.md") {
		t.Errorf("path = %q", todo.Path)
	}

	if err := svc.DeleteTodo(ctx, "todo-1"); err != nil {
		t.Fatalf("DeleteTodo: %v", err)
	}
	if _, err := svc.GetTodo(ctx, "todo-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetTodo after delete = %v", err)
	}
	err = svc.DeleteTodo(ctx, "todo-1")
	if !errors.Is(err, apperr.ErrNotFound) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("DeleteTodo missing = %v, want propagated not-found", err)
	}

	if _, err := svc.CreateTodo(ctx, models.CreateTodoPayload{Title: "x", Priority: "urgent"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad priority err = %v", err)
	}
}

func TestIdeas(t *testing.T) {
	svc, _, clock := newService(t)
	ctx := context.Background()

	idea, err := svc.CreateIdea(ctx, models.CreateIdeaPayload{
		Title:            "Dark Mode",
		Description:      "Easier on the eyes",
		ValueProposition: "Users asked",
		Tags:             []string{"ui"},
	})
	if err != nil {
		t.Fatalf("CreateIdea: %v", err)
	}
	want := "# Dark Mode\n\nEasier on the eyes\n\n## Why This Could Be Valuable\n\nUsers asked\n\n---\n*Captured: 2024-03-09*"
	if idea.Content != want {
		t.Errorf("content = %q", idea.Content)
	}

	clock.Set(t, "2024-04-01")
	if _, err := svc.CreateIdea(ctx, models.CreateIdeaPayload{Title: "Later"}); err != nil {
		t.Fatal(err)
	}
	list, err := svc.ListIdeas(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "later" || list[1].Name != "dark-mode" {
		t.Errorf("ideas = %+v", list)
	}
	if diff := cmp.Diff([]string{"ui"}, list[1].Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	if err := svc.DeleteIdea(ctx, "dark-mode"); err != nil {
		t.Fatalf("DeleteIdea: %v", err)
	}
	err = svc.DeleteIdea(ctx, "dark-mode")
	if !errors.Is(err, apperr.ErrNotFound) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("DeleteIdea missing = %v, want propagated not-found", err)
	}
}

func TestPromoteIdeaToInitiative(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateIdea(ctx, models.CreateIdeaPayload{Title: "Spark"}); err != nil {
		t.Fatal(err)
	}

	got, err := svc.PromoteIdeaToInitiative(ctx, "spark", models.CreateInitiativePayload{Title: "Spark", Goal: "ship"})
	if err != nil {
		t.Fatalf("PromoteIdeaToInitiative: %v", err)
	}
	if got.Name != "spark" || !exists(root, "initiatives/backlog/spark/INITIATIVE.md") {
		t.Errorf("initiative not created: %+v", got)
	}
	if exists(root, "ideas/spark.md") {
		t.Error("idea not deleted")
	}
}

func TestPromoteIdeaToInitiative_PartialFailure(t *testing.T) {
	svc, root, _ := newService(t)
	got, err := svc.PromoteIdeaToInitiative(context.Background(), "never-captured", models.CreateInitiativePayload{Title: "Orphan"})
	if err == nil {
		t.Fatal("expected deletion error")
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if got == nil || got.Name != "orphan" || !exists(root, "initiatives/backlog/orphan") {
		t.Errorf("created initiative not returned: %+v", got)
	}
}

func TestGetWorkspaceTree(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for _, st := range models.States() {
		if _, err := svc.CreateInitiative(ctx, models.CreateInitiativePayload{Title: "In " + string(st), Goal: "g", State: st}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.CreateTodo(ctx, models.CreateTodoPayload{Title: "T"}); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetWorkspaceTree(ctx)
	if err != nil {
		t.Fatalf("GetWorkspaceTree: %v", err)
	}
	if len(got.Initiatives.Active) != 1 || got.Initiatives.Active[0].Name != "in-active" {
		t.Errorf("active = %+v", got.Initiatives.Active)
	}
	if len(got.Initiatives.Backlog) != 1 || len(got.Initiatives.Completed) != 1 {
		t.Errorf("backlog/completed = %d/%d", len(got.Initiatives.Backlog), len(got.Initiatives.Completed))
	}
	if len(got.Todos) != 1 || got.Ideas == nil || len(got.Ideas) != 0 {
		t.Errorf("todos/ideas = %+v / %#v", got.Todos, got.Ideas)
	}
}

func TestInitializeAndValidate(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	if err := os.RemoveAll(filepath.Join(root, "ideas")); err != nil {
		t.Fatal(err)
	}
	if svc.IsValidWorkspace(ctx) {
		t.Error("workspace without ideas/ reported valid")
	}
	if err := svc.InitializeWorkspace(ctx); err != nil {
		t.Fatalf("InitializeWorkspace: %v", err)
	}
	if !svc.IsValidWorkspace(ctx) {
		t.Error("initialized workspace reported invalid")
	}
	for _, d := range []string{"initiatives/active", "initiatives/backlog", "initiatives/completed", "todos", "ideas"} {
		if !exists(root, d) {
			t.Errorf("%s missing", d)
		}
	}
}

func TestCancelledContext(t *testing.T) {
	svc, _, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.ListTodos(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ListTodos = %v", err)
	}
	if _, err := svc.GetWorkspaceTree(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("GetWorkspaceTree = %v", err)
	}
	if _, err := svc.CreateTodo(ctx, models.CreateTodoPayload{Title: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("CreateTodo = %v", err)
	}
}

func TestEntityLocks_ConcurrentWriters(t *testing.T) {
	svc, _, _ := newService(t, WithEntityLocks())
	ctx := context.Background()
	if _, err := svc.CreateInitiative(ctx, models.CreateInitiativePayload{Title: "Shared", Goal: "g", State: models.StateActive}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.CreateTodo(ctx, models.CreateTodoPayload{Title: "Same todo"})
			errs <- err
		}()
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateSession(ctx, models.CreateSessionPayload{
				InitiativeName:  "shared",
				InitiativeState: models.StateActive,
				Description:     fmt.Sprintf("session %d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent write: %v", err)
		}
	}

	got, err := svc.GetInitiative(ctx, models.StateActive, "shared")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Sessions) != 20 {
		t.Errorf("sessions = %d, want 20", len(got.Sessions))
	}
}
