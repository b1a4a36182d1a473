package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/illia-shyn/thoughtcaptcha/internal/llm/prompts"
	"github.com/illia-shyn/thoughtcaptcha/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestAssignment(t *testing.T, s *Store, text string, current bool) model.Assignment {
	t.Helper()
	a, err := s.CreateAssignment(context.Background(), text, current)
	if err != nil {
		t.Fatalf("CreateAssignment(%q): %v", text, err)
	}
	return a
}

func countCurrent(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM assignments WHERE is_current = ?`, true); err != nil {
		t.Fatalf("countCurrent: %v", err)
	}
	return n
}

func ptr[T any](v T) *T { return &v }

func TestResolveDSN(t *testing.T) {
	tests := []struct {
		dsn         string
		wantDialect Dialect
		wantDriver  string
	}{
		{":memory:", DialectSQLite, "sqlite"},
		{"thoughtcaptcha.db", DialectSQLite, "sqlite"},
		{"file.db?_pragma=foreign_keys(1)", DialectSQLite, "sqlite"},
		{"postgres://u:p@localhost/db", DialectPostgres, "pgx"},
		{"POSTGRESQL://u:p@localhost/db", DialectPostgres, "pgx"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			dialect, driver, _ := resolveDSN(tt.dsn)
			if dialect != tt.wantDialect {
				t.Errorf("dialect = %q, want %q", dialect, tt.wantDialect)
			}
			if driver != tt.wantDriver {
				t.Errorf("driver = %q, want %q", driver, tt.wantDriver)
			}
		})
	}
}

func TestAssignmentCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.ListAssignments(ctx, 0, 100)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	a := createTestAssignment(t, s, "Explain photosynthesis", false)
	if a.ID == 0 {
		t.Fatal("expected assigned ID")
	}
	if a.IsCurrent {
		t.Error("expected is_current false by default")
	}
	if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := s.GetAssignment(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if got.PromptText != "Explain photosynthesis" {
		t.Errorf("expected prompt text 'Explain photosynthesis', got %q", got.PromptText)
	}

	_, err = s.GetAssignment(ctx, 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = s.CurrentAssignment(ctx)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for current, got %v", err)
	}

	b := createTestAssignment(t, s, "Describe the water cycle", false)
	c := createTestAssignment(t, s, "Summarize the French revolution", false)

	list, err = s.ListAssignments(ctx, 0, 100)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(list))
	}
	// Newest first.
	if list[0].ID != c.ID || list[1].ID != b.ID || list[2].ID != a.ID {
		t.Errorf("unexpected order: %d, %d, %d", list[0].ID, list[1].ID, list[2].ID)
	}

	page, err := s.ListAssignments(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ListAssignments page: %v", err)
	}
	if len(page) != 1 || page[0].ID != b.ID {
		t.Errorf("expected page with assignment %d, got %+v", b.ID, page)
	}

	count, err := s.AssignmentCount(ctx)
	if err != nil {
		t.Fatalf("AssignmentCount: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
}

func TestCreateCurrentDemotesPrevious(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a1 := createTestAssignment(t, s, "A1", true)
	a2 := createTestAssignment(t, s, "A2", true)

	current, err := s.CurrentAssignment(ctx)
	if err != nil {
		t.Fatalf("CurrentAssignment: %v", err)
	}
	if current.ID != a2.ID {
		t.Errorf("expected current %d, got %d", a2.ID, current.ID)
	}

	a1, err = s.GetAssignment(ctx, a1.ID)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if a1.IsCurrent {
		t.Error("expected A1 to be demoted")
	}
	if n := countCurrent(t, s); n != 1 {
		t.Errorf("expected exactly 1 current assignment, got %d", n)
	}
}

func TestSingleCurrentInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createTestAssignment(t, s, "A", false)
	b := createTestAssignment(t, s, "B", true)

	steps := []struct {
		name string
		op   func() error
	}{
		{"create current", func() error {
			_, err := s.CreateAssignment(ctx, "C", true)
			return err
		}},
		{"create not current", func() error {
			_, err := s.CreateAssignment(ctx, "D", false)
			return err
		}},
		{"set current A", func() error {
			_, err := s.SetCurrentAssignment(ctx, a.ID)
			return err
		}},
		{"update B to current", func() error {
			_, err := s.UpdateAssignment(ctx, b.ID, model.AssignmentUpdate{IsCurrent: ptr(true)})
			return err
		}},
		{"set current B again", func() error {
			_, err := s.SetCurrentAssignment(ctx, b.ID)
			return err
		}},
		{"update A text only", func() error {
			_, err := s.UpdateAssignment(ctx, a.ID, model.AssignmentUpdate{PromptText: ptr("A'")})
			return err
		}},
		{"update B to not current", func() error {
			_, err := s.UpdateAssignment(ctx, b.ID, model.AssignmentUpdate{IsCurrent: ptr(false)})
			return err
		}},
		{"set current unknown", func() error {
			_, err := s.SetCurrentAssignment(ctx, 424242)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}},
	}

	for _, step := range steps {
		if err := step.op(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if n := countCurrent(t, s); n > 1 {
			t.Fatalf("after %s: %d current assignments", step.name, n)
		}
	}
}

func TestSetCurrentUnknownIDLeavesStateUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createTestAssignment(t, s, "A", true)
	createTestAssignment(t, s, "B", false)

	_, err := s.SetCurrentAssignment(ctx, 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	current, err := s.CurrentAssignment(ctx)
	if err != nil {
		t.Fatalf("CurrentAssignment: %v", err)
	}
	if current.ID != a.ID {
		t.Errorf("expected current assignment %d, got %d", a.ID, current.ID)
	}
}

func TestUpdateAssignment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createTestAssignment(t, s, "Original", true)
	b := createTestAssignment(t, s, "Other", false)

	t.Run("text only", func(t *testing.T) {
		got, err := s.UpdateAssignment(ctx, a.ID, model.AssignmentUpdate{PromptText: ptr("Edited")})
		if err != nil {
			t.Fatalf("UpdateAssignment: %v", err)
		}
		if got.PromptText != "Edited" {
			t.Errorf("expected 'Edited', got %q", got.PromptText)
		}
		if !got.IsCurrent {
			t.Error("is_current should be unchanged")
		}
	})

	t.Run("promote demotes others", func(t *testing.T) {
		got, err := s.UpdateAssignment(ctx, b.ID, model.AssignmentUpdate{IsCurrent: ptr(true)})
		if err != nil {
			t.Fatalf("UpdateAssignment: %v", err)
		}
		if !got.IsCurrent {
			t.Error("expected B current")
		}
		if got.PromptText != "Other" {
			t.Errorf("prompt text should be unchanged, got %q", got.PromptText)
		}
		prev, _ := s.GetAssignment(ctx, a.ID)
		if prev.IsCurrent {
			t.Error("expected A demoted")
		}
	})

	t.Run("demote leaves none current", func(t *testing.T) {
		if _, err := s.UpdateAssignment(ctx, b.ID, model.AssignmentUpdate{IsCurrent: ptr(false)}); err != nil {
			t.Fatalf("UpdateAssignment: %v", err)
		}
		if _, err := s.CurrentAssignment(ctx); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected no current assignment, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.UpdateAssignment(ctx, 9999, model.AssignmentUpdate{PromptText: ptr("x")})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUpdatePromptKeepsStoredCurrentFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createTestAssignment(t, s, "A", false)
	b := createTestAssignment(t, s, "B", true)

	// a is promoted after the caller last saw it as not current.
	if _, err := s.SetCurrentAssignment(ctx, a.ID); err != nil {
		t.Fatalf("SetCurrentAssignment: %v", err)
	}
	got, err := s.UpdateAssignment(ctx, a.ID, model.AssignmentUpdate{PromptText: ptr("A, revised")})
	if err != nil {
		t.Fatalf("UpdateAssignment: %v", err)
	}
	if !got.IsCurrent {
		t.Error("prompt-only update must keep the stored is_current")
	}

	// And an update to the demoted row must not bring it back.
	got, err = s.UpdateAssignment(ctx, b.ID, model.AssignmentUpdate{PromptText: ptr("B, revised")})
	if err != nil {
		t.Fatalf("UpdateAssignment: %v", err)
	}
	if got.IsCurrent {
		t.Error("demoted assignment became current again")
	}

	cur, err := s.CurrentAssignment(ctx)
	if err != nil {
		t.Fatalf("CurrentAssignment: %v", err)
	}
	if cur.ID != a.ID {
		t.Errorf("current = %d, want %d", cur.ID, a.ID)
	}
	if n := countCurrent(t, s); n != 1 {
		t.Errorf("expected one current assignment, got %d", n)
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createTestAssignment(t, s, "Explain photosynthesis", true)

	sub, err := s.CreateSubmission(ctx, "Plants use light.", nil)
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	if sub.AssignmentID == nil || *sub.AssignmentID != a.ID {
		t.Fatalf("expected submission linked to current assignment %d, got %v", a.ID, sub.AssignmentID)
	}
	if sub.State != model.StateNew {
		t.Errorf("expected state new, got %q", sub.State)
	}
	if sub.GeneratedQuestion != nil || sub.StudentResponse != nil {
		t.Error("expected no question and no response yet")
	}

	sub, err = s.SetGeneratedQuestion(ctx, sub.ID, "Which pigment absorbs light?")
	if err != nil {
		t.Fatalf("SetGeneratedQuestion: %v", err)
	}
	if sub.State != model.StateQuestioned {
		t.Errorf("expected state questioned, got %q", sub.State)
	}

	// The first stored question wins.
	sub, err = s.SetGeneratedQuestion(ctx, sub.ID, "A different question?")
	if err != nil {
		t.Fatalf("SetGeneratedQuestion again: %v", err)
	}
	if sub.GeneratedQuestion == nil || *sub.GeneratedQuestion != "Which pigment absorbs light?" {
		t.Errorf("expected original question to be kept, got %v", sub.GeneratedQuestion)
	}

	sub, err = s.RecordResponse(ctx, sub.ID, "Chlorophyll")
	if err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}
	if sub.State != model.StateAnswered {
		t.Errorf("expected state answered, got %q", sub.State)
	}

	sub, err = s.RecordResponse(ctx, sub.ID, "Chlorophyll a and b")
	if err != nil {
		t.Fatalf("RecordResponse overwrite: %v", err)
	}
	if sub.StudentResponse == nil || *sub.StudentResponse != "Chlorophyll a and b" {
		t.Errorf("expected overwritten response, got %v", sub.StudentResponse)
	}

	got, err := s.GetSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if got.Assignment == nil || got.Assignment.ID != a.ID {
		t.Errorf("expected embedded assignment %d, got %+v", a.ID, got.Assignment)
	}
}

func TestCreateSubmissionLinking(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("no current assignment", func(t *testing.T) {
		sub, err := s.CreateSubmission(ctx, "text", nil)
		if err != nil {
			t.Fatalf("CreateSubmission: %v", err)
		}
		if sub.AssignmentID != nil {
			t.Errorf("expected unlinked submission, got %d", *sub.AssignmentID)
		}
		got, err := s.GetSubmission(ctx, sub.ID)
		if err != nil {
			t.Fatalf("GetSubmission: %v", err)
		}
		if got.Assignment != nil {
			t.Error("expected no embedded assignment")
		}
	})

	t.Run("explicit assignment", func(t *testing.T) {
		a := createTestAssignment(t, s, "explicit", false)
		createTestAssignment(t, s, "current", true)
		sub, err := s.CreateSubmission(ctx, "text", &a.ID)
		if err != nil {
			t.Fatalf("CreateSubmission: %v", err)
		}
		if sub.AssignmentID == nil || *sub.AssignmentID != a.ID {
			t.Errorf("expected link to %d, got %v", a.ID, sub.AssignmentID)
		}
	})

	t.Run("unknown assignment", func(t *testing.T) {
		before, _ := s.SubmissionCount(ctx)
		_, err := s.CreateSubmission(ctx, "text", ptr(int64(9999)))
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		after, _ := s.SubmissionCount(ctx)
		if after != before {
			t.Errorf("expected no new submission, count went %d -> %d", before, after)
		}
	})
}

func TestResponseBeforeQuestion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub, err := s.CreateSubmission(ctx, "text", nil)
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	sub, err = s.RecordResponse(ctx, sub.ID, "early answer")
	if err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}
	if sub.State != model.StateAnswered {
		t.Errorf("expected answered, got %q", sub.State)
	}

	sub, err = s.SetGeneratedQuestion(ctx, sub.ID, "late question")
	if err != nil {
		t.Fatalf("SetGeneratedQuestion: %v", err)
	}
	if sub.State != model.StateAnswered {
		t.Errorf("state should not regress, got %q", sub.State)
	}
	if !sub.HasQuestion() {
		t.Error("expected question stored")
	}
}

func TestSubmissionNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetSubmission(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSubmission: expected ErrNotFound, got %v", err)
	}
	if _, err := s.RecordResponse(ctx, 42, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordResponse: expected ErrNotFound, got %v", err)
	}
	if _, err := s.SetGeneratedQuestion(ctx, 42, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetGeneratedQuestion: expected ErrNotFound, got %v", err)
	}
}

func TestSubmissionUnknownState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub, err := s.CreateSubmission(ctx, "text", nil)
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE submissions SET state = 'archived' WHERE id = ?`, sub.ID); err != nil {
		t.Fatalf("corrupt state: %v", err)
	}

	_, err = s.GetSubmission(ctx, sub.ID)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("GetSubmission: expected unknown state error, got %v", err)
	}
	if _, err := s.ListSubmissions(ctx, 0, 10); err == nil {
		t.Error("ListSubmissions: expected unknown state error")
	}
}

func TestListSubmissions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createTestAssignment(t, s, "A", true)
	first, _ := s.CreateSubmission(ctx, "first", nil)
	createTestAssignment(t, s, "B", true)
	second, _ := s.CreateSubmission(ctx, "second", nil)
	third, _ := s.CreateSubmission(ctx, "third", &a.ID)

	subs, err := s.ListSubmissions(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(subs))
	}
	if subs[0].ID != third.ID || subs[1].ID != second.ID || subs[2].ID != first.ID {
		t.Errorf("expected newest first, got %d, %d, %d", subs[0].ID, subs[1].ID, subs[2].ID)
	}
	for _, sub := range subs {
		if sub.Assignment == nil || sub.Assignment.ID != *sub.AssignmentID {
			t.Errorf("submission %d: assignment not embedded", sub.ID)
		}
	}
	if subs[2].Assignment.PromptText != "A" {
		t.Errorf("expected first submission linked to A, got %q", subs[2].Assignment.PromptText)
	}

	page, err := s.ListSubmissions(ctx, 2, 5)
	if err != nil {
		t.Fatalf("ListSubmissions page: %v", err)
	}
	if len(page) != 1 || page[0].ID != first.ID {
		t.Errorf("expected only the oldest submission, got %+v", page)
	}
}

func TestSystemPrompt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.SystemPrompt(ctx)
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	if p.ID != model.SystemPromptID {
		t.Errorf("expected id %d, got %d", model.SystemPromptID, p.ID)
	}
	if p.PromptText != prompts.DefaultSystemPrompt {
		t.Errorf("expected default prompt, got %q", p.PromptText)
	}

	updated, err := s.UpdateSystemPrompt(ctx, "Ask about the weakest claim.")
	if err != nil {
		t.Fatalf("UpdateSystemPrompt: %v", err)
	}
	if updated.PromptText != "Ask about the weakest claim." {
		t.Errorf("unexpected prompt text %q", updated.PromptText)
	}

	// Reading again must not reset to the default.
	p, err = s.SystemPrompt(ctx)
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	if p.PromptText != "Ask about the weakest claim." {
		t.Errorf("expected updated prompt to persist, got %q", p.PromptText)
	}

	count, err := s.SystemPromptCount(ctx)
	if err != nil {
		t.Fatalf("SystemPromptCount: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestUpdateSystemPromptCreatesRow(t *testing.T) {
	s := newTestStore(t)

	p, err := s.UpdateSystemPrompt(context.Background(), "custom")
	if err != nil {
		t.Fatalf("UpdateSystemPrompt: %v", err)
	}
	if p.ID != model.SystemPromptID || p.PromptText != "custom" {
		t.Errorf("unexpected prompt %+v", p)
	}
}

func TestSystemPromptConcurrentFirstAccess(t *testing.T) {
	s := newTestStore(t)

	results := make([]model.SystemPrompt, 2)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			p, err := s.SystemPrompt(context.Background())
			results[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}

	count, err := s.SystemPromptCount(context.Background())
	if err != nil {
		t.Fatalf("SystemPromptCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 row, got %d", count)
	}
	for i, p := range results {
		if p.ID != model.SystemPromptID || p.PromptText != prompts.DefaultSystemPrompt {
			t.Errorf("result %d: unexpected prompt %+v", i, p)
		}
	}
}

func TestExport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createTestAssignment(t, s, "A", true)
	sub, _ := s.CreateSubmission(ctx, "one", nil)
	if _, err := s.SetGeneratedQuestion(ctx, sub.ID, "q?"); err != nil {
		t.Fatalf("SetGeneratedQuestion: %v", err)
	}
	if _, err := s.CreateSubmission(ctx, "two", nil); err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}

	exp, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exp.NumAssignments != 1 || exp.NumSubmissions != 2 {
		t.Errorf("unexpected counts: %d assignments, %d submissions", exp.NumAssignments, exp.NumSubmissions)
	}
	if exp.CurrentAssignID == nil || *exp.CurrentAssignID != a.ID {
		t.Errorf("expected current assignment %d, got %v", a.ID, exp.CurrentAssignID)
	}
	if exp.StateBreakdown.New != 1 || exp.StateBreakdown.Questioned != 1 {
		t.Errorf("unexpected breakdown %+v", exp.StateBreakdown)
	}
	if exp.SystemPrompt.PromptText != prompts.DefaultSystemPrompt {
		t.Errorf("expected default system prompt in export")
	}
}

func TestExportSnapshotAgrees(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createTestAssignment(t, s, "A", true)
	total := exportPageSize + 3
	for i := 0; i < total; i++ {
		sub, err := s.CreateSubmission(ctx, fmt.Sprintf("answer %d", i), nil)
		if err != nil {
			t.Fatalf("CreateSubmission: %v", err)
		}
		if i%3 == 0 {
			if _, err := s.RecordResponse(ctx, sub.ID, "r"); err != nil {
				t.Fatalf("RecordResponse: %v", err)
			}
		}
	}

	exp, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exp.NumSubmissions != total || len(exp.Submissions) != total {
		t.Fatalf("exported %d submissions, want %d", exp.NumSubmissions, total)
	}
	b := exp.StateBreakdown
	if b.New+b.Questioned+b.Answered != exp.NumSubmissions {
		t.Errorf("breakdown %+v does not sum to %d", b, exp.NumSubmissions)
	}
	if b.Answered != (total+2)/3 {
		t.Errorf("answered = %d, want %d", b.Answered, (total+2)/3)
	}

	seen := make(map[int64]bool)
	for _, sub := range exp.Submissions {
		if seen[sub.ID] {
			t.Fatalf("submission %d exported twice", sub.ID)
		}
		seen[sub.ID] = true
		if sub.Assignment == nil || sub.Assignment.ID != a.ID {
			t.Fatalf("submission %d missing its assignment", sub.ID)
		}
	}
	if exp.CurrentAssignID == nil || *exp.CurrentAssignID != a.ID {
		t.Errorf("current_assignment_id = %v, want %d", exp.CurrentAssignID, a.ID)
	}
}
