package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quizzard/quizzard/internal/layout"
	"github.com/quizzard/quizzard/internal/question"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUserQuestionLifecycle(t *testing.T) {
	s := newTestStore(t)

	q := question.QuestionAnswer{Text: "Which river is the longest?", Answer: "Nile"}
	if err := s.UpsertUserQuestion(q); err != nil {
		t.Fatal(err)
	}

	qs, err := s.ListUserQuestions()
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 1 || qs[0] != q {
		t.Fatalf("list = %+v, want [%+v]", qs, q)
	}

	// Upsert with the same text replaces the answer.
	q.Answer = "Nile|Amazon"
	if err := s.UpsertUserQuestion(q); err != nil {
		t.Fatal(err)
	}
	qs, _ = s.ListUserQuestions()
	if len(qs) != 1 || qs[0].Answer != "Nile|Amazon" {
		t.Fatalf("after upsert list = %+v", qs)
	}

	if err := s.DeleteUserQuestion(q.Text); err != nil {
		t.Fatal(err)
	}
	qs, _ = s.ListUserQuestions()
	if len(qs) != 0 {
		t.Errorf("after delete list = %+v", qs)
	}
}

func TestUnknownQueue(t *testing.T) {
	s := newTestStore(t)

	u := question.UnknownQuestion{
		ID:              uuid.New(),
		QuestionText:    "What is the capital of Australia?",
		DetectedOptions: []string{"Sydney", "Canberra", "Melbourne", "Perth"},
		Timestamp:       time.Now(),
	}
	if err := s.InsertUnknown(u); err != nil {
		t.Fatal(err)
	}

	us, err := s.ListUnknowns()
	if err != nil {
		t.Fatal(err)
	}
	if len(us) != 1 {
		t.Fatalf("unknowns = %d, want 1", len(us))
	}
	if us[0].ID != u.ID || us[0].QuestionText != u.QuestionText {
		t.Errorf("got %+v", us[0])
	}
	if len(us[0].DetectedOptions) != 4 || us[0].DetectedOptions[1] != "Canberra" {
		t.Errorf("options = %v", us[0].DetectedOptions)
	}

	if err := s.SetUnknownAnswer(u.ID, "Canberra"); err != nil {
		t.Fatal(err)
	}
	us, _ = s.ListUnknowns()
	if us[0].SelectedAnswer != "Canberra" {
		t.Errorf("selected answer = %q", us[0].SelectedAnswer)
	}

	if err := s.DeleteUnknown(u.ID); err != nil {
		t.Fatal(err)
	}
	us, _ = s.ListUnknowns()
	if len(us) != 0 {
		t.Errorf("after delete unknowns = %+v", us)
	}
}

func TestResolveUnknownPromotes(t *testing.T) {
	s := newTestStore(t)

	u := question.UnknownQuestion{
		ID:           uuid.New(),
		QuestionText: "What is the capital of Australia?",
		Timestamp:    time.Now(),
	}
	if err := s.InsertUnknown(u); err != nil {
		t.Fatal(err)
	}

	err := s.ResolveUnknown(u.ID, question.QuestionAnswer{Text: u.QuestionText, Answer: "Canberra"})
	if err != nil {
		t.Fatal(err)
	}

	qs, _ := s.ListUserQuestions()
	if len(qs) != 1 || qs[0].Answer != "Canberra" {
		t.Errorf("user questions = %+v", qs)
	}
	us, _ := s.ListUnknowns()
	if len(us) != 0 {
		t.Errorf("unknowns = %+v, want empty", us)
	}
}

func testLayout(name string) *layout.Layout {
	l := layout.NewLayout(name, layout.Rect{X: 0, Y: 0, W: 800, H: 600})
	q := layout.NewZone("Question", layout.ZoneQuestion, layout.Rect{X: 0, Y: 0, W: 1, H: 0.3})
	l.Question = &q
	l.Answers = []layout.Zone{
		layout.NewZone("A", layout.ZoneAnswer, layout.Rect{X: 0, Y: 0.4, W: 0.5, H: 0.3}),
		layout.NewZone("B", layout.ZoneAnswer, layout.Rect{X: 0.5, Y: 0.4, W: 0.5, H: 0.3}),
	}
	return l
}

func TestLayoutActivation(t *testing.T) {
	s := newTestStore(t)

	if l, err := s.ActiveLayout(); err != nil || l != nil {
		t.Fatalf("empty store active layout = %v, %v", l, err)
	}

	l1 := testLayout("first")
	l2 := testLayout("second")
	if err := s.SaveLayout(l1); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveLayout(l2); err != nil {
		t.Fatal(err)
	}

	if err := s.ActivateLayout(l1.ID); err != nil {
		t.Fatal(err)
	}
	active, err := s.ActiveLayout()
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != l1.ID {
		t.Fatalf("active = %+v, want %s", active, l1.ID)
	}

	// Activating another layout deactivates the first.
	if err := s.ActivateLayout(l2.ID); err != nil {
		t.Fatal(err)
	}
	active, _ = s.ActiveLayout()
	if active == nil || active.ID != l2.ID {
		t.Fatalf("active = %+v, want %s", active, l2.ID)
	}

	all, err := s.ListLayouts()
	if err != nil {
		t.Fatal(err)
	}
	activeCount := 0
	for _, sl := range all {
		if sl.Active {
			activeCount++
		}
	}
	if len(all) != 2 || activeCount != 1 {
		t.Errorf("layouts = %d, active = %d, want 2/1", len(all), activeCount)
	}

	if err := s.ActivateLayout(uuid.New()); err == nil {
		t.Error("activating a missing layout should fail")
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	s := newTestStore(t)

	l := testLayout("quiz")
	if err := s.SaveLayout(l); err != nil {
		t.Fatal(err)
	}
	if err := s.ActivateLayout(l.ID); err != nil {
		t.Fatal(err)
	}

	got, err := s.ActiveLayout()
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "quiz" || got.Question == nil || len(got.Answers) != 2 {
		t.Fatalf("round-tripped layout = %+v", got)
	}
	if got.Answers[1].Label != "B" || got.Answers[1].Rect != l.Answers[1].Rect {
		t.Errorf("zone B = %+v", got.Answers[1])
	}
}

func TestImportExportQuestions(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "questions.json")
	content := `[
		{"text": "Which river is the longest?", "answer": "Nile"},
		{"text": "", "answer": "dropped"},
		{"text": "What is the capital of Australia?", "answer": "Canberra"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := s.ImportQuestionFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("imported = %d, want 2", n)
	}

	out := filepath.Join(dir, "export.json")
	if err := s.ExportUserQuestions(out); err != nil {
		t.Fatal(err)
	}
	qs, err := LoadQuestionFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 2 {
		t.Errorf("exported = %d, want 2", len(qs))
	}
}
