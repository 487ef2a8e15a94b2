package engine

import (
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starkad/ordna/internal/apperr"
	"github.com/starkad/ordna/internal/files"
	"github.com/starkad/ordna/internal/models"
	"github.com/starkad/ordna/internal/schedule"
	"github.com/starkad/ordna/internal/store"
)

// recorder captures published events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(eventType string, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == eventType {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T) (*Engine, *schedule.Manual, *recorder) {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ordna-engine-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	fs, err := files.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	sched := schedule.NewManual(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	rec := &recorder{}
	eng, err := New(db, fs, sched, WithNotifier(rec))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng, sched, rec
}

// busyMessages produce a project-worthy conversation mentioning react.
func busyMessages() []string {
	long := "The react component framework needs a new algorithm for the database query layer. " +
		"Every function call hits the api endpoint twice and the schema dependency graph " +
		"forces a full refactor of the repository before we can deploy the container.\n```js\nrender()\n```"
	msgs := make([]string, 6)
	for i := range msgs {
		msgs[i] = long
	}
	return msgs
}

func appendAll(t *testing.T, eng *Engine, convID string, contents []string) {
	t.Helper()
	for _, c := range contents {
		if err := eng.AppendMessage(convID, models.RoleUser, c, nil); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDebounce_CollapsesBurstIntoOneAnalysis(t *testing.T) {
	eng, sched, rec := newTestEngine(t)
	conv := eng.StartConversation()

	appendAll(t, eng, conv.ID, busyMessages())
	if rec.count("suggestion.surfaced") != 0 {
		t.Fatal("analysis ran before the debounce window elapsed")
	}

	sched.Advance(2 * time.Second)
	if got := rec.count("suggestion.surfaced"); got != 1 {
		t.Errorf("surfaced = %d, want exactly 1", got)
	}
}

func TestActiveSuggestion_AtMostOne(t *testing.T) {
	eng, sched, rec := newTestEngine(t)
	conv := eng.StartConversation()
	appendAll(t, eng, conv.ID, busyMessages())
	sched.Advance(2 * time.Second)

	first := eng.ActiveSuggestion(conv.ID)
	if first == nil {
		t.Fatal("no active suggestion after analysis")
	}

	// A second analysis while one is active is a silent no-op.
	if _, err := eng.Analyze(conv.ID); err != nil {
		t.Fatal(err)
	}
	second := eng.ActiveSuggestion(conv.ID)
	if second == nil || second.ID != first.ID {
		t.Error("active suggestion replaced while still pending")
	}
	if got := rec.count("suggestion.surfaced"); got != 1 {
		t.Errorf("surfaced = %d, want 1", got)
	}
}

func TestSuggestion_ExpiryIsImplicitDismissal(t *testing.T) {
	eng, sched, rec := newTestEngine(t)
	conv := eng.StartConversation()
	appendAll(t, eng, conv.ID, busyMessages())
	sched.Advance(2 * time.Second)

	sugg := eng.ActiveSuggestion(conv.ID)
	if sugg == nil {
		t.Fatal("no active suggestion")
	}

	sched.Advance(15 * time.Second)
	if eng.ActiveSuggestion(conv.ID) != nil {
		t.Error("suggestion still active after TTL")
	}
	if rec.count("suggestion.expired") != 1 {
		t.Error("no expiry event")
	}

	// Implicit dismissal leaves preference weights untouched.
	p := eng.Patterns()
	if w := p.Weight(sugg.Type); w != 0.5 {
		t.Errorf("weight after expiry = %v, want untouched 0.5", w)
	}

	// Responding to the expired suggestion fails.
	if _, err := eng.RespondSuggestion(conv.ID, sugg.ID, true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("respond after expiry: %v, want ErrNotFound", err)
	}
}

func TestRespondSuggestion_AcceptCreatesProjectAndOrganizes(t *testing.T) {
	eng, sched, rec := newTestEngine(t)
	conv := eng.StartConversation()
	appendAll(t, eng, conv.ID, busyMessages())
	sched.Advance(2 * time.Second)

	sugg := eng.ActiveSuggestion(conv.ID)
	if sugg == nil {
		t.Fatal("no active suggestion")
	}
	if sugg.Type != models.SuggestCreateProject {
		t.Fatalf("type = %q, want create_project", sugg.Type)
	}
	if sugg.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", sugg.Confidence)
	}

	result, err := eng.RespondSuggestion(conv.ID, sugg.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Accepted || result.ProjectID == "" {
		t.Fatalf("result = %+v", result)
	}

	projects := eng.Projects()
	if len(projects) != 1 || projects[0].ID != result.ProjectID {
		t.Fatalf("projects = %+v", projects)
	}
	if len(projects[0].Messages) != 6 {
		t.Errorf("project messages = %d, want 6 carried over", len(projects[0].Messages))
	}

	got, err := eng.Conversation(conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != models.ModeProjectChat || !got.Organized || got.ProjectID != result.ProjectID {
		t.Errorf("conversation = mode %q organized %v project %q", got.Mode, got.Organized, got.ProjectID)
	}
	if len(got.Transitions) != 1 || got.Transitions[0].To != models.ModeProjectChat {
		t.Errorf("transitions = %+v", got.Transitions)
	}

	// Acceptance raised the weight for this suggestion type.
	if w := eng.Patterns().Weight(models.SuggestCreateProject); w != 0.6 {
		t.Errorf("weight = %v, want 0.6", w)
	}
	if rec.count("suggestion.accepted") != 1 || rec.count("conversation.organized") != 1 {
		t.Error("missing accepted/organized events")
	}
}

func TestRespondSuggestion_DismissLowersWeight(t *testing.T) {
	eng, sched, _ := newTestEngine(t)
	conv := eng.StartConversation()
	appendAll(t, eng, conv.ID, busyMessages())
	sched.Advance(2 * time.Second)

	sugg := eng.ActiveSuggestion(conv.ID)
	if sugg == nil {
		t.Fatal("no active suggestion")
	}
	result, err := eng.RespondSuggestion(conv.ID, sugg.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Accepted {
		t.Error("dismissal reported as accepted")
	}
	if len(eng.Projects()) != 0 {
		t.Error("dismissal created a project")
	}
	p := eng.Patterns()
	if w := p.Weight(sugg.Type); w != 0.4 {
		t.Errorf("weight = %v, want 0.4", w)
	}
	if len(p.Dismissed) != 1 {
		t.Errorf("dismissal history = %d, want 1", len(p.Dismissed))
	}
}

func TestOrganized_SilencesAutomaticAnalysis(t *testing.T) {
	eng, sched, rec := newTestEngine(t)
	conv := eng.StartConversation()
	appendAll(t, eng, conv.ID, busyMessages())
	sched.Advance(2 * time.Second)

	sugg := eng.ActiveSuggestion(conv.ID)
	if _, err := eng.RespondSuggestion(conv.ID, sugg.ID, true); err != nil {
		t.Fatal(err)
	}
	surfacedBefore := rec.count("suggestion.surfaced")

	// New traffic on the organized conversation never auto-analyzes.
	appendAll(t, eng, conv.ID, busyMessages())
	sched.Advance(time.Minute)
	if got := rec.count("suggestion.surfaced"); got != surfacedBefore {
		t.Errorf("organized conversation surfaced %d new suggestions", got-surfacedBefore)
	}

	// A manual pass still works and can surface.
	insight, err := eng.Analyze(conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if insight == nil {
		t.Fatal("manual analysis returned nothing")
	}
	if rec.count("suggestion.surfaced") != surfacedBefore+1 {
		t.Error("manual analysis did not surface")
	}
}

func TestRespondSuggestion_UnknownID(t *testing.T) {
	eng, sched, _ := newTestEngine(t)
	conv := eng.StartConversation()
	appendAll(t, eng, conv.ID, busyMessages())
	sched.Advance(2 * time.Second)

	if _, err := eng.RespondSuggestion(conv.ID, "bogus", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := eng.RespondSuggestion("no-conv", "bogus", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMoveConversation_UnknownProject(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	conv := eng.StartConversation()
	err := eng.MoveConversationToProject(conv.ID, "ghost", true, "manual move")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error does not name the project: %v", err)
	}
}

func TestMoveConversation_Manual(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	proj, err := eng.CreateProject("Side Quest", "odds and ends")
	if err != nil {
		t.Fatal(err)
	}
	conv := eng.StartConversation()
	appendAll(t, eng, conv.ID, []string{"hello", "world"})

	if err := eng.MoveConversationToProject(conv.ID, proj.ID, true, "user moved it"); err != nil {
		t.Fatal(err)
	}
	got, _ := eng.Conversation(conv.ID)
	if !got.Organized || got.ProjectID != proj.ID {
		t.Errorf("conversation = %+v", got)
	}
	if !got.Transitions[0].UserInitiated {
		t.Error("transition not marked user initiated")
	}
}

func TestCreateProject_LearnsNamingStyle(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	if _, err := eng.CreateProject("My Summer Travel Plans", ""); err != nil {
		t.Fatal(err)
	}
	if style := eng.Patterns().NamingStyle; style != models.StyleDescriptive {
		t.Errorf("style = %q, want descriptive", style)
	}
	if _, err := eng.CreateProject("api-v2", ""); err != nil {
		t.Fatal(err)
	}
	if style := eng.Patterns().NamingStyle; style != models.StyleTechnical {
		t.Errorf("style = %q, want technical", style)
	}
	if _, err := eng.CreateProject("  ", ""); err == nil {
		t.Error("blank title accepted")
	}
}

func TestConversations_NewestFirst(t *testing.T) {
	eng, sched, _ := newTestEngine(t)
	a := eng.StartConversation()
	sched.Advance(time.Minute)
	b := eng.StartConversation()

	list := eng.Conversations()
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
		t.Errorf("order = %v, %v", list[0].ID, list[1].ID)
	}
}

func TestSplitConversation_OnAcceptedShift(t *testing.T) {
	eng, sched, _ := newTestEngine(t)
	conv := eng.StartConversation()

	// Enough messages for shift detection: early recipe talk, then react.
	contents := []string{
		"my recipe for bread needs work",
		"the recipe wants more salt",
		"knead the dough longer",
		"it turned out well",
		"the react component keeps rerendering",
		"a react hook should fix the component",
	}
	appendAll(t, eng, conv.ID, contents)
	sched.Advance(2 * time.Second)

	sugg := eng.ActiveSuggestion(conv.ID)
	if sugg == nil {
		t.Fatal("no suggestion for shifted conversation")
	}
	if sugg.Type != models.SuggestSplitConversation {
		t.Fatalf("type = %q, want split_conversation", sugg.Type)
	}

	result, err := eng.RespondSuggestion(conv.ID, sugg.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if result.ConversationID == "" {
		t.Fatal("split did not produce a new conversation")
	}
	split, err := eng.Conversation(result.ConversationID)
	if err != nil {
		t.Fatal(err)
	}
	if len(split.Messages) != 4 {
		t.Errorf("split carried %d messages, want the 4-message tail", len(split.Messages))
	}
	if split.Mode != models.ModeQuickChat {
		t.Errorf("split mode = %q, want quick_chat", split.Mode)
	}
}

func TestPersistence_SurvivesRestart(t *testing.T) {
	dbFile, err := os.CreateTemp("", "ordna-restart-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	defer os.Remove(dbFile.Name())

	uploads := t.TempDir()
	sched := schedule.NewManual(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	fs, err := files.NewStore(uploads)
	if err != nil {
		t.Fatal(err)
	}
	eng, err := New(db, fs, sched)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.CreateProject("Long Running Work", "persisted"); err != nil {
		t.Fatal(err)
	}
	eng.Close()
	db.Close()

	db2, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	eng2, err := New(db2, fs, sched)
	if err != nil {
		t.Fatal(err)
	}
	defer eng2.Close()

	projects := eng2.Projects()
	if len(projects) != 1 || projects[0].Title != "Long Running Work" {
		t.Errorf("reloaded projects = %+v", projects)
	}
	if style := eng2.Patterns().NamingStyle; style != models.StyleDescriptive {
		t.Errorf("reloaded style = %q", style)
	}
}
