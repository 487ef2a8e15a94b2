package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starkad/ordna/internal/engine"
	"github.com/starkad/ordna/internal/models"
	"github.com/starkad/ordna/internal/schedule"
	"github.com/starkad/ordna/internal/testutil"
)

// testEnv sets up a manual-clock engine and router. authToken empty means
// auth disabled.
func testEnv(t *testing.T, authToken string) (*engine.Engine, *schedule.Manual, http.Handler) {
	t.Helper()
	eng, sched := testutil.TestEngine(t)
	router := NewRouter(eng, authToken != "", authToken, nil)
	return eng, sched, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestConversationLifecycle(t *testing.T) {
	_, sched, router := testEnv(t, "")

	// Create.
	w := doJSON(t, router, http.MethodPost, "/conversations", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var conv models.Conversation
	if err := json.Unmarshal(w.Body.Bytes(), &conv); err != nil {
		t.Fatal(err)
	}
	if conv.Mode != models.ModeQuickChat {
		t.Errorf("mode = %q, want quick_chat", conv.Mode)
	}

	// Append a message.
	w = doJSON(t, router, http.MethodPost, "/conversations/"+conv.ID+"/messages",
		map[string]string{"role": "user", "content": "hello there"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("append status = %d, body = %s", w.Code, w.Body.String())
	}

	// Fetch it back.
	sched.Advance(2 * time.Second)
	w = doJSON(t, router, http.MethodGet, "/conversations/"+conv.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp ConversationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Conversation.Messages) != 1 {
		t.Errorf("messages = %d, want 1", len(resp.Conversation.Messages))
	}

	// List includes it.
	w = doJSON(t, router, http.MethodGet, "/conversations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
}

func TestAppendMessage_Validation(t *testing.T) {
	_, _, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodPost, "/conversations", nil)
	var conv models.Conversation
	_ = json.Unmarshal(w.Body.Bytes(), &conv)

	w = doJSON(t, router, http.MethodPost, "/conversations/"+conv.ID+"/messages",
		map[string]string{"role": "user"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty content status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/conversations/"+conv.ID+"/messages",
		map[string]string{"role": "wizard", "content": "hi"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad role status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/conversations/nope/messages",
		map[string]string{"role": "user", "content": "hi"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown conversation status = %d, want 404", w.Code)
	}
}

func busyContent() string {
	return "The react component framework needs a new algorithm for the database query layer. " +
		"Every function call hits the api endpoint twice and the schema dependency graph " +
		"forces a full refactor of the repository before we can deploy the container.\n```js\nrender()\n```"
}

func surfaceSuggestion(t *testing.T, router http.Handler, sched *schedule.Manual) (string, models.Suggestion) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/conversations", nil)
	var conv models.Conversation
	_ = json.Unmarshal(w.Body.Bytes(), &conv)

	for i := 0; i < 6; i++ {
		w = doJSON(t, router, http.MethodPost, "/conversations/"+conv.ID+"/messages",
			map[string]string{"role": "user", "content": busyContent()})
		if w.Code != http.StatusAccepted {
			t.Fatalf("append status = %d", w.Code)
		}
	}
	sched.Advance(2 * time.Second)

	w = doJSON(t, router, http.MethodGet, "/conversations/"+conv.ID, nil)
	var resp ConversationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Active == nil {
		t.Fatal("no active suggestion surfaced")
	}
	return conv.ID, *resp.Active
}

func TestSuggestionFlow_Accept(t *testing.T) {
	_, sched, router := testEnv(t, "")
	convID, sugg := surfaceSuggestion(t, router, sched)

	w := doJSON(t, router, http.MethodPost, "/conversations/"+convID+"/suggestion",
		map[string]any{"suggestion_id": sugg.ID, "accept": true})
	if w.Code != http.StatusOK {
		t.Fatalf("respond status = %d, body = %s", w.Code, w.Body.String())
	}
	var result engine.RespondResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Accepted || result.ProjectID == "" {
		t.Errorf("result = %+v", result)
	}

	// The project now lists.
	w = doJSON(t, router, http.MethodGet, "/projects", nil)
	var projList struct {
		Projects []models.Project `json:"projects"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &projList)
	if len(projList.Projects) != 1 {
		t.Errorf("projects = %d, want 1", len(projList.Projects))
	}

	// Responding again 404s.
	w = doJSON(t, router, http.MethodPost, "/conversations/"+convID+"/suggestion",
		map[string]any{"suggestion_id": sugg.ID, "accept": true})
	if w.Code != http.StatusNotFound {
		t.Errorf("second respond status = %d, want 404", w.Code)
	}
}

func TestSuggestionFlow_ManualAnalyze(t *testing.T) {
	_, _, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodPost, "/conversations", nil)
	var conv models.Conversation
	_ = json.Unmarshal(w.Body.Bytes(), &conv)

	for i := 0; i < 6; i++ {
		doJSON(t, router, http.MethodPost, "/conversations/"+conv.ID+"/messages",
			map[string]string{"role": "user", "content": busyContent()})
	}

	// Manual analysis bypasses the debounce window entirely.
	w = doJSON(t, router, http.MethodPost, "/conversations/"+conv.ID+"/analyze", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d", w.Code)
	}
	var insight models.Insight
	if err := json.Unmarshal(w.Body.Bytes(), &insight); err != nil {
		t.Fatal(err)
	}
	if insight.Topic != "React Development" {
		t.Errorf("topic = %q", insight.Topic)
	}
	if insight.Complexity != models.ComplexityProjectWorthy {
		t.Errorf("complexity = %q", insight.Complexity)
	}
	if insight.Suggestion == nil {
		t.Error("no suggestion in insight")
	}
}

func TestMoveConversation(t *testing.T) {
	_, _, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/projects",
		map[string]string{"title": "Archive", "description": "old things"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create project status = %d", w.Code)
	}
	var proj models.Project
	_ = json.Unmarshal(w.Body.Bytes(), &proj)

	w = doJSON(t, router, http.MethodPost, "/conversations", nil)
	var conv models.Conversation
	_ = json.Unmarshal(w.Body.Bytes(), &conv)

	w = doJSON(t, router, http.MethodPost, "/conversations/"+conv.ID+"/move",
		map[string]string{"project_id": proj.ID})
	if w.Code != http.StatusNoContent {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/conversations/"+conv.ID+"/move",
		map[string]string{"project_id": "ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("move to unknown project status = %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/projects/"+proj.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get project status = %d", w.Code)
	}
	var got models.Project
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Archive" {
		t.Errorf("project title = %q", got.Title)
	}

	w = doJSON(t, router, http.MethodGet, "/projects/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get unknown project status = %d, want 404", w.Code)
	}
}

func TestItemLifecycle(t *testing.T) {
	_, _, router := testEnv(t, "")
	src := testutil.WriteFile(t, t.TempDir(), "notes.md", "react component design notes")

	w := doJSON(t, router, http.MethodPost, "/items",
		map[string]any{"path": src, "chat_id": "chat-1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d, body = %s", w.Code, w.Body.String())
	}
	var item models.KnowledgeItem
	if err := json.Unmarshal(w.Body.Bytes(), &item); err != nil {
		t.Fatal(err)
	}
	if item.ChatID != "chat-1" {
		t.Errorf("chat = %q", item.ChatID)
	}

	// Reference it.
	w = doJSON(t, router, http.MethodPost, "/items/"+item.ID+"/reference?chat_id=chat-1", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("reference status = %d", w.Code)
	}

	// Search finds it.
	w = doJSON(t, router, http.MethodGet, "/search?q=react+component&chat_id=chat-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var searchResp struct {
		Results []engine.ScoredItem `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &searchResp); err != nil {
		t.Fatal(err)
	}
	if len(searchResp.Results) != 1 || searchResp.Results[0].Item.ID != item.ID {
		t.Errorf("results = %+v", searchResp.Results)
	}

	// Missing query is a 400.
	w = doJSON(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d, want 400", w.Code)
	}
}

func TestGraduateItem(t *testing.T) {
	_, _, router := testEnv(t, "")
	src := testutil.WriteFile(t, t.TempDir(), "grad.md", "text to graduate")

	w := doJSON(t, router, http.MethodPost, "/items",
		map[string]any{"path": src, "chat_id": "chat-1"})
	var item models.KnowledgeItem
	_ = json.Unmarshal(w.Body.Bytes(), &item)

	w = doJSON(t, router, http.MethodPost, "/items/"+item.ID+"/graduate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graduate status = %d, body = %s", w.Code, w.Body.String())
	}
	var graduated models.KnowledgeItem
	_ = json.Unmarshal(w.Body.Bytes(), &graduated)
	if !graduated.ProjectLevel {
		t.Error("item not project-level after graduation")
	}

	// Second graduation conflicts.
	w = doJSON(t, router, http.MethodPost, "/items/"+item.ID+"/graduate", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second graduate status = %d, want 409", w.Code)
	}

	// Dismiss with no pending suggestion is a 404.
	w = doJSON(t, router, http.MethodDelete, "/items/"+item.ID+"/graduate", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("dismiss status = %d, want 404", w.Code)
	}
}

func TestPatternsEndpoint(t *testing.T) {
	_, _, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, "/patterns", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("patterns status = %d", w.Code)
	}
	var p models.UserPatterns
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.NamingStyle != models.StyleDescriptive {
		t.Errorf("style = %q", p.NamingStyle)
	}
}

func TestAuth_TokenMode(t *testing.T) {
	_, _, router := testEnv(t, "sekrit")

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}

	// EventSource clients cannot set headers; the token is accepted as a
	// query parameter too.
	req = httptest.NewRequest(http.MethodGet, "/conversations?access_token=sekrit", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("query token status = %d, want 200", w.Code)
	}
}
