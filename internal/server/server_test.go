package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-editor/internal/assist"
	"github.com/jonathan/resume-editor/internal/db"
	"github.com/jonathan/resume-editor/internal/llm"
	"github.com/jonathan/resume-editor/internal/server/ratelimit"
	"github.com/jonathan/resume-editor/internal/transform"
	"github.com/jonathan/resume-editor/internal/types"
)

// fakeClient answers every prompt with reply, or err.
type fakeClient struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeClient) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeClient) Close() error { return nil }

func rewriteReply(text string) string {
	return fmt.Sprintf(`{"options":[{"text":%q,"label":"a"}],"reasoning":"r"}`, text)
}

type testServer struct {
	*Server
	store *db.MemoryStore
}

func newTestServer(t *testing.T, client llm.Client, rl *ratelimit.Config) *testServer {
	t.Helper()
	if rl == nil {
		rl = &ratelimit.Config{Enabled: false}
	}
	var rewriter *assist.Rewriter
	if client != nil {
		rewriter = assist.NewRewriter(client, "", nil)
	}
	store := db.NewMemoryStore()
	s := New(Config{TransformTimeout: 5 * time.Second, MaxInFlightTransforms: 2, RateLimit: rl}, store, rewriter, nil)
	t.Cleanup(s.Close)
	return &testServer{Server: s, store: store}
}

func (ts *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createCV(t *testing.T, name string) types.CV {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/cvs", types.CreateCVRequest{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cv types.CV
	decodeBody(t, rec, &cv)
	return cv
}

func (ts *testServer) stored(t *testing.T, id uuid.UUID) *types.CV {
	t.Helper()
	cv, err := ts.store.GetCV(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, cv)
	return cv
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	decodeBody(t, rec, &body)
	msg, _ := body["error"].(string)
	return msg
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCVLifecycle(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	cv := ts.createCV(t, "Main")
	assert.Equal(t, "Main", cv.Name)
	assert.Contains(t, cv.Data, "personal")

	rec := ts.do(t, http.MethodGet, "/cvs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []types.CVSummary
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, cv.ID, list[0].ID)

	rec = ts.do(t, http.MethodPut, "/cvs/"+cv.ID.String()+"/name", types.RenameCVRequest{Name: "Backend"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPut, "/cvs/"+cv.ID.String()+"/template", types.ChangeTemplateRequest{TemplateID: "modern"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/cvs/"+cv.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got types.CV
	decodeBody(t, rec, &got)
	assert.Equal(t, "Backend", got.Name)
	assert.Equal(t, "modern", got.TemplateID)

	rec = ts.do(t, http.MethodPost, "/cvs/"+cv.ID.String()+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dup types.CV
	decodeBody(t, rec, &dup)
	assert.Equal(t, "Backend"+db.CopySuffix, dup.Name)
	assert.NotEqual(t, cv.ID, dup.ID)

	rec = ts.do(t, http.MethodDelete, "/cvs/"+cv.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, "/cvs/"+cv.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/cvs/"+cv.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCV_Validation(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPost, "/cvs", types.CreateCVRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/cvs", map[string]any{"name": "x", "data": map[string]any{"summary": "no personal"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "personal")

	req := httptest.NewRequest(http.MethodPost, "/cvs", strings.NewReader("{not json"))
	raw := httptest.NewRecorder()
	ts.Handler().ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestCVRoutes_BadAndUnknownID(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/cvs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	missing := uuid.NewString()
	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/cvs/" + missing},
		{http.MethodGet, "/cvs/" + missing + "/view"},
		{http.MethodPost, "/cvs/" + missing + "/duplicate"},
		{http.MethodPost, "/cvs/" + missing + "/sections/skills/start"},
	} {
		rec := ts.do(t, tc.method, tc.target, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.target)
	}
}

func TestSetField_PersistsThroughEditor(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()

	rec := ts.do(t, http.MethodPost, base+"/fields", types.SetFieldRequest{Path: "personal.fullName", Value: "Ada Lovelace"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var field FieldResponse
	decodeBody(t, rec, &field)
	assert.Equal(t, FieldResponse{Path: "personal.fullName", Value: "Ada Lovelace"}, field)

	personal := ts.stored(t, cv.ID).Data["personal"].(map[string]any)
	assert.Equal(t, "Ada Lovelace", personal["fullName"])
}

func TestEdits_Errors(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"malformed path", http.MethodPost, "/fields", map[string]any{"path": "personal..x", "value": "v"}, http.StatusBadRequest},
		{"not addressable", http.MethodPost, "/fields", types.SetFieldRequest{Path: "personal.fullName.first", Value: "v"}, http.StatusBadRequest},
		{"missing index", http.MethodPost, "/fields", types.SetFieldRequest{Path: "experience.0.position", Value: "v"}, http.StatusBadRequest},
		{"remove out of range", http.MethodDelete, "/items", types.RemoveRequest{Path: "skills", Index: 3}, http.StatusBadRequest},
		{"insert into non-sequence", http.MethodPost, "/items", types.InsertRequest{Path: "summary", Value: "v"}, http.StatusBadRequest},
		{"move out of range", http.MethodPost, "/items/move", types.MoveRequest{Path: "skills", From: 0, To: 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, base+tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, "", ts.stored(t, cv.ID).Data["summary"], "failed edits leave the document alone")
}

func TestItems(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()

	for _, skill := range []string{"Go", "SQL", "Rust"} {
		rec := ts.do(t, http.MethodPost, base+"/items", types.InsertRequest{Path: "skills", Value: skill})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := ts.do(t, http.MethodPost, base+"/items/move", types.MoveRequest{Path: "skills", From: 2, To: 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodDelete, base+"/items", types.RemoveRequest{Path: "skills", Index: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var field FieldResponse
	decodeBody(t, rec, &field)
	assert.Equal(t, []any{"Rust", "SQL"}, field.Value)
	assert.Equal(t, []any{"Rust", "SQL"}, ts.stored(t, cv.ID).Data["skills"])
}

func TestSectionSession(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()

	rec := ts.do(t, http.MethodPost, base+"/sections/summary/start", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, base+"/sections/skills/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "only one section at a time")

	rec = ts.do(t, http.MethodPost, base+"/fields", types.SetFieldRequest{Path: "summary", Value: "Draft text"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// canonical readers do not see the draft
	rec = ts.do(t, http.MethodGet, base, nil)
	var got types.CV
	decodeBody(t, rec, &got)
	assert.Equal(t, "", got.Data["summary"])
	assert.Equal(t, "", ts.stored(t, cv.ID).Data["summary"])

	// the section's renderer does
	rec = ts.do(t, http.MethodGet, base+"/view?section=summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view ViewResponse
	decodeBody(t, rec, &view)
	assert.Equal(t, "Draft text", view.Document["summary"])
	assert.Equal(t, SessionResponse{State: "editing", Section: "summary"}, view.Session)

	rec = ts.do(t, http.MethodGet, base+"/view?section=skills", nil)
	decodeBody(t, rec, &view)
	assert.Equal(t, "", view.Document["summary"])

	rec = ts.do(t, http.MethodPost, base+"/sections/skills/save", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "saving a section that is not open")

	rec = ts.do(t, http.MethodPost, base+"/sections/summary/save", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Draft text", ts.stored(t, cv.ID).Data["summary"])

	rec = ts.do(t, http.MethodPost, base+"/sections/summary/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "no open session")

	rec = ts.do(t, http.MethodPost, base+"/sections/hobbies/start", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSectionSession_Cancel(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/sections/skills/start", nil).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/items", types.InsertRequest{Path: "skills", Value: "Go"}).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/sections/skills/cancel", nil).Code)

	rec := ts.do(t, http.MethodGet, base+"/view?section=skills", nil)
	var view ViewResponse
	decodeBody(t, rec, &view)
	assert.Equal(t, []any{}, view.Document["skills"])
	assert.Equal(t, "idle", view.Session.State)
}

func waitForStatus(t *testing.T, ts *testServer, base, p string, want transform.Status) TransformEvent {
	t.Helper()
	var ev TransformEvent
	require.Eventually(t, func() bool {
		rec := ts.do(t, http.MethodGet, base+"/transforms?path="+p, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		ev = TransformEvent{}
		decodeBody(t, rec, &ev)
		return ev.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return ev
}

func TestTransform_Applied(t *testing.T) {
	client := &fakeClient{reply: rewriteReply("Builds reliable Go services.")}
	ts := newTestServer(t, client, nil)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/fields",
		types.SetFieldRequest{Path: "summary", Value: "I build services in Go that are reliable and fast."}).Code)

	rec := ts.do(t, http.MethodPost, base+"/transforms", types.RewriteRequest{Path: "summary", Command: "shorter"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var accepted TransformEvent
	decodeBody(t, rec, &accepted)
	assert.Equal(t, "summary", accepted.FieldPath)
	assert.NotEqual(t, uuid.Nil, accepted.RequestID)

	ev := waitForStatus(t, ts, base, "summary", transform.StatusApplied)
	assert.Equal(t, accepted.RequestID, ev.RequestID)
	assert.Equal(t, "Builds reliable Go services.", ev.Value)

	require.Eventually(t, func() bool {
		return ts.stored(t, cv.ID).Data["summary"] == "Builds reliable Go services."
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTransform_DraftContext(t *testing.T) {
	client := &fakeClient{reply: rewriteReply("Rear admiral")}
	ts := newTestServer(t, client, nil)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/sections/personal/start", nil).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/fields",
		types.SetFieldRequest{Path: "personal.fullName", Value: "Grace Hopper"}).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/fields",
		types.SetFieldRequest{Path: "personal.title", Value: "Computer scientist and naval officer"}).Code)

	rec := ts.do(t, http.MethodPost, base+"/transforms", types.RewriteRequest{Path: "personal.title", Command: "shorter"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	ev := waitForStatus(t, ts, base, "personal.title", transform.StatusApplied)
	assert.Equal(t, "Rear admiral", ev.Value)

	assert.Contains(t, client.lastPrompt(), "Name: Grace Hopper", "context comes from the open draft")
	personal := ts.stored(t, cv.ID).Data["personal"].(map[string]any)
	assert.Equal(t, "", personal["fullName"], "draft stays unsaved")
}

func TestTransform_Failed(t *testing.T) {
	client := &fakeClient{err: errors.New("quota exceeded")}
	ts := newTestServer(t, client, nil)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/fields",
		types.SetFieldRequest{Path: "summary", Value: "Original"}).Code)

	rec := ts.do(t, http.MethodPost, base+"/transforms", types.RewriteRequest{Path: "summary", Command: "improve"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	ev := waitForStatus(t, ts, base, "summary", transform.StatusFailed)
	assert.Contains(t, ev.Error, "quota exceeded")
	assert.Equal(t, "Original", ts.stored(t, cv.ID).Data["summary"])
}

func TestTransform_RequestErrors(t *testing.T) {
	ts := newTestServer(t, &fakeClient{reply: rewriteReply("x")}, nil)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()

	rec := ts.do(t, http.MethodPost, base+"/transforms", types.RewriteRequest{Path: "summary", Command: "translate"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, base+"/transforms", types.RewriteRequest{Path: "personal.nickname", Command: "fix"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, base+"/transforms", types.RewriteRequest{Path: "experience.4.description", Command: "fix"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, base+"/transforms?path=summary", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "nothing requested yet")

	rec = ts.do(t, http.MethodGet, base+"/transforms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pending":[]}`, rec.Body.String())
}

func TestTransform_NoRewriter(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	cv := ts.createCV(t, "Main")

	rec := ts.do(t, http.MethodPost, "/cvs/"+cv.ID.String()+"/transforms", types.RewriteRequest{Path: "summary", Command: "fix"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestValidateCV(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()

	rec := ts.do(t, http.MethodPost, base+"/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true}`, rec.Body.String())

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/items", types.InsertRequest{Path: "skills", Value: 42}).Code)
	rec = ts.do(t, http.MethodPost, base+"/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res ValidateResponse
	decodeBody(t, rec, &res)
	assert.False(t, res.Valid)
	fields := make([]string, 0, len(res.Errors))
	for _, fe := range res.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "skills.0")
}

// readEvent reads one server-sent event, skipping keep-alive comments.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func TestEvents(t *testing.T) {
	client := &fakeClient{reply: rewriteReply("Fixed text.")}
	ts := newTestServer(t, client, nil)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/fields",
		types.SetFieldRequest{Path: "summary", Value: "fixd txt"}).Code)

	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + base + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	stream := bufio.NewReader(resp.Body)
	event, _ := readEvent(t, stream)
	require.Equal(t, "ready", event)

	rec := ts.do(t, http.MethodPost, base+"/transforms", types.RewriteRequest{Path: "summary", Command: "fix"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	event, data := readEvent(t, stream)
	require.Equal(t, "transform", event)
	var ev TransformEvent
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, transform.StatusApplied, ev.Status)
	assert.Equal(t, "summary", ev.FieldPath)
	assert.Equal(t, "Fixed text.", ev.Value)

	rec = ts.do(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	event, _ = readEvent(t, stream)
	assert.Equal(t, "closed", event)
}

func TestRateLimit_Transforms(t *testing.T) {
	rl := &ratelimit.Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(1),
	}
	ts := newTestServer(t, &fakeClient{reply: rewriteReply("x")}, rl)
	cv := ts.createCV(t, "Main")
	base := "/cvs/" + cv.ID.String()
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/fields",
		types.SetFieldRequest{Path: "summary", Value: "text"}).Code)

	rec := ts.do(t, http.MethodPost, base+"/transforms", types.RewriteRequest{Path: "summary", Command: "fix"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = ts.do(t, http.MethodPost, base+"/transforms", types.RewriteRequest{Path: "summary", Command: "fix"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", errorMessage(t, rec))

	rec = ts.do(t, http.MethodGet, base+"/view", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "other endpoints are unaffected")
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	rec := ts.do(t, http.MethodOptions, "/cvs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	s := New(Config{AllowedOrigins: []string{"https://app.example"}, RateLimit: &ratelimit.Config{}}, db.NewMemoryStore(), nil, nil)
	defer s.Close()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example")
	allowed := httptest.NewRecorder()
	s.Handler().ServeHTTP(allowed, req)
	assert.Equal(t, "https://app.example", allowed.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	denied := httptest.NewRecorder()
	s.Handler().ServeHTTP(denied, req)
	assert.Empty(t, denied.Header().Get("Access-Control-Allow-Origin"))
}
