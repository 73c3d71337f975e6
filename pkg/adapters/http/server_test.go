package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockConcierge records calls and serves canned sessions.
type MockConcierge struct {
	mu       sync.Mutex
	opened   []string
	choices  []string
	texts    []string
	sessions map[string]*domain.Session
	timeline []domain.Message
	stream   []orchestrator.MessageAppended
	err      error
}

func newMock() *MockConcierge {
	return &MockConcierge{sessions: make(map[string]*domain.Session)}
}

func (m *MockConcierge) Open(_ context.Context, id string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.opened = append(m.opened, id)
	gen := uint64(1)
	if s, ok := m.sessions[id]; ok {
		gen = s.Generation + 1
	}
	m.sessions[id] = domain.NewSession(id, gen)
	return gen, nil
}

func (m *MockConcierge) ChoiceMade(_ context.Context, id, choiceID string) (orchestrator.Receipt, error) {
	return m.record(id, "any:"+choiceID)
}

func (m *MockConcierge) ChooseOption(_ context.Context, id string, messageID int64, choiceID string) (orchestrator.Receipt, error) {
	return m.record(id, fmt.Sprintf("%d:%s", messageID, choiceID))
}

func (m *MockConcierge) record(id, choice string) (orchestrator.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return orchestrator.Receipt{}, domain.ErrSessionNotFound
	}
	m.choices = append(m.choices, choice)
	if strings.HasSuffix(choice, ":stale") {
		return orchestrator.Receipt{Generation: s.Generation, Rejected: true, Reason: "stale_choice"}, nil
	}
	return orchestrator.Receipt{Generation: s.Generation}, nil
}

func (m *MockConcierge) TextSubmitted(_ context.Context, id, text string) (orchestrator.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return orchestrator.Receipt{}, domain.ErrSessionNotFound
	}
	if len(text) > 8 {
		return orchestrator.Receipt{}, orchestrator.ErrInputTooLarge
	}
	m.texts = append(m.texts, text)
	return orchestrator.Receipt{Generation: 1}, nil
}

func (m *MockConcierge) Snapshot(id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MockConcierge) Timeline(id string) ([]domain.Message, error) {
	if _, err := m.Snapshot(id); err != nil {
		return nil, err
	}
	return m.timeline, nil
}

func (m *MockConcierge) Subscribe(string) (<-chan orchestrator.MessageAppended, func()) {
	ch := make(chan orchestrator.MessageAppended, len(m.stream))
	for _, ev := range m.stream {
		ch <- ev
	}
	close(ch)
	return ch, func() {}
}

func (m *MockConcierge) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.opened...)
}

func (m *MockConcierge) Graph() []domain.Edge {
	return []domain.Edge{{From: domain.StepWelcome, To: domain.StepRoleSelect, Label: "role chosen"}}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCreateAndOpenSession(t *testing.T) {
	mock := newMock()
	h := NewHandler(mock)

	w := do(t, h, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var created sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, uint64(1), created.Generation)

	w = do(t, h, http.MethodPost, "/sessions/"+created.ID+"/open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reopened sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reopened))
	assert.Equal(t, uint64(2), reopened.Generation)

	w = do(t, h, http.MethodGet, "/sessions", nil)
	assert.Contains(t, w.Body.String(), created.ID)
}

func TestChoose(t *testing.T) {
	mock := newMock()
	h := NewHandler(mock)
	_, _ = mock.Open(context.Background(), "s1")

	w := do(t, h, http.MethodPost, "/sessions/s1/choices", choiceRequest{ChoiceID: "founder"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/sessions/s1/choices", choiceRequest{ChoiceID: "stale", MessageID: 3})
	require.Equal(t, http.StatusOK, w.Code)
	var receipt orchestrator.Receipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.True(t, receipt.Rejected)
	assert.Equal(t, "stale_choice", receipt.Reason)

	assert.Equal(t, []string{"any:founder", "3:stale"}, mock.choices)

	w = do(t, h, http.MethodPost, "/sessions/s1/choices", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/sessions/missing/choices", choiceRequest{ChoiceID: "founder"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitText(t *testing.T) {
	mock := newMock()
	h := NewHandler(mock)
	_, _ = mock.Open(context.Background(), "s1")

	w := do(t, h, http.MethodPost, "/sessions/s1/messages", textRequest{Text: "acme.io"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"acme.io"}, mock.texts)

	w = do(t, h, http.MethodPost, "/sessions/s1/messages", textRequest{Text: "far too long"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "maximum allowed size")

	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/messages", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSessionAndTimeline(t *testing.T) {
	mock := newMock()
	mock.timeline = []domain.Message{
		{ID: 1, Sender: domain.SenderBot, Body: "hello"},
		{ID: 2, Sender: domain.SenderUser, Body: "founder"},
	}
	h := NewHandler(mock)
	_, _ = mock.Open(context.Background(), "s1")

	w := do(t, h, http.MethodGet, "/sessions/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, domain.StepWelcome, snap.Step.Kind)

	w = do(t, h, http.MethodGet, "/sessions/s1/timeline?after=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []domain.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(2), msgs[0].ID)

	w = do(t, h, http.MethodGet, "/sessions/s1/timeline?after=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetGraph(t *testing.T) {
	mock := newMock()
	h := NewHandler(mock)
	_, _ = mock.Open(context.Background(), "s1")

	w := do(t, h, http.MethodGet, "/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `welcome -- "role chosen" --> role_select`)
	assert.NotContains(t, w.Body.String(), "classDef")

	w = do(t, h, http.MethodGet, "/graph?session=s1", nil)
	assert.Contains(t, w.Body.String(), "class welcome current;")
}

func TestSubscribeEvents_Session(t *testing.T) {
	mock := newMock()
	mock.stream = []orchestrator.MessageAppended{
		{SessionID: "s1", Generation: 1, Message: domain.Message{ID: 1, Sender: domain.SenderBot, Body: "hi"}},
	}
	h := NewHandler(mock)
	_, _ = mock.Open(context.Background(), "s1")

	w := do(t, h, http.MethodGet, "/sessions/s1/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: ping\ndata: connected\n\n"))
	assert.Contains(t, body, "event: message\nid: 1-1\n")
	assert.Contains(t, body, `"body":"hi"`)

	w = do(t, h, http.MethodGet, "/sessions/other/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribeEvents_ResumesFromLastEventID(t *testing.T) {
	mock := newMock()
	_, _ = mock.Open(context.Background(), "s1")
	for i := int64(1); i <= 3; i++ {
		mock.timeline = append(mock.timeline, domain.Message{ID: i, Sender: domain.SenderBot, Body: fmt.Sprintf("m%d", i)})
	}
	mock.stream = []orchestrator.MessageAppended{
		{SessionID: "s1", Generation: 1, Message: mock.timeline[2]},
		{SessionID: "s1", Generation: 1, Message: domain.Message{ID: 4, Sender: domain.SenderBot, Body: "m4"}},
	}
	h := NewHandler(mock)

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1/events", nil)
	req.Header.Set("Last-Event-ID", "1-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.NotContains(t, body, "id: 1-1\n")
	assert.Equal(t, 1, strings.Count(body, "id: 1-2\n"))
	assert.Equal(t, 1, strings.Count(body, "id: 1-3\n"), "messages already replayed are not sent twice")
	assert.Equal(t, 1, strings.Count(body, "id: 1-4\n"))
	assert.Less(t, strings.Index(body, `"body":"m2"`), strings.Index(body, `"body":"m4"`))
}

func TestSubscribeEvents_ReplaysWholeTimelineAfterRestart(t *testing.T) {
	mock := newMock()
	_, _ = mock.Open(context.Background(), "s1")
	_, _ = mock.Open(context.Background(), "s1")
	mock.timeline = []domain.Message{
		{ID: 1, Sender: domain.SenderBot, Body: "hello again"},
		{ID: 2, Sender: domain.SenderBot, Body: "who are you?"},
	}
	h := NewHandler(mock)

	w := do(t, h, http.MethodGet, "/sessions/s1/events?last_event_id=1-7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "id: 2-1\n")
	assert.Contains(t, body, "id: 2-2\n")
	assert.Contains(t, body, `"generation":2`)
}

func TestParseEventID(t *testing.T) {
	tests := []struct {
		in    string
		gen   uint64
		msgID int64
		ok    bool
	}{
		{"3-12", 3, 12, true},
		{"12", 0, 12, true},
		{"x-1", 0, 0, false},
		{"1-y", 0, 0, false},
		{"-5", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		gen, msgID, ok := parseEventID(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.gen, gen, tt.in)
			assert.Equal(t, tt.msgID, msgID, tt.in)
		}
	}
}

func TestHealthInfoAndCORS(t *testing.T) {
	h := NewHandler(newMock(), WithVersion("1.2.3"), WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "metrics")
	})))

	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/info", nil)
	assert.Contains(t, w.Body.String(), "1.2.3")

	w = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, "metrics", w.Body.String())

	w = do(t, h, http.MethodOptions, "/sessions", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("x: %w", domain.ErrSessionNotFound)))
	assert.Equal(t, http.StatusBadRequest, statusFor(orchestrator.ErrInvalidUTF8))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(orchestrator.ErrClosed))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestOpenFailure(t *testing.T) {
	mock := newMock()
	mock.err = orchestrator.ErrClosed
	w := do(t, NewHandler(mock), http.MethodPost, "/sessions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
