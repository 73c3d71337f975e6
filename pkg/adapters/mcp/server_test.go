package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/orchestrator"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConcierge struct {
	sessions map[string]*domain.Session
	choices  []string
	texts    []string
}

func newFake() *fakeConcierge {
	return &fakeConcierge{sessions: make(map[string]*domain.Session)}
}

func (f *fakeConcierge) Open(_ context.Context, id string) (uint64, error) {
	gen := uint64(1)
	if s, ok := f.sessions[id]; ok {
		gen = s.Generation + 1
	}
	f.sessions[id] = domain.NewSession(id, gen)
	return gen, nil
}

func (f *fakeConcierge) ChoiceMade(_ context.Context, id, choiceID string) (orchestrator.Receipt, error) {
	f.choices = append(f.choices, choiceID)
	return orchestrator.Receipt{Generation: 1}, nil
}

func (f *fakeConcierge) ChooseOption(_ context.Context, id string, messageID int64, choiceID string) (orchestrator.Receipt, error) {
	f.choices = append(f.choices, choiceID)
	return orchestrator.Receipt{Generation: 1, Rejected: true, Reason: "stale_choice"}, nil
}

func (f *fakeConcierge) TextSubmitted(_ context.Context, id, text string) (orchestrator.Receipt, error) {
	if len(text) > 5 {
		return orchestrator.Receipt{}, orchestrator.ErrInputTooLarge
	}
	f.texts = append(f.texts, text)
	return orchestrator.Receipt{Generation: 1}, nil
}

func (f *fakeConcierge) Snapshot(id string) (*domain.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (f *fakeConcierge) Timeline(id string) ([]domain.Message, error) {
	if _, ok := f.sessions[id]; !ok {
		return nil, domain.ErrSessionNotFound
	}
	return []domain.Message{{ID: 1, Sender: domain.SenderBot, Body: "hi"}}, nil
}

func (f *fakeConcierge) Graph() []domain.Edge {
	return []domain.Edge{{From: domain.StepWelcome, To: domain.StepRoleSelect}}
}

func TestStartSession(t *testing.T) {
	fake := newFake()
	s := NewServer(fake, "test", nil)
	ctx := context.Background()

	view, err := s.handleStart(ctx, mcp.CallToolRequest{}, startArgs{})
	require.NoError(t, err)
	require.NotNil(t, view.Session)
	assert.NotEmpty(t, view.Session.ID)
	assert.Equal(t, uint64(1), view.Receipt.Generation)
	assert.Len(t, view.Messages, 1)

	view, err = s.handleStart(ctx, mcp.CallToolRequest{}, startArgs{SessionID: view.Session.ID})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), view.Session.Generation)
}

func TestChoose(t *testing.T) {
	fake := newFake()
	s := NewServer(fake, "test", nil)
	ctx := context.Background()
	_, _ = fake.Open(ctx, "s1")

	view, err := s.handleChoose(ctx, mcp.CallToolRequest{}, chooseArgs{SessionID: "s1", ChoiceID: "founder"})
	require.NoError(t, err)
	assert.False(t, view.Receipt.Rejected)

	view, err = s.handleChoose(ctx, mcp.CallToolRequest{}, chooseArgs{SessionID: "s1", ChoiceID: "pay", MessageID: 2})
	require.NoError(t, err)
	assert.True(t, view.Receipt.Rejected)

	_, err = s.handleChoose(ctx, mcp.CallToolRequest{}, chooseArgs{SessionID: "s1"})
	assert.Error(t, err)

	assert.Equal(t, []string{"founder", "pay"}, fake.choices)
}

func TestSubmitText(t *testing.T) {
	fake := newFake()
	s := NewServer(fake, "test", nil)
	ctx := context.Background()
	_, _ = fake.Open(ctx, "s1")

	_, err := s.handleSubmitText(ctx, mcp.CallToolRequest{}, textArgs{SessionID: "s1", Text: "ok"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, fake.texts)

	_, err = s.handleSubmitText(ctx, mcp.CallToolRequest{}, textArgs{SessionID: "s1", Text: "too long"})
	assert.ErrorIs(t, err, orchestrator.ErrInputTooLarge)
}

func TestGetSession_NotFound(t *testing.T) {
	s := NewServer(newFake(), "test", nil)
	_, err := s.handleGetSession(context.Background(), mcp.CallToolRequest{}, startArgs{SessionID: "nope"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestGetGraph(t *testing.T) {
	fake := newFake()
	s := NewServer(fake, "test", nil)
	_, _ = fake.Open(context.Background(), "s1")

	res, err := s.handleGetGraph(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "welcome --> role_select")

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"session_id": "s1"}
	res, err = s.handleGetGraph(context.Background(), req)
	require.NoError(t, err)
	text = res.Content[0].(mcp.TextContent)
	assert.Contains(t, text.Text, "class welcome current;")

	req.Params.Arguments = map[string]any{"session_id": "missing"}
	res, err = s.handleGetGraph(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
