package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhealth/intake"
)

const mcpGraph = `
id: mcp-test
initial_state: welcome
nodes:
  welcome:
    prompt: "What brings you in today?"
    input_type: text
    transitions:
      - condition: always
        to: done
  done:
    prompt: "Thanks, that's all we need."
    input_type: none
`

func newServer(t *testing.T) *Server {
	t.Helper()
	eng, err := intake.NewFromDocument([]byte(mcpGraph))
	require.NoError(t, err)
	return NewServer(eng, nil)
}

func TestHandleStartSession(t *testing.T) {
	s := newServer(t)

	resp, err := s.handleStartSession(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"subject_id": "subject-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "welcome", resp.NodeID)
	assert.Equal(t, "What brings you in today?", resp.Prompt)
}

func TestHandleStartSession_RequiresSubject(t *testing.T) {
	s := newServer(t)
	_, err := s.handleStartSession(context.Background(), mcp.CallToolRequest{}, map[string]any{})
	assert.Error(t, err)
}

func TestHandleSendMessage(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	start, err := s.handleStartSession(ctx, mcp.CallToolRequest{}, map[string]any{"subject_id": "subject-1"})
	require.NoError(t, err)

	turn, err := s.handleSendMessage(ctx, mcp.CallToolRequest{}, map[string]any{
		"session_id": start.SessionID,
		"input":      "I've had headaches for a week",
	})
	require.NoError(t, err)
	assert.Equal(t, "done", turn.NextState)
	assert.True(t, turn.IsTerminal)
	assert.NotEmpty(t, turn.Response)
}

func TestHandleSendMessage_UnknownSession(t *testing.T) {
	s := newServer(t)
	_, err := s.handleSendMessage(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"session_id": "nope",
		"input":      "hello",
	})
	assert.Error(t, err)
}

func TestHandleGetSummary(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	start, err := s.handleStartSession(ctx, mcp.CallToolRequest{}, map[string]any{"subject_id": "subject-1"})
	require.NoError(t, err)
	_, err = s.handleSendMessage(ctx, mcp.CallToolRequest{}, map[string]any{
		"session_id": start.SessionID,
		"input":      "I've had headaches for a week",
	})
	require.NoError(t, err)

	summary, err := s.handleGetSummary(ctx, mcp.CallToolRequest{}, map[string]any{
		"session_id": start.SessionID,
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, 1, summary.Turns)
	assert.Contains(t, summary.Summary, "User: I've had headaches for a week")
}

func TestGraphNodesSorted(t *testing.T) {
	s := newServer(t)
	nodes := s.graphNodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "done", nodes[0].ID)
	assert.Equal(t, "welcome", nodes[1].ID)
}
