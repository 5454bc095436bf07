package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/internal/testutils"
	"github.com/aretw0/canopy/pkg/domain"
)

func newServer(t *testing.T) (*Server, *canopy.Machine) {
	t.Helper()
	m := canopy.New(canopy.WithReporter(&testutils.Recorder{}))
	m.Register(testutils.SampleTree(nil)...)
	require.NoError(t, m.Assemble())
	return NewServer(m, logging.NewNop()), m
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestListStates(t *testing.T) {
	s, _ := newServer(t)

	res, err := s.handleListStates(context.Background(), callRequest(nil))
	require.NoError(t, err)

	var states []domain.StateInfo
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &states))
	assert.Len(t, states, 8)
}

func TestGetState(t *testing.T) {
	s, _ := newServer(t)

	res, err := s.handleGetState(context.Background(), callRequest(map[string]any{"id": "C"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"name":"C","parent":"B","children":["C1"],"is_async":false}`, text(t, res))

	res, err = s.handleGetState(context.Background(), callRequest(map[string]any{"id": "ghost"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestChangeStateAndCurrent(t *testing.T) {
	s, m := newServer(t)

	out, err := s.handleChangeState(context.Background(), callRequest(nil), map[string]interface{}{"target": "B1"})
	require.NoError(t, err)
	assert.Equal(t, TransitionResult{From: "root", To: "B1", Current: "B1"}, out)
	assert.Equal(t, "B1", m.CurrentStateID())

	res, err := s.handleCurrentState(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "B1 < B < A < root", text(t, res))

	out, err = s.handleChangeState(context.Background(), callRequest(nil), map[string]interface{}{"target": "A2", "async": true})
	require.NoError(t, err)
	assert.Equal(t, "A2", out.To)

	_, err = s.handleChangeState(context.Background(), callRequest(nil), map[string]interface{}{"target": "ghost"})
	assert.Error(t, err)
}

func TestMermaid(t *testing.T) {
	s, _ := newServer(t)
	assert.Contains(t, s.mermaid(), "class root current;")
}
