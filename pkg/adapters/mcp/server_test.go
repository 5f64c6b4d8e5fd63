package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/freelingo"
	"github.com/aretw0/freelingo/pkg/adapters/mcp"
	"github.com/aretw0/freelingo/pkg/adapters/memory"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type toolResult struct {
	IsError           bool            `json:"isError"`
	StructuredContent json.RawMessage `json:"structuredContent"`
	Content           []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func newServer(t *testing.T, ev *memory.Evaluator) (*mcp.Server, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(memory.NewStore())
	pipeline := freelingo.New(ev, freelingo.WithSessions(sessions))
	return mcp.NewServer(pipeline, sessions), sessions
}

func send(t *testing.T, srv *mcp.Server, method string, params any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	reply := srv.MCPServer().HandleMessage(context.Background(), raw)
	data, err := json.Marshal(reply)
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	require.Nil(t, resp.Error, "rpc error for %s", method)
	return resp.Result
}

func callTool(t *testing.T, srv *mcp.Server, name string, args map[string]any) toolResult {
	t.Helper()
	var res toolResult
	require.NoError(t, json.Unmarshal(send(t, srv, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	}), &res))
	return res
}

var seedArgs = map[string]any{
	"user_id":     "learner-1",
	"known_words": []any{map[string]any{"word": "merci", "translation": "thanks"}},
	"dialogue_history": []any{
		map[string]any{"role": "ai", "text": "Tu as passé un bon week-end ?"},
		map[string]any{"role": "learner", "text": "oui merci, je suis allé au cinéma"},
	},
}

func TestServer_ListTools(t *testing.T) {
	srv, _ := newServer(t, memory.NewEvaluator())

	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(send(t, srv, "tools/list", map[string]any{}), &list))

	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"end_session", "get_session", "put_session", "append_messages", "list_sessions"}, names)
}

func TestServer_SessionTools(t *testing.T) {
	srv, sessions := newServer(t, memory.NewEvaluator())

	res := callTool(t, srv, "get_session", map[string]any{"user_id": "learner-1"})
	assert.True(t, res.IsError)

	res = callTool(t, srv, "put_session", seedArgs)
	require.False(t, res.IsError, "%+v", res.Content)

	res = callTool(t, srv, "append_messages", map[string]any{
		"user_id":  "learner-1",
		"messages": []any{map[string]any{"role": "ai", "text": "Quel film ?"}},
	})
	require.False(t, res.IsError, "%+v", res.Content)
	var appended mcp.AppendResult
	require.NoError(t, json.Unmarshal(res.StructuredContent, &appended))
	assert.Equal(t, 1, appended.Appended)

	res = callTool(t, srv, "get_session", map[string]any{"user_id": "learner-1"})
	require.False(t, res.IsError, "%+v", res.Content)
	var record domain.SessionRecord
	require.NoError(t, json.Unmarshal(res.StructuredContent, &record))
	assert.Equal(t, "learner-1", record.UserID)
	assert.Len(t, record.KnownWords, 1)
	assert.Len(t, record.DialogueHistory, 3)

	stored, err := sessions.Load(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.Equal(t, record.DialogueHistory, stored.DialogueHistory)

	res = callTool(t, srv, "list_sessions", map[string]any{})
	require.False(t, res.IsError, "%+v", res.Content)
	var list mcp.SessionList
	require.NoError(t, json.Unmarshal(res.StructuredContent, &list))
	assert.Equal(t, []string{"learner-1"}, list.Users)
}

func TestServer_EndSession(t *testing.T) {
	srv, _ := newServer(t, memory.NewEvaluator())
	require.False(t, callTool(t, srv, "put_session", seedArgs).IsError)

	res := callTool(t, srv, "end_session", map[string]any{"user_id": "learner-1"})
	require.False(t, res.IsError, "%+v", res.Content)

	var out mcp.EndSessionResult
	require.NoError(t, json.Unmarshal(res.StructuredContent, &out))
	assert.True(t, out.Available)
	assert.Empty(t, out.Notice)
	require.NotNil(t, out.Run)
	assert.Equal(t, domain.RunValidated, out.Run.Status)
	assert.Equal(t, []domain.Stage{domain.StageFeedback, domain.StagePlanner, domain.StageWords, domain.StageReferee}, out.Run.StateTransitions)
}

func TestServer_EndSession_Unavailable(t *testing.T) {
	reject := &domain.RefereeOutput{
		Violations: []string{domain.ViolationChainIncoherent},
		Rationale:  domain.Rationale{ReasoningSummary: "incoherent"},
	}
	srv, _ := newServer(t, memory.NewEvaluator(memory.WithRefereeScript(reject)))
	require.False(t, callTool(t, srv, "put_session", seedArgs).IsError)

	res := callTool(t, srv, "end_session", map[string]any{"user_id": "learner-1"})
	require.False(t, res.IsError, "a rejected chain is still a result")

	var out mcp.EndSessionResult
	require.NoError(t, json.Unmarshal(res.StructuredContent, &out))
	assert.False(t, out.Available)
	assert.Equal(t, freelingo.UnavailableNotice, out.Notice)
	assert.Equal(t, domain.RunBreakerTripped, out.Run.Status)
}

func TestServer_RejectsBadArguments(t *testing.T) {
	srv, sessions := newServer(t, memory.NewEvaluator())

	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"end without user", "end_session", map[string]any{}},
		{"end unknown user", "end_session", map[string]any{"user_id": "ghost"}},
		{"get without user", "get_session", map[string]any{}},
		{"put unknown role", "put_session", map[string]any{
			"user_id":          "u",
			"dialogue_history": []any{map[string]any{"role": "narrator", "text": "x"}},
		}},
		{"put empty word", "put_session", map[string]any{
			"user_id":     "u",
			"known_words": []any{map[string]any{"word": " "}},
		}},
		{"append nothing", "append_messages", map[string]any{"user_id": "u", "messages": []any{}}},
		{"append unknown role", "append_messages", map[string]any{
			"user_id":  "u",
			"messages": []any{map[string]any{"role": "system", "text": "x"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, srv, tt.tool, tt.args)
			assert.True(t, res.IsError)
		})
	}

	users, err := sessions.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestServer_SessionsResource(t *testing.T) {
	srv, _ := newServer(t, memory.NewEvaluator())
	require.False(t, callTool(t, srv, "put_session", seedArgs).IsError)

	var read struct {
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(send(t, srv, "resources/read", map[string]any{"uri": mcp.SessionsURI}), &read))
	require.Len(t, read.Contents, 1)
	assert.Equal(t, mcp.SessionsURI, read.Contents[0].URI)
	assert.JSONEq(t, `{"users":["learner-1"]}`, read.Contents[0].Text)
}
