package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/freelingo"
	adapter "github.com/aretw0/freelingo/pkg/adapters/http"
	"github.com/aretw0/freelingo/pkg/adapters/memory"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/observability"
	"github.com/aretw0/freelingo/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server   *httptest.Server
	sessions *session.Manager
	streams  *adapter.StreamManager
}

func newFixture(t *testing.T, ev *memory.Evaluator) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	sessions := session.NewManager(memory.NewStore())
	streams := adapter.NewStreamManager()
	pipeline := freelingo.New(ev,
		freelingo.WithSessions(sessions),
		freelingo.WithLifecycleHooks(observability.Combine(metrics.Hooks(), streams.Hooks())),
	)

	handler, err := adapter.NewHandler(pipeline, sessions,
		adapter.WithStreams(streams),
		adapter.WithGatherer(reg),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &fixture{server: srv, sessions: sessions, streams: streams}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

var seed = adapter.PutSessionJSONRequestBody{
	KnownWords: &[]adapter.Word{{Word: "merci", Translation: "thanks"}},
	DialogueHistory: &[]adapter.Message{
		{Role: domain.RoleAI, Text: "Tu as passé un bon week-end ?"},
		{Role: domain.RoleLearner, Text: "oui merci, je suis allé au cinéma"},
	},
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t, memory.NewEvaluator())

	resp := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_SessionLifecycle(t *testing.T) {
	f := newFixture(t, memory.NewEvaluator())

	resp := f.do(t, http.MethodGet, "/sessions/learner-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPut, "/sessions/learner-1", seed)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/sessions/learner-1/messages", adapter.AppendMessagesJSONRequestBody{
		Messages: []adapter.Message{{Role: domain.RoleAI, Text: "Quel film ?"}},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/sessions/learner-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var record domain.SessionRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, "learner-1", record.UserID)
	assert.Len(t, record.DialogueHistory, 3)
	assert.False(t, record.UpdatedAt.IsZero())

	resp = f.do(t, http.MethodGet, "/sessions", nil)
	var list adapter.SessionList
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, []string{"learner-1"}, list.Users)

	resp = f.do(t, http.MethodDelete, "/sessions/learner-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/sessions/learner-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_RejectsBadRequests(t *testing.T) {
	f := newFixture(t, memory.NewEvaluator())

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"unknown field", http.MethodPut, "/sessions/u", map[string]any{"known_words": []any{}, "mood": "happy"}},
		{"unknown role", http.MethodPut, "/sessions/u", adapter.PutSessionJSONRequestBody{
			DialogueHistory: &[]adapter.Message{{Role: "narrator", Text: "x"}},
		}},
		{"unknown word field", http.MethodPut, "/sessions/u", map[string]any{
			"known_words": []any{map[string]any{"word": "merci", "gender": "f"}},
		}},
		{"empty word", http.MethodPut, "/sessions/u", map[string]any{
			"known_words": []any{map[string]any{"word": ""}},
		}},
		{"not an object", http.MethodPut, "/sessions/u", []string{"a"}},
		{"missing body", http.MethodPut, "/sessions/u", nil},
		{"no messages", http.MethodPost, "/sessions/u/messages", adapter.AppendMessagesJSONRequestBody{Messages: []adapter.Message{}}},
		{"message without text", http.MethodPost, "/sessions/u/messages", map[string]any{
			"messages": []any{map[string]any{"role": "ai"}},
		}},
		{"user id too long", http.MethodPost, "/sessions/" + strings.Repeat("u", 129) + "/end", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	// Nothing rejected reached the store.
	users, err := f.sessions.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestServer_RejectsWrongContentType(t *testing.T) {
	f := newFixture(t, memory.NewEvaluator())

	req, err := http.NewRequest(http.MethodPut, f.server.URL+"/sessions/u", strings.NewReader(`{"known_words":[]}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_OpenAPIDocument(t *testing.T) {
	f := newFixture(t, memory.NewEvaluator())

	resp := f.do(t, http.MethodGet, "/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Contains(t, doc.Paths, "/sessions/{userID}/end")
	assert.Contains(t, doc.Paths, "/sessions/{userID}/events")

	resp = f.do(t, http.MethodGet, "/info", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info adapter.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "freelingo-http", info.App)
	require.NotNil(t, info.ApiVersion)
	assert.Equal(t, doc.Info.Version, *info.ApiVersion)

	resp = f.do(t, http.MethodGet, "/swagger", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
}

func TestServer_UnroutedMethod(t *testing.T) {
	f := newFixture(t, memory.NewEvaluator())
	resp := f.do(t, http.MethodDelete, "/sessions", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_EndSession(t *testing.T) {
	f := newFixture(t, memory.NewEvaluator())
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/sessions/learner-1", seed).StatusCode)

	resp := f.do(t, http.MethodPost, "/sessions/learner-1/end", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Available bool   `json:"available"`
		Notice    string `json:"notice"`
		Run       struct {
			Status           string   `json:"status"`
			StateTransitions []string `json:"state_transitions"`
			LastPlan         struct {
				SessionObjectives []string `json:"session_objectives"`
			} `json:"last_plan"`
		} `json:"run"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Available)
	assert.Empty(t, body.Notice)
	assert.Equal(t, "validated", body.Run.Status)
	assert.Equal(t, []string{"FEEDBACK", "PLANNER", "WORDS", "REFEREE"}, body.Run.StateTransitions)
	assert.NotEmpty(t, body.Run.LastPlan.SessionObjectives)
}

func TestServer_EndSession_Unavailable(t *testing.T) {
	reject := &domain.RefereeOutput{
		Violations: []string{domain.ViolationChainIncoherent},
		Rationale:  domain.Rationale{ReasoningSummary: "incoherent"},
	}
	f := newFixture(t, memory.NewEvaluator(memory.WithRefereeScript(reject)))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/sessions/learner-1", seed).StatusCode)

	resp := f.do(t, http.MethodPost, "/sessions/learner-1/end", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body adapter.EndSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Available)
	require.NotNil(t, body.Notice)
	assert.Equal(t, freelingo.UnavailableNotice, *body.Notice)
	assert.Equal(t, domain.RunBreakerTripped, body.Run.Status)
}

func TestServer_EndSession_UnknownUser(t *testing.T) {
	f := newFixture(t, memory.NewEvaluator())
	resp := f.do(t, http.MethodPost, "/sessions/ghost/end", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t, memory.NewEvaluator())
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/sessions/learner-1", seed).StatusCode)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/sessions/learner-1/end", nil).StatusCode)

	resp := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `freelingo_runs_total{status="validated"} 1`)
}

func TestServer_SubscribeEvents(t *testing.T) {
	f := newFixture(t, memory.NewEvaluator())
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/sessions/learner-1", seed).StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.server.URL+"/sessions/learner-1/events", nil)
	require.NoError(t, err)
	stream, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	lines := bufio.NewScanner(stream.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())
	require.Eventually(t, func() bool { return f.streams.Subscribers("learner-1") == 1 }, time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/sessions/learner-1/end", nil).StatusCode)

	var kinds []string
	for lines.Scan() {
		line := lines.Text()
		if kind, ok := strings.CutPrefix(line, "event: "); ok {
			kinds = append(kinds, kind)
			if kind == "run" {
				break
			}
		}
	}
	assert.Equal(t, []string{"stage", "stage", "stage", "stage", "route", "run"}, kinds)
}
