package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhealth/intake"
	httpadapter "github.com/meridianhealth/intake/pkg/adapters/http"
	"github.com/meridianhealth/intake/pkg/observability"
)

const serverGraph = `
id: http-test
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

func newHandler(t *testing.T, opts ...httpadapter.Option) http.Handler {
	t.Helper()
	eng, err := intake.NewFromDocument([]byte(serverGraph))
	require.NoError(t, err)
	return httpadapter.NewHandler(eng, opts...)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestServer_Health(t *testing.T) {
	handler := newHandler(t)
	w := doJSON(t, handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestServer_StartSession(t *testing.T) {
	handler := newHandler(t)

	w := doJSON(t, handler, http.MethodPost, "/sessions", httpadapter.StartSessionRequest{SubjectID: "subject-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[httpadapter.StartSessionResponse](t, w)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "welcome", resp.NodeID)
	assert.Equal(t, "What brings you in today?", resp.Prompt)
}

func TestServer_StartSession_RequiresSubject(t *testing.T) {
	handler := newHandler(t)
	w := doJSON(t, handler, http.MethodPost, "/sessions", httpadapter.StartSessionRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_TurnLifecycle(t *testing.T) {
	handler := newHandler(t)

	start := decode[httpadapter.StartSessionResponse](t,
		doJSON(t, handler, http.MethodPost, "/sessions", httpadapter.StartSessionRequest{SubjectID: "subject-1"}))

	w := doJSON(t, handler, http.MethodPost, "/sessions/"+start.SessionID+"/turns",
		httpadapter.TurnRequest{Input: "I have a persistent cough"})
	require.Equal(t, http.StatusOK, w.Code)

	turn := decode[map[string]any](t, w)
	assert.Equal(t, "done", turn["next_state"])
	assert.Equal(t, true, turn["is_terminal"])
	assert.NotEmpty(t, turn["response"])

	// The completed session refuses further turns.
	w = doJSON(t, handler, http.MethodPost, "/sessions/"+start.SessionID+"/turns",
		httpadapter.TurnRequest{Input: "hello again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/sessions/"+start.SessionID+"/steps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	steps := decode[map[string][]map[string]any](t, w)
	assert.Len(t, steps["steps"], 1)
}

func TestServer_UnknownSessionIs404(t *testing.T) {
	handler := newHandler(t)

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/sessions/nope", nil},
		{http.MethodGet, "/sessions/nope/context", nil},
		{http.MethodGet, "/sessions/nope/steps", nil},
		{http.MethodPost, "/sessions/nope/turns", httpadapter.TurnRequest{Input: "hi"}},
		{http.MethodDelete, "/sessions/nope", nil},
	} {
		w := doJSON(t, handler, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestServer_AbandonSession(t *testing.T) {
	handler := newHandler(t)

	start := decode[httpadapter.StartSessionResponse](t,
		doJSON(t, handler, http.MethodPost, "/sessions", httpadapter.StartSessionRequest{SubjectID: "subject-1"}))

	w := doJSON(t, handler, http.MethodDelete, "/sessions/"+start.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, handler, http.MethodPost, "/sessions/"+start.SessionID+"/turns",
		httpadapter.TurnRequest{Input: "hello"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestServer_RejectsOversizedInput(t *testing.T) {
	handler := newHandler(t)

	start := decode[httpadapter.StartSessionResponse](t,
		doJSON(t, handler, http.MethodPost, "/sessions", httpadapter.StartSessionRequest{SubjectID: "subject-1"}))

	w := doJSON(t, handler, http.MethodPost, "/sessions/"+start.SessionID+"/turns",
		httpadapter.TurnRequest{Input: strings.Repeat("a", 9<<10)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_GetGraph(t *testing.T) {
	handler := newHandler(t)
	w := doJSON(t, handler, http.MethodGet, "/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"http-test"`)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	metrics := observability.NewMetrics()
	handler := newHandler(t, httpadapter.WithMetricsHandler(metrics.Handler()))

	w := doJSON(t, handler, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_SubscribeEvents(t *testing.T) {
	handler := newHandler(t)

	start := decode[httpadapter.StartSessionResponse](t,
		doJSON(t, handler, http.MethodPost, "/sessions", httpadapter.StartSessionRequest{SubjectID: "subject-1"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest(http.MethodGet, "/sessions/"+start.SessionID+"/events", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(wSub, reqSub)
	}()
	time.Sleep(100 * time.Millisecond)

	w := doJSON(t, handler, http.MethodPost, "/sessions/"+start.SessionID+"/turns",
		httpadapter.TurnRequest{Input: "I have a headache"})
	require.Equal(t, http.StatusOK, w.Code)

	cancel()
	<-done

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"next_state":"done"`)
}
