package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/portfolio-chat/internal/core/ask"
	"github.com/jinford/portfolio-chat/internal/core/search"
)

type mockChatService struct {
	result *ask.ChatResult
	err    error
	calls  int
	params ask.ChatParams
}

func (m *mockChatService) Chat(ctx context.Context, params ask.ChatParams) (*ask.ChatResult, error) {
	m.calls++
	m.params = params
	return m.result, m.err
}

func newTestHandler(svc ChatService) http.Handler {
	return NewHandler(svc, WithHandlerLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).Routes()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleChat_Success(t *testing.T) {
	svc := &mockChatService{result: &ask.ChatResult{
		Response:       "She was the founding PM at Facets.cloud.",
		Classification: ask.ClassAllowed,
		Sources:        []string{"facets", "zero-to-one"},
		Strategy:       mo.Some(search.StrategyVector),
	}}
	h := newTestHandler(svc)

	for _, path := range []string{"/api/portfolio-chat", "/portfolio-chat"} {
		rec := doRequest(t, h, http.MethodPost, path, `{"question":"What did she do at Facets.cloud?"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.NotEmpty(t, rec.Header().Get(headerRequestID))

		body := decodeBody(t, rec)
		assert.Equal(t, "She was the founding PM at Facets.cloud.", body["response"])
		assert.Equal(t, "ALLOWED", body["classification"])
		assert.Equal(t, []any{"facets", "zero-to-one"}, body["sources"])
	}
}

func TestHandleChat_OmitsEmptySources(t *testing.T) {
	svc := &mockChatService{result: &ask.ChatResult{
		Response:       "Compensation details are discussed later in the interview process.",
		Classification: ask.ClassSalary,
	}}

	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/portfolio-chat", `{"question":"What salary?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "SALARY", body["classification"])
	_, hasSources := body["sources"]
	assert.False(t, hasSources)
}

func TestHandleChat_PassesOptionalFields(t *testing.T) {
	svc := &mockChatService{result: &ask.ChatResult{Classification: ask.ClassJobFit}}
	payload := `{
		"question": "Is she a fit?",
		"jobDescription": "Senior PM, DevTools",
		"conversationHistory": [
			{"role": "user", "content": "hi", "timestamp": "2024-05-01T10:00:00Z"},
			{"role": "assistant", "content": "hello", "timestamp": "yesterday"}
		]
	}`

	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/portfolio-chat", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Is she a fit?", svc.params.Question)
	assert.Equal(t, mo.Some("Senior PM, DevTools"), svc.params.JobDescription)
	require.Len(t, svc.params.History, 2)
	assert.Equal(t, ask.RoleUser, svc.params.History[0].Role)
	assert.True(t, svc.params.History[0].Timestamp.IsPresent())
	assert.True(t, svc.params.History[1].Timestamp.IsAbsent())
}

func TestHandleChat_BlankJobDescriptionIsIgnored(t *testing.T) {
	svc := &mockChatService{result: &ask.ChatResult{Classification: ask.ClassAllowed}}

	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/portfolio-chat", `{"question":"q","jobDescription":"  "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.params.JobDescription.IsAbsent())
}

func TestHandleChat_IgnoresMistypedOptionalFields(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantHistory int
	}{
		{
			name: "numeric job description",
			body: `{"question":"What did she do at Facets.cloud?","jobDescription":42}`,
		},
		{
			name:        "numeric history timestamp",
			body:        `{"question":"What did she do at Facets.cloud?","conversationHistory":[{"role":"user","content":"hi","timestamp":1718000000000}]}`,
			wantHistory: 1,
		},
		{
			name: "history is an object",
			body: `{"question":"What did she do at Facets.cloud?","conversationHistory":{}}`,
		},
		{
			name:        "history with a non-object turn",
			body:        `{"question":"What did she do at Facets.cloud?","conversationHistory":["hi",{"role":"user","content":"hello"}]}`,
			wantHistory: 1,
		},
		{
			name: "null fields",
			body: `{"question":"What did she do at Facets.cloud?","jobDescription":null,"conversationHistory":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockChatService{result: &ask.ChatResult{Classification: ask.ClassAllowed}}

			rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/portfolio-chat", tt.body)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, 1, svc.calls)
			assert.Equal(t, "What did she do at Facets.cloud?", svc.params.Question)
			assert.True(t, svc.params.JobDescription.IsAbsent())
			require.Len(t, svc.params.History, tt.wantHistory)
			for _, turn := range svc.params.History {
				assert.True(t, turn.Timestamp.IsAbsent())
			}
		})
	}
}

func TestHandleChat_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing question", body: `{}`},
		{name: "blank question", body: `{"question":"   "}`},
		{name: "non-string question", body: `{"question":42}`},
		{name: "malformed json", body: `{"question":`},
		{name: "empty body", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockChatService{}
			rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/portfolio-chat", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]any{"error": "Question is required"}, decodeBody(t, rec))
			assert.Equal(t, 0, svc.calls)
		})
	}
}

func TestHandleChat_ServiceRejectsQuestion(t *testing.T) {
	svc := &mockChatService{err: ask.ErrInvalidQuestion}

	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/portfolio-chat", `{"question":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChat_InternalErrorIsGeneric(t *testing.T) {
	svc := &mockChatService{err: fmt.Errorf("%w: dial tcp 10.0.0.1: secret detail", ask.ErrEmbedding)}

	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/portfolio-chat", `{"question":"What did she build?"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Internal server error", body["error"])
	assert.NotEmpty(t, body["message"])
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestHandleChat_Methods(t *testing.T) {
	svc := &mockChatService{}
	h := newTestHandler(svc)

	rec := doRequest(t, h, http.MethodOptions, "/api/portfolio-chat", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := doRequest(t, h, method, "/api/portfolio-chat", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, map[string]any{"error": "Method not allowed"}, decodeBody(t, rec))
	}
	assert.Equal(t, 0, svc.calls)
}

func TestHandleHealth(t *testing.T) {
	rec := doRequest(t, newTestHandler(&mockChatService{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok"}, decodeBody(t, rec))
}

func TestServer_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	svc := &mockChatService{result: &ask.ChatResult{Response: "ok", Classification: ask.ClassAllowed}}
	srv := NewServer(ln.Addr().String(), newTestHandler(svc), slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/api/portfolio-chat", "application/json", strings.NewReader(`{"question":"hi"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get("http://" + ln.Addr().String() + "/healthz")
	assert.Error(t, err)
}

