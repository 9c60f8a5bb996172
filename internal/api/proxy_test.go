package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"learnloop.dev/chat-service/internal/llm"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
	last  string
}

func (s *stubCompleter) Complete(_ context.Context, message string) (string, error) {
	s.calls++
	s.last = message
	return s.reply, s.err
}

func proxyRequest(t *testing.T, completer *stubCompleter, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewAPIHandler(&stubChatService{}, &stubProfileService{}, completer)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ChatProxyHandler(rec, req)
	return rec
}

func decodeChatError(t *testing.T, rec *httptest.ResponseRecorder) ChatErrorResponse {
	t.Helper()
	var out ChatErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestChatProxy_HappyPath(t *testing.T) {
	completer := &stubCompleter{reply: "Plants convert light into energy."}
	rec := proxyRequest(t, completer, `{"message":"What is photosynthesis?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "Plants convert light into energy.", out.Response)
	require.Equal(t, "What is photosynthesis?", completer.last)
}

func TestChatProxy_MissingMessage(t *testing.T) {
	completer := &stubCompleter{reply: "unused"}
	cases := []string{
		`{}`,
		`{"message":""}`,
		`{"message":"   "}`,
		`not-json`,
		``,
	}
	for _, body := range cases {
		rec := proxyRequest(t, completer, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body=%q", body)
		require.Equal(t, "Message is required", decodeChatError(t, rec).Error)
	}
	// Validation happens before any outbound call.
	require.Zero(t, completer.calls)
}

func TestChatProxy_NotConfigured(t *testing.T) {
	completer := &stubCompleter{err: llm.ErrNotConfigured}
	rec := proxyRequest(t, completer, `{"message":"hello"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	out := decodeChatError(t, rec)
	require.Equal(t, "Completion API key is not configured", out.Error)
	require.Empty(t, out.Details)
}

func TestChatProxy_UpstreamErrorCarriesDetails(t *testing.T) {
	completer := &stubCompleter{err: &llm.HTTPStatusError{
		StatusCode: 429,
		Body:       `{"error":"rate limited"}`,
	}}
	rec := proxyRequest(t, completer, `{"message":"hello"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	out := decodeChatError(t, rec)
	require.Equal(t, "Completion request failed", out.Error)
	require.Equal(t, `status 429: {"error":"rate limited"}`, out.Details)
}

func TestChatProxy_UnexpectedError(t *testing.T) {
	completer := &stubCompleter{err: errors.New("connection reset")}
	rec := proxyRequest(t, completer, `{"message":"hello"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	out := decodeChatError(t, rec)
	require.Equal(t, "Internal server error", out.Error)
	require.Empty(t, out.Details)
}

func TestChatProxy_CORSHeaders(t *testing.T) {
	h := NewAPIHandler(&stubChatService{}, &stubProfileService{}, &stubCompleter{reply: "ok"})
	router := NewRouter(h)

	// Preflight.
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	// Actual request.
	req = httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
