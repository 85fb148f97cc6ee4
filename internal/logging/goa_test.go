package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	httpmdlwr "goa.design/goa/v3/http/middleware"
)

func TestGoaLoggerLogsRequestAndResponse(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := w.(http.Flusher)
		assert.True(t, ok, "streaming handlers need a flusher")
		_, ok = w.(http.Hijacker)
		assert.True(t, ok, "websocket upgrades need a hijacker")
		http.Error(w, "No frame available", http.StatusServiceUnavailable)
	})
	handler = httpmdlwr.Log(NewGoaLogger(zap.New(core)))(handler)
	handler = httpmdlwr.RequestID(httpmdlwr.RequestIDHeaderOption("X-Request-Id"))(handler)

	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	req.Header.Set("X-Request-Id", "abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request", entries[0].Message)
	assert.Equal(t, "http", entries[0].LoggerName)
	assert.Equal(t, "GET /snapshot", entries[0].ContextMap()["req"])
	assert.Equal(t, "abc", entries[0].ContextMap()["id"])

	assert.Equal(t, "response", entries[1].Message)
	assert.Equal(t, int64(http.StatusServiceUnavailable), entries[1].ContextMap()["status"])
	assert.Equal(t, "abc", entries[1].ContextMap()["id"])
}

func TestGoaLoggerPadsOddKeyvals(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, NewGoaLogger(zap.New(core)).Log("id", "x", "dangling"))

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "x", fields["id"])
	assert.Equal(t, "MISSING", fields["dangling"])
}
