package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/shortener/internal/logger"
)

type logEntry struct {
	msg  string
	args []any
}

// Logger that remembers Info calls and attributes added with With
type recordingLogger struct {
	attrs   []any
	entries *[]logEntry
}

func newRecordingLogger() recordingLogger {
	return recordingLogger{entries: &[]logEntry{}}
}

func (l recordingLogger) Debug(msg string, args ...any) {}
func (l recordingLogger) Warn(msg string, args ...any)  {}
func (l recordingLogger) Error(msg string, args ...any) {
	*l.entries = append(*l.entries, logEntry{msg: msg, args: append(append([]any{}, l.attrs...), args...)})
}

func (l recordingLogger) Info(msg string, args ...any) {
	*l.entries = append(*l.entries, logEntry{msg: msg, args: append(append([]any{}, l.attrs...), args...)})
}

func (l recordingLogger) With(args ...any) logger.Logger {
	return recordingLogger{attrs: append(append([]any{}, l.attrs...), args...), entries: l.entries}
}

func (l recordingLogger) WithGroup(name string) logger.Logger { return l }

func TestLoggerMiddleware(t *testing.T) {
	t.Run("log request", func(t *testing.T) {
		l := newRecordingLogger()

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, err := w.Write([]byte("hi"))
			require.NoError(t, err, "should write response")
		})

		middleware := LoggerMiddleware(l)
		srv := httptest.NewServer(middleware(h))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusTeapot, resp.StatusCode, "should return status Teapot. Resp: %s", string(body))
		require.Equal(t, "hi", string(body), "should return 'hi' in response")

		entries := *l.entries
		require.Len(t, entries, 1, "logger should be called once")
		require.Equal(t, "got HTTP request", entries[0].msg, "logger should log 'got HTTP request'")

		args := entries[0].args
		require.Len(t, args, 10, "logger should log 10 fields")
		require.Equal(t, "method", args[0])
		require.Equal(t, "GET", args[1])
		require.Equal(t, "uri", args[2])
		require.Equal(t, "/test", args[3])
		require.Equal(t, "duration", args[4])
		require.NotEmpty(t, args[5], "duration should not be empty")
		require.Equal(t, "status", args[6])
		require.Equal(t, http.StatusTeapot, args[7])
		require.Equal(t, "size", args[8])
		require.Equal(t, 2, args[9], "size should be 2 (length of 'hi')")
	})

	t.Run("request logger in context", func(t *testing.T) {
		l := newRecordingLogger()

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context(), nil).Info("inside handler")
		})

		srv := httptest.NewServer(chimw.RequestID(LoggerMiddleware(l)(h)))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err)
		_ = resp.Body.Close()

		entries := *l.entries
		require.Len(t, entries, 2)
		require.Equal(t, "inside handler", entries[0].msg)
		require.Equal(t, "request_id", entries[0].args[0], "handler logger carries request id")
		require.NotEmpty(t, entries[0].args[1])
		require.Equal(t, entries[0].args[:2], entries[1].args[:2], "same request id in access log")
	})
}
