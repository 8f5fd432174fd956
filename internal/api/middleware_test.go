package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestRequestLoggerLevelFollowsStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		level  string
	}{
		{"ok", http.StatusOK, "level=INFO"},
		{"client error", http.StatusNotFound, "level=WARN"},
		{"server error", http.StatusBadGateway, "level=ERROR"},
	}
	for _, tc := range cases {
		buf := captureLogs(t)
		h := requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tools/x", nil))

		line := buf.String()
		if !strings.Contains(line, tc.level) {
			t.Fatalf("%s: log line %q missing %q", tc.name, line, tc.level)
		}
		if !strings.Contains(line, "annotator request") {
			t.Fatalf("%s: log line %q missing message", tc.name, line)
		}
	}
}
