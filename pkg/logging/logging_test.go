package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestIsValidLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "INFO", " warn "} {
		if !IsValidLogLevel(level) {
			t.Fatalf("expected %q to be valid", level)
		}
	}
	if IsValidLogLevel("verbose") {
		t.Fatalf("expected verbose to be invalid")
	}
}

func TestBuildLoggerHonoursLevel(t *testing.T) {
	logger, err := BuildLogger("warn", "prod")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("warn should be enabled")
	}

	fallback, err := BuildLogger("loud", "dev")
	if err != nil {
		t.Fatalf("build fallback: %v", err)
	}
	if fallback.Core().Enabled(zapcore.DebugLevel) || !fallback.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("invalid level should fall back to info")
	}
}

func TestRequestLoggerAndRecoverer(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	handler := RequestLogger(logger)(Recoverer(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}
	if status := entries[0].ContextMap()["status"]; status != int64(http.StatusInternalServerError) {
		t.Fatalf("expected logged status 500, got %v", status)
	}
}
