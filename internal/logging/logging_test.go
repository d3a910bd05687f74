package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// syncBuffer is a goroutine-safe log capture target.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, line := range bytes.Split(b.buf.Bytes(), []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func testLogger(out *syncBuffer) *Logger {
	cfg := Config{
		Level:       "debug",
		JSON:        true,
		AppName:     "Auth Service",
		AppVersion:  "1.0.0",
		Environment: "testing",
	}
	return newLogger(cfg, zerolog.DebugLevel, out, nil)
}

func TestJSONRecordShape(t *testing.T) {
	buf := &syncBuffer{}
	l := testLogger(buf)

	l.Base().Info().Msg("startup message")

	recs := buf.Lines(t)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	for _, field := range []string{"timestamp", "level", "logger", "message", "module", "function", "line", "process_id", "environment", "app_name", "app_version"} {
		if _, ok := rec[field]; !ok {
			t.Errorf("missing field %q in %v", field, rec)
		}
	}
	// No request in flight: request fields must be absent, not broken.
	if _, ok := rec["request_id"]; ok {
		t.Error("request_id should be absent outside a request")
	}
	if _, ok := rec["user_id"]; ok {
		t.Error("user_id should be absent outside a request")
	}
	if rec["message"] != "startup message" {
		t.Errorf("message: got %v", rec["message"])
	}
	if rec["environment"] != "testing" {
		t.Errorf("environment: got %v", rec["environment"])
	}
}

func TestCallerAttribution(t *testing.T) {
	buf := &syncBuffer{}
	l := testLogger(buf)

	l.Base().Info().Msg("attributed")

	rec := buf.Lines(t)[0]
	if rec["module"] != "logging" {
		t.Errorf("module: got %v, want logging (the test package)", rec["module"])
	}
	fn, _ := rec["function"].(string)
	if fn == "" {
		t.Error("function should be set")
	}
	if line, ok := rec["line"].(float64); !ok || line <= 0 {
		t.Errorf("line: got %v", rec["line"])
	}
}

func TestNamedLogger(t *testing.T) {
	buf := &syncBuffer{}
	l := testLogger(buf)

	named := l.Named("database")
	named.Info().Msg("query")

	rec := buf.Lines(t)[0]
	if rec["logger"] != "database" {
		t.Errorf("logger: got %v", rec["logger"])
	}
}

func TestExtraFields(t *testing.T) {
	buf := &syncBuffer{}
	l := testLogger(buf)

	l.Base().Info().
		Dict("extra", Extra(map[string]any{"operation": "signup", "attempt": 2})).
		Msg("with extra")

	rec := buf.Lines(t)[0]
	extra, ok := rec["extra"].(map[string]any)
	if !ok {
		t.Fatalf("extra: got %T", rec["extra"])
	}
	if extra["operation"] != "signup" {
		t.Errorf("extra.operation: got %v", extra["operation"])
	}
}

func TestLevelFilterWriter(t *testing.T) {
	main := &syncBuffer{}
	exc := &syncBuffer{}
	out := zerolog.MultiLevelWriter(main, &levelFilterWriter{w: exc, min: zerolog.ErrorLevel})
	logger := zerolog.New(out).Level(zerolog.DebugLevel)

	logger.Info().Msg("routine")
	logger.Error().Msg("broken")

	mainRecs := main.Lines(t)
	excRecs := exc.Lines(t)
	if len(mainRecs) != 2 {
		t.Errorf("main sink: got %d records, want 2", len(mainRecs))
	}
	if len(excRecs) != 1 {
		t.Fatalf("exception sink: got %d records, want 1", len(excRecs))
	}
	if excRecs[0]["message"] != "broken" {
		t.Errorf("exception sink record: got %v", excRecs[0]["message"])
	}
}

func TestSetupCreatesFileSinks(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Level:          "info",
		JSON:           true,
		File:           filepath.Join(dir, "logs", "app.log"),
		RotationMB:     10,
		Exception:      true,
		ExceptionFile:  filepath.Join(dir, "logs", "exceptions.log"),
		ExceptionLevel: "error",
		ExceptionJSON:  true,
		AppName:        "Auth Service",
		AppVersion:     "1.0.0",
		Environment:    "testing",
	}
	l, err := Setup(cfg)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer l.Close()

	l.Base().Info().Msg("hello file")
	l.Base().Error().Msg("hello exceptions")

	// A second Setup builds an independent handle; nothing global doubles up.
	l2, err := Setup(cfg)
	if err != nil {
		t.Fatalf("second setup: %v", err)
	}
	if err := l2.Close(); err != nil {
		t.Fatalf("close second handle: %v", err)
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	if _, err := Setup(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
