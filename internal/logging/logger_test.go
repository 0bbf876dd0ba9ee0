package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"batchenc/internal/config"
	"batchenc/internal/logging"
	"batchenc/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	var console bytes.Buffer
	logger, closer, err := logging.NewFromConfig(&cfg, &console)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("run started", logging.String(logging.FieldRunID, "abc"))
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "INFO run started run_id=abc") {
		t.Fatalf("unexpected log content %q", content)
	}
	if !strings.Contains(console.String(), "run started") {
		t.Fatalf("console copy missing: %q", console.String())
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Level: "info", Format: "console", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.NewComponentLogger(logger, "sequencer").Info("job finished", logging.Int("exit_code", 1), logging.String("input", "my clip.mp4"))
	logger.Debug("hidden")

	line := buf.String()
	if !strings.Contains(line, " INFO sequencer: job finished exit_code=1 input=\"my clip.mp4\"") {
		t.Fatalf("unexpected console line %q", line)
	}
	if strings.Contains(line, "hidden") {
		t.Fatal("debug record should be filtered at info level")
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatal("non-terminal console must not be colorized")
	}
}

func TestConsoleColorOnlyOnConsole(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "batchenc.log")
	logger, closer, err := logging.New(logging.Options{Format: "console", Console: &buf, Color: true, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("priority not applied")
	closer.Close()

	if !strings.Contains(buf.String(), "\x1b[33mWARN\x1b[0m") {
		t.Fatalf("expected colored warn label, got %q", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "\x1b[") || !strings.Contains(string(data), "WARN priority not applied") {
		t.Fatalf("log file should hold plain text, got %q", data)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", logging.Int(logging.FieldJobIndex, 2))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["msg"] != "hello" || record["level"] != "info" || record[logging.FieldJobIndex] != float64(2) {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	base, _, err := logging.New(logging.Options{Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithJobIndex(ctx, 3)
	ctx = services.WithInput(ctx, "/v/a.mp4")
	logging.WithContext(ctx, base).Info("job started")

	for _, want := range []string{"INFO [3] job started", "run_id=run-1", "input=/v/a.mp4"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("missing %q in %q", want, buf.String())
		}
	}
}

func TestConsoleRendersJobPosition(t *testing.T) {
	tests := []struct {
		name  string
		attrs []logging.Attr
		want  string
		pairs bool
	}{
		{"index and count", []logging.Attr{logging.Int(logging.FieldJobIndex, 2), logging.Int(logging.FieldJobCount, 5)}, "INFO seq: [2/5] step", false},
		{"count only", []logging.Attr{logging.Int(logging.FieldJobCount, 4)}, "INFO seq: step job_count=4", true},
		{"neither", nil, "INFO seq: step", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base, _, err := logging.New(logging.Options{Console: &buf})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			logging.NewComponentLogger(base, "seq").Info("step", logging.Args(tt.attrs...)...)
			if !strings.Contains(buf.String(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, buf.String())
			}
			if !tt.pairs && (strings.Contains(buf.String(), "job_index=") || strings.Contains(buf.String(), "job_count=")) {
				t.Fatalf("position fields should not repeat as pairs: %q", buf.String())
			}
		})
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WarnWithContext(logger, "priority not applied", "priority_warning",
		logging.String(logging.FieldImpact, "encoder runs at default priority"))

	out := buf.String()
	if !strings.Contains(out, "event_type=priority_warning") || !strings.Contains(out, "error_hint=") {
		t.Fatalf("expected injected fields, got %q", out)
	}
	if strings.Count(out, "impact=") != 1 {
		t.Fatalf("caller impact should not be duplicated: %q", out)
	}
}

func TestTeeHandlerHonoursLevels(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	debugLogger, _, _ := logging.New(logging.Options{Level: "debug", Console: &debugBuf})
	warnLogger, _, _ := logging.New(logging.Options{Level: "warn", Console: &warnBuf})
	tee := logging.TeeHandler(debugLogger.Handler(), warnLogger.Handler(), nil)

	logger := logging.NewComponentLogger(slogNew(tee), "tee")
	logger.Info("info line")
	logger.Warn("warn line")

	if !strings.Contains(debugBuf.String(), "info line") || !strings.Contains(debugBuf.String(), "warn line") {
		t.Fatalf("debug handler missing records: %q", debugBuf.String())
	}
	if strings.Contains(warnBuf.String(), "info line") || !strings.Contains(warnBuf.String(), "tee: warn line") {
		t.Fatalf("warn handler got %q", warnBuf.String())
	}
}
