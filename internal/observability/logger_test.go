package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerLevelAndConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := NewLogger(LogConfig{Level: "info", Format: "console", Name: "seichat"}, &buf)
	logger.Debug("hidden")
	logger.Info("visible")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %s", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "seichat") {
		t.Fatalf("missing info line: %s", out)
	}
}

func TestNewLoggerDefaultsToWarn(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := NewLogger(LogConfig{Level: "loud"}, &buf)
	logger.Info("quiet")
	logger.Warn("careful")
	_ = closeFn()
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "careful") {
		t.Fatalf("unexpected output for invalid level: %s", buf.String())
	}
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "seichat.log")
	var buf bytes.Buffer
	logger, closeFn := NewLogger(LogConfig{Level: "debug", Format: "json", File: path, MaxSizeMB: 1}, &buf)
	logger.Info("to file")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(raw), &line); err != nil {
		t.Fatalf("file line is not JSON: %v (%s)", err, raw)
	}
	if line["msg"] != "to file" || line["level"] != "INFO" {
		t.Fatalf("unexpected file line %v", line)
	}
}
