package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		logger = newLogger(os.Stdout)
	})
	return &buf
}

func TestInfoWritesJSONLine(t *testing.T) {
	buf := captureOutput(t)

	Info("analysis.completed", map[string]any{"analysis_id": "abc", "match_score": 72})

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if payload["msg"] != "analysis.completed" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts field")
	}
	if payload["analysis_id"] != "abc" {
		t.Fatalf("unexpected analysis_id: %v", payload["analysis_id"])
	}
}

func TestSetLevelFiltersInfo(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("error")

	Info("dropped", nil)
	Error("kept", map[string]any{"error": "boom"})

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Fatalf("expected error line, got %s", out)
	}
}
