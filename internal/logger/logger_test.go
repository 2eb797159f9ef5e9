package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestZapLoggerWritesStructuredObject(t *testing.T) {
	var buf bytes.Buffer
	log, err := Init("debug", &buf)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	log.WarnObj("asset fetch failed", "asset_error", map[string]any{
		"item":   "icon/1.png",
		"status": 502,
	})

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["msg"] != "asset fetch failed" {
		t.Fatalf("unexpected msg %v", line["msg"])
	}
	if line["level"] != "warn" {
		t.Fatalf("unexpected level %v", line["level"])
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts key in %v", line)
	}
	obj, ok := line["asset_error"].(map[string]any)
	if !ok || obj["item"] != "icon/1.png" {
		t.Fatalf("unexpected structured field %v", line["asset_error"])
	}
}

func TestZapLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := Init("error", &buf)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	log.InfoObj("ignored", "k", "v")
	log.DebugObj("ignored", "k", "v")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below error level, got %q", buf.String())
	}
}

func TestPackageHelpersNoopWithoutInit(t *testing.T) {
	saved := S
	S = nil
	defer func() { S = saved }()

	InfoObj("x", "k", "v")
	if err := Close(); err != nil {
		t.Fatalf("Close without init: %v", err)
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	if _, err := Init("loud", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestInitDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := Init("", &buf)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	log.DebugObj("hidden", "k", "v")
	log.InfoObj("shown", "k", "v")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected info level output, got %q", buf.String())
	}
}
