package logger

import (
	"bytes"
	stdlog "log"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

func TestInitWriter_JSONWithServiceFields(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "debug", false, "1.2.3")

	zlog.Info().Str("ip", "8.8.8.8").Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if line["service"] != ServiceName || line["version"] != "1.2.3" {
		t.Errorf("expected service fields, got %v", line)
	}
	if line["message"] != "hello" || line["ip"] != "8.8.8.8" {
		t.Errorf("unexpected fields: %v", line)
	}
}

func TestInitWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "warn", false, "test")

	zlog.Info().Msg("dropped")
	zlog.Warn().Msg("kept")

	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("unexpected output: %q", buf.String())
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("expected global level warn, got %s", zerolog.GlobalLevel())
	}
}

func TestInitWriter_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "chatty", false, "test")

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %s", zerolog.GlobalLevel())
	}
}

func TestInitWriter_RedirectsStandardLogger(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", false, "test")

	stdlog.Print("from std log")

	if !strings.Contains(buf.String(), "from std log") {
		t.Errorf("expected std log output in zerolog, got %q", buf.String())
	}
}
