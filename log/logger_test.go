package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/placeback/types"
)

func TestLogger_RunContext(t *testing.T) {
	var buf bytes.Buffer
	meta := &types.RunMeta{RunID: "run-001", Mode: types.ModeTimelapse, Dataset: "place"}
	l := NewLoggerWithWriter(meta, &buf, zapcore.DebugLevel)

	l.Warn("overlap", map[string]any{"previous": 3, "current": 4})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["level"] != "warn" || entry["message"] != "overlap" {
		t.Errorf("entry = %v", entry)
	}
	if entry["run_id"] != "run-001" || entry["mode"] != "timelapse" || entry["dataset"] != "place" {
		t.Errorf("missing run context: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("missing timestamp")
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["previous"] != float64(3) {
		t.Errorf("fields = %v", entry["fields"])
	}
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(nil, &buf, zapcore.InfoLevel)

	l.Debug("hidden", nil)
	l.Sugar().Infof("shard %d complete", 7)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug entry written at info level")
	}
	if !strings.Contains(out, "shard 7 complete") {
		t.Errorf("output = %q", out)
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("nothing", nil)
	l.Sugar().With("k", "v").Errorf("still nothing")
}
