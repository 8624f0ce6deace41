package logs

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := New(&buf, level, false)

	logger.Info("hidden")
	logger.Warn("shown", "snippet", "a.lit#main")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record logged at warn level:\n%s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "snippet=a.lit#main") {
		t.Errorf("warn record missing:\n%s", out)
	}

	buf.Reset()
	level.Set(slog.LevelDebug)
	logger.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("level change not applied:\n%s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToJournalKey(t *testing.T) {
	t.Parallel()

	if got := toJournalKey("snippet.id-2"); got != "SNIPPET_ID_2" {
		t.Errorf("toJournalKey = %q", got)
	}
}
