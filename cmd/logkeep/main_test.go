package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/logkeep/logkeep/internal/engine"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
}

func TestParseIngestLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		level  engine.Level
		source engine.SourceKind
		plugin string
		text   string
	}{
		{
			name:   "core record",
			line:   "2024-06-01T07:59:00Z ERROR core database gone",
			level:  engine.LevelError,
			source: engine.SourceCore,
			text:   "database gone",
		},
		{
			name:   "plugin record",
			line:   "2024-06-01T07:59:00Z INFO plugin/memo saved a note",
			level:  engine.LevelInfo,
			source: engine.SourcePlugin,
			plugin: "memo",
			text:   "saved a note",
		},
		{
			name:   "unrouted record",
			line:   "2024-06-01T07:59:00Z DEBUG - something happened",
			level:  engine.LevelDebug,
			source: engine.SourceUnrouted,
			text:   "something happened",
		},
		{
			name:   "unparsable falls back verbatim",
			line:   "raw panic output with no structure",
			level:  engine.LevelInfo,
			source: engine.SourceUnrouted,
			text:   "raw panic output with no structure",
		},
		{
			name:   "bad timestamp falls back",
			line:   "yesterday ERROR core oops",
			level:  engine.LevelInfo,
			source: engine.SourceUnrouted,
			text:   "yesterday ERROR core oops",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := parseIngestLine(tt.line, fixedNow)
			if rec.Level != tt.level {
				t.Errorf("Level = %v, want %v", rec.Level, tt.level)
			}
			if rec.Source != tt.source {
				t.Errorf("Source = %v, want %v", rec.Source, tt.source)
			}
			if rec.Plugin != tt.plugin {
				t.Errorf("Plugin = %q, want %q", rec.Plugin, tt.plugin)
			}
			if rec.Text != tt.text {
				t.Errorf("Text = %q, want %q", rec.Text, tt.text)
			}
		})
	}
}

func TestStatusCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "all", "all.log")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("a line\n"), 0644); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"status", "--data", dir})
	if err := root.Execute(); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "files:      1") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSendCommandUnknownScope(t *testing.T) {
	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"send", "everything", "--data", t.TempDir()})
	if err := root.Execute(); err == nil {
		t.Error("unknown scope should fail")
	}
}
