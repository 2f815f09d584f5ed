package engine

import (
	"strings"
	"testing"
	"time"
)

func TestLevelOrdering(t *testing.T) {
	levels := []Level{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical}
	for i := 1; i < len(levels); i++ {
		if levels[i] <= levels[i-1] {
			t.Errorf("%v should be greater than %v", levels[i], levels[i-1])
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"Warning", LevelWarning, false},
		{"WARN", LevelWarning, false},
		{" ERROR ", LevelError, false},
		{"CRITICAL", LevelCritical, false},
		{"TRACE", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatLine(t *testing.T) {
	rec := Record{
		Time:  time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC),
		Level: LevelInfo,
		Text:  "hello world",
	}
	line := rec.FormatLine()
	if !strings.HasPrefix(line, "[2024-03-01 12:30:45]") {
		t.Errorf("timestamp missing: %q", line)
	}
	if !strings.Contains(line, "[INFO ]") {
		t.Errorf("level missing: %q", line)
	}
	if !strings.HasSuffix(line, "hello world") {
		t.Errorf("text missing: %q", line)
	}
}
