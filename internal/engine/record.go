package engine

import (
	"fmt"
	"strings"
	"time"
)

// Level is a log severity. Values are ordered so that comparisons express
// "at least as severe as".
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

// String returns the canonical upper-case name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to its Level. WARN is accepted as an alias
// for WARNING.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARNING", "WARN":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "CRITICAL":
		return LevelCritical, nil
	default:
		return LevelDebug, fmt.Errorf("unknown log level %q", s)
	}
}

// SourceKind distinguishes where a record originated.
type SourceKind int

const (
	// SourceUnrouted records go to the global stream only.
	SourceUnrouted SourceKind = iota
	// SourceCore records come from the host's core system.
	SourceCore
	// SourcePlugin records carry the name of the emitting plugin.
	SourcePlugin
)

// Record is one log event in transit from the host to the segment writers.
type Record struct {
	Time   time.Time
	Level  Level
	Source SourceKind
	Plugin string
	Text   string
}

// FormatLine renders the record as the single line persisted to disk. No
// component parses this back; it only has to be readable.
func (r Record) FormatLine() string {
	return fmt.Sprintf("[%s] [%-5s] %s", r.Time.Format("2006-01-02 15:04:05"), r.Level, r.Text)
}
