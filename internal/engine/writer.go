package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// segmentWriter owns the active segment of one stream. All appends and
// rotations for the stream are serialized under its mutex; different streams
// proceed independently. Every append is synced so a crash loses at most the
// OS buffer of the write in flight.
type segmentWriter struct {
	stream string
	base   string // path of the active segment (rotation index 0)
	policy rotationPolicy
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	file     *os.File
	size     int64
	openedAt time.Time
	closed   bool
}

func newSegmentWriter(stream, base string, policy rotationPolicy, logger *slog.Logger, now func() time.Time) (*segmentWriter, error) {
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return nil, fmt.Errorf("create stream dir: %w", err)
	}
	w := &segmentWriter{
		stream: stream,
		base:   base,
		policy: policy,
		logger: logger,
		now:    now,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// open creates or re-opens the active segment and reconciles its size.
func (w *segmentWriter) open() error {
	f, err := os.OpenFile(w.base, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open segment %s: %w", w.base, err)
	}
	w.file = f
	w.size = 0
	w.openedAt = w.now()
	if st, err := f.Stat(); err == nil {
		w.size = st.Size()
		// A pre-existing active file keeps its original age for time-based
		// rotation, as far as mtime can tell us.
		if w.size > 0 && st.ModTime().Before(w.openedAt) {
			w.openedAt = st.ModTime()
		}
	}
	return nil
}

// Append writes one line plus newline to the active segment and evaluates
// rotation afterwards. A rotation failure is not an append failure: the line
// is on disk either way, and rotation is retried on the next evaluation.
func (w *segmentWriter) Append(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("segment writer %s is closed", w.stream)
	}
	if w.file == nil {
		// A previous rotation failed to reopen; retry before dropping.
		if err := w.open(); err != nil {
			return err
		}
	}

	n, err := fmt.Fprintln(w.file, line)
	if err != nil {
		return fmt.Errorf("append to %s: %w", w.stream, err)
	}
	w.size += int64(n)
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", w.stream, err)
	}

	now := w.now()
	if w.policy.sizeDue(w.size) || w.policy.timeDue(w.openedAt, now) {
		w.rotateLocked()
	}
	return nil
}

// CheckTimeRotation rotates a quiet stream at its boundary. Driven by the
// scheduler so a stream that receives no records still rotates at midnight
// or the top of the hour.
func (w *segmentWriter) CheckTimeRotation(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.file == nil {
		return
	}
	if w.size > 0 && w.policy.timeDue(w.openedAt, now) {
		w.rotateLocked()
	}
}

// rotateLocked closes the active file, shifts the backup chain and opens a
// fresh active segment. On failure the stream keeps appending to the old
// file past its budget rather than losing records.
func (w *segmentWriter) rotateLocked() {
	if err := w.file.Close(); err != nil {
		w.logger.Warn("close before rotation failed", "stream", w.stream, "err", err)
	}
	w.file = nil

	if err := shiftBackups(w.base, w.policy.backupCount); err != nil {
		w.logger.Error("rotation failed, continuing on current segment",
			"stream", w.stream, "err", err)
		// Fall through: reopen whatever is at the base path.
	}

	if err := w.open(); err != nil {
		w.logger.Error("reopen after rotation failed", "stream", w.stream, "err", err)
	}
}

// ActivePath returns the path of the segment currently open for append.
func (w *segmentWriter) ActivePath() string {
	return w.base
}

func (w *segmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
