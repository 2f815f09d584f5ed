package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/logkeep/logkeep/internal/config"
)

// router fans records out to segment writers. The fixed streams are created
// up front according to the enable flags; plugin streams appear lazily the
// first time a record from a new plugin name arrives and live for the
// process lifetime.
type router struct {
	dataDir string
	opts    config.Options
	policy  rotationPolicy
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	writers map[string]*segmentWriter
}

func newRouter(opts config.Options, logger *slog.Logger, now func() time.Time) (*router, error) {
	r := &router{
		dataDir: opts.DataDir,
		opts:    opts,
		policy:  policyFromOptions(opts),
		logger:  logger,
		now:     now,
		writers: make(map[string]*segmentWriter),
	}

	fixed := []struct {
		stream  string
		enabled bool
	}{
		{StreamAll, opts.EnableAllLog},
		{StreamCore, opts.EnableCoreLog},
		{StreamError, opts.EnableErrorLog},
	}
	for _, s := range fixed {
		if !s.enabled {
			continue
		}
		if _, err := r.writer(s.stream); err != nil {
			r.Close()
			return nil, err
		}
	}
	return r, nil
}

// writer returns the segment writer for a stream, creating it (and its
// directory) on first use.
func (r *router) writer(stream string) (*segmentWriter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.writers[stream]; ok {
		return w, nil
	}
	base, err := streamBasePath(r.dataDir, stream)
	if err != nil {
		return nil, err
	}
	w, err := newSegmentWriter(stream, base, r.policy, r.logger, r.now)
	if err != nil {
		return nil, fmt.Errorf("create writer for %s: %w", stream, err)
	}
	r.writers[stream] = w
	return w, nil
}

// Targets resolves the set of writers a record fans out to. The record
// always targets the global stream when enabled; core and plugin membership
// comes from the source tag, error membership from the level.
func (r *router) Targets(rec Record) []*segmentWriter {
	var out []*segmentWriter

	add := func(stream string) {
		w, err := r.writer(stream)
		if err != nil {
			r.logger.Warn("stream unavailable", "stream", stream, "err", err)
			return
		}
		out = append(out, w)
	}

	if r.opts.EnableAllLog {
		add(StreamAll)
	}
	switch rec.Source {
	case SourceCore:
		if r.opts.EnableCoreLog {
			add(StreamCore)
		}
	case SourcePlugin:
		if r.opts.EnablePluginSeparation && rec.Plugin != "" {
			add(PluginStream(rec.Plugin))
		}
	}
	if rec.Level >= LevelError && r.opts.EnableErrorLog {
		add(StreamError)
	}
	return out
}

// CheckTimeRotation asks every writer to evaluate its time boundary, so
// quiet streams still rotate at midnight or the hour.
func (r *router) CheckTimeRotation(now time.Time) {
	for _, w := range r.snapshot() {
		w.CheckTimeRotation(now)
	}
}

// Streams lists the known stream identifiers, sorted.
func (r *router) Streams() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.writers))
	for s := range r.writers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (r *router) snapshot() []*segmentWriter {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*segmentWriter, 0, len(r.writers))
	for _, w := range r.writers {
		out = append(out, w)
	}
	return out
}

func (r *router) Close() {
	for _, w := range r.snapshot() {
		if err := w.Close(); err != nil {
			r.logger.Warn("close writer failed", "stream", w.stream, "err", err)
		}
	}
}
