// Package engine implements the multi-stream log persistence core: routed
// appends over rotating segment files, background gzip compression with
// verify-before-delete, and age/size retention sweeps.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/logkeep/logkeep/internal/config"
	"github.com/logkeep/logkeep/internal/redact"
)

const (
	compressionWorkers = 2
	compressionQueue   = 64

	rotationCheckEvery = time.Minute
	compressSweepEvery = time.Hour
	retentionEvery     = time.Hour
)

// CleanResult reports what a forced clean accomplished.
type CleanResult struct {
	Compressed int
	Deleted    int
	FreedBytes int64
}

// Engine is the write-path facade. The host's logging callback feeds
// Ingest; Start launches the background scheduler and compression pool.
// Ingest never returns an error and never panics: logging must stay
// fail-open toward the host.
type Engine struct {
	opts     config.Options
	logger   *slog.Logger
	redactor *redact.Redactor
	router   *router
	comp     *compressor
	cleaner  *cleaner
	claims   *claimSet
	minLevel Level
	now      func() time.Time

	// Throttles internal reporting of write failures so a full disk cannot
	// log-storm through the fallback channel.
	errLimit *rate.Limiter

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New builds an engine from validated options. Enabled fixed streams and
// their directories are created immediately.
func New(opts config.Options, logger *slog.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	minLevel, err := ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, err
	}

	now := time.Now
	rt, err := newRouter(opts, logger, now)
	if err != nil {
		return nil, fmt.Errorf("init streams: %w", err)
	}

	claims := newClaimSet()
	e := &Engine{
		opts:     opts,
		logger:   logger,
		router:   rt,
		comp:     newCompressor(claims, logger, compressionQueue),
		claims:   claims,
		minLevel: minLevel,
		now:      now,
		errLimit: rate.NewLimiter(rate.Every(10*time.Second), 5),
	}
	e.cleaner = newCleaner(
		opts.DataDir,
		time.Duration(opts.MaxAgeDays)*24*time.Hour,
		opts.MaxTotalSizeBytes(),
		claims,
		logger,
		now,
	)
	if opts.EnableSensitiveFilter {
		e.redactor = redact.New(opts.SensitiveKeywordList())
	}
	return e, nil
}

// Start launches the scheduler and the compression worker pool. It is a
// no-op when called twice.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true

	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})

	if e.opts.EnableCompression {
		e.comp.Start(ctx, compressionWorkers)
	}

	sched := &scheduler{
		rotationEvery: rotationCheckEvery,
		onRotation: func() {
			e.router.CheckTimeRotation(e.now())
		},
	}
	if e.opts.EnableCompression {
		sched.compressEvery = compressSweepEvery
		sched.onCompress = func() {
			n := e.comp.SweepEligible(e.opts.DataDir, e.compressionDelay(), e.now())
			if n > 0 {
				e.logger.Debug("compression sweep", "queued", n)
			}
		}
	}
	if e.opts.AutoCleanEnabled {
		sched.retentionEvery = retentionEvery
		sched.onRetention = func() {
			run := uuid.NewString()
			res := e.cleaner.Sweep()
			if res.Deleted > 0 {
				e.logger.Info("retention sweep",
					"run", run, "deleted", res.Deleted, "freed_bytes", res.FreedBytes)
			}
		}
	}

	go func() {
		defer close(e.done)
		sched.Run(ctx)
	}()
}

// Ingest routes one record to its streams. Records below the configured
// level are ignored; redaction happens once, before fan-out. Write failures
// are reported through the internal logger and the record is dropped.
func (e *Engine) Ingest(rec Record) {
	if rec.Level < e.minLevel {
		return
	}
	if rec.Time.IsZero() {
		rec.Time = e.now()
	}
	if e.redactor != nil {
		rec.Text = e.redactor.Sanitize(rec.Text)
	}

	line := rec.FormatLine()
	for _, w := range e.router.Targets(rec) {
		if err := w.Append(line); err != nil {
			if e.errLimit.Allow() {
				e.logger.Error("append failed, record dropped", "err", err)
			}
		}
	}
}

// Clean forces an immediate maintenance pass: eligible segments are
// compressed synchronously, then a retention sweep runs. Mirrors the
// periodic duties but reports counts to the caller.
func (e *Engine) Clean() CleanResult {
	var res CleanResult
	now := e.now()

	if e.opts.EnableCompression {
		files, err := ScanFiles(e.opts.DataDir)
		if err != nil {
			e.logger.Warn("clean scan failed", "err", err)
		}
		threshold := now.Add(-e.compressionDelay())
		for _, f := range files {
			if f.Active || f.Compressed || f.ModTime.After(threshold) {
				continue
			}
			if !e.claims.tryClaim(f.Path) {
				continue
			}
			err := compressSegment(f.Path)
			e.claims.release(f.Path)
			if err != nil {
				e.logger.Warn("compression failed, original retained", "path", f.Path, "err", err)
				continue
			}
			res.Compressed++
		}
	}

	if e.opts.AutoCleanEnabled {
		sw := e.cleaner.Sweep()
		res.Deleted = sw.Deleted
		res.FreedBytes = sw.FreedBytes
	}
	return res
}

// DataDir returns the root of the on-disk corpus.
func (e *Engine) DataDir() string {
	return e.opts.DataDir
}

// Streams lists the stream identifiers currently carrying a writer.
func (e *Engine) Streams() []string {
	return e.router.Streams()
}

// Close stops the scheduler and worker pool, waits for in-flight work, and
// closes every active segment.
func (e *Engine) Close() error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		e.comp.Wait()
	}
	e.router.Close()
	return nil
}

func (e *Engine) compressionDelay() time.Duration {
	return time.Duration(e.opts.CompressionAfterDays) * 24 * time.Hour
}
