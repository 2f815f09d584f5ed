package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// compressor turns rotated segments into .gz siblings. A bounded queue feeds
// a fixed pool of workers; enqueueing a path already queued or claimed is
// dropped rather than blocking, so a slow pool never backs up into the write
// path. The original file is only removed after the compressed output has
// been decompressed and byte-compared against it.
type compressor struct {
	claims *claimSet
	logger *slog.Logger

	queue chan string
	mu    sync.Mutex
	inQ   map[string]struct{}
	wg    sync.WaitGroup
}

func newCompressor(claims *claimSet, logger *slog.Logger, queueSize int) *compressor {
	return &compressor{
		claims: claims,
		logger: logger,
		queue:  make(chan string, queueSize),
		inQ:    make(map[string]struct{}),
	}
}

// Start launches the worker pool. Workers drain the queue until ctx is
// cancelled; an in-flight compression always finishes its verify-or-abort.
func (c *compressor) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}
}

func (c *compressor) worker(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-c.queue:
			c.mu.Lock()
			delete(c.inQ, path)
			c.mu.Unlock()
			c.process(path)
		}
	}
}

// Wait blocks until all workers have exited.
func (c *compressor) Wait() {
	c.wg.Wait()
}

// Enqueue queues a segment for compression. Redundant requests for a path
// already queued are dropped.
func (c *compressor) Enqueue(path string) bool {
	c.mu.Lock()
	if _, dup := c.inQ[path]; dup {
		c.mu.Unlock()
		return false
	}
	select {
	case c.queue <- path:
		c.inQ[path] = struct{}{}
		c.mu.Unlock()
		return true
	default:
		c.mu.Unlock()
		return false
	}
}

// SweepEligible enqueues every rotated, uncompressed segment whose age has
// reached olderThan. Called by the scheduler.
func (c *compressor) SweepEligible(dataDir string, olderThan time.Duration, now time.Time) int {
	files, err := ScanFiles(dataDir)
	if err != nil {
		c.logger.Warn("compression sweep scan failed", "err", err)
		return 0
	}
	queued := 0
	threshold := now.Add(-olderThan)
	for _, f := range files {
		if f.Active || f.Compressed {
			continue
		}
		if f.ModTime.After(threshold) {
			continue
		}
		if c.Enqueue(f.Path) {
			queued++
		}
	}
	return queued
}

// process claims and compresses one segment, logging rather than propagating
// failures; the path is retried on a later sweep.
func (c *compressor) process(path string) {
	if !c.claims.tryClaim(path) {
		return
	}
	defer c.claims.release(path)

	if err := compressSegment(path); err != nil {
		c.logger.Warn("compression failed, original retained", "path", path, "err", err)
	}
}

// compressSegment gzips path to path.gz, verifies the output decompresses to
// byte-identical content and only then removes the original. A partial .gz
// left behind by an earlier crash is discarded before the retry. On any
// failure the original survives and the .gz is removed.
func compressSegment(path string) error {
	dst := path + CompressedSuffix
	if _, err := os.Stat(dst); err == nil {
		// Leftover from a crash mid-compression; the original is still here,
		// so the leftover is untrusted regardless of how readable it looks.
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("discard stale %s: %w", dst, err)
		}
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, src); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("compress %s: %w", path, err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("finish %s: %w", dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("sync %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close %s: %w", dst, err)
	}

	if err := verifyCompressed(path, dst); err != nil {
		os.Remove(dst)
		return fmt.Errorf("verify %s: %w", dst, err)
	}

	// Verified; the original may go.
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove original %s: %w", path, err)
	}
	return nil
}

// verifyCompressed decompresses gzPath and compares it chunk-by-chunk with
// the original file.
func verifyCompressed(origPath, gzPath string) error {
	orig, err := os.Open(origPath)
	if err != nil {
		return err
	}
	defer orig.Close()

	gf, err := os.Open(gzPath)
	if err != nil {
		return err
	}
	defer gf.Close()

	gr, err := gzip.NewReader(gf)
	if err != nil {
		return err
	}
	defer gr.Close()

	return sameContent(orig, gr)
}

func sameContent(a, b io.Reader) error {
	bufA := make([]byte, 32*1024)
	bufB := make([]byte, 32*1024)
	var off int64
	for {
		na, errA := io.ReadFull(a, bufA)
		nb, errB := io.ReadFull(b, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return fmt.Errorf("content mismatch near offset %d", off)
		}
		off += int64(na)
		aEOF := errA == io.EOF || errA == io.ErrUnexpectedEOF
		bEOF := errB == io.EOF || errB == io.ErrUnexpectedEOF
		switch {
		case errA == nil && errB == nil:
			continue
		case aEOF && bEOF:
			return nil
		case aEOF != bEOF:
			return fmt.Errorf("length mismatch near offset %d", off)
		default:
			if errA != nil {
				return errA
			}
			return errB
		}
	}
}
