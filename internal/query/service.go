// Package query answers search, status and export requests over the on-disk
// log corpus. It reads the directory tree directly and never coordinates
// with the write path: rotated segments are immutable and the active segment
// is only ever appended to, so reads are safe by construction.
package query

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/logkeep/logkeep/internal/engine"
)

// Service exposes the command-facing read API.
type Service struct {
	dataDir string
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a query service over dataDir.
func NewService(dataDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{dataDir: dataDir, logger: logger, now: time.Now}
}

// openSegment opens a segment for reading, transparently decompressing
// compressed ones.
func openSegment(f engine.FileInfo) (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	if !f.Compressed {
		return file, nil
	}
	gr, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &gzipSegment{file: file, gr: gr}, nil
}

type gzipSegment struct {
	file *os.File
	gr   *gzip.Reader
}

func (g *gzipSegment) Read(p []byte) (int, error) { return g.gr.Read(p) }

func (g *gzipSegment) Close() error {
	g.gr.Close()
	return g.file.Close()
}

// streamOf maps a segment's relative path to its stream identifier.
func streamOf(rel string) string {
	parts := strings.Split(strings.ReplaceAll(rel, "\\", "/"), "/")
	switch parts[0] {
	case "all":
		return engine.StreamAll
	case "core":
		return engine.StreamCore
	case "errors":
		return engine.StreamError
	case "plugins":
		if len(parts) > 1 {
			return engine.PluginStream(parts[1])
		}
	}
	return parts[0]
}
