package engine

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fixed stream identifiers. Plugin streams use PluginStream.
const (
	StreamAll   = "all"
	StreamCore  = "core"
	StreamError = "error"
)

// CompressedSuffix marks a rotated segment that has been gzipped.
const CompressedSuffix = ".gz"

// ExportsDir is the directory under the data dir that holds produced
// archives; it is excluded from scans, sweeps and compression.
const ExportsDir = "exports"

// PluginStream returns the stream identifier for a plugin name.
func PluginStream(name string) string {
	return "plugin:" + name
}

// streamBasePath maps a stream identifier to the path of its active segment.
// Directory layout is a stable on-disk contract:
//
//	all/all.log  core/core.log  errors/error.log  plugins/<name>/plugin.log
func streamBasePath(dataDir, stream string) (string, error) {
	switch {
	case stream == StreamAll:
		return filepath.Join(dataDir, "all", "all.log"), nil
	case stream == StreamCore:
		return filepath.Join(dataDir, "core", "core.log"), nil
	case stream == StreamError:
		return filepath.Join(dataDir, "errors", "error.log"), nil
	case strings.HasPrefix(stream, "plugin:"):
		name := sanitizeName(strings.TrimPrefix(stream, "plugin:"))
		return filepath.Join(dataDir, "plugins", name, "plugin.log"), nil
	default:
		return "", fmt.Errorf("unknown stream %q", stream)
	}
}

// sanitizeName makes a plugin name safe to use as a directory name.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), ".")
	if s == "" {
		return "unknown"
	}
	return s
}

// FileInfo describes one on-disk segment file.
type FileInfo struct {
	Path       string // absolute path
	Rel        string // path relative to the data dir
	Size       int64
	ModTime    time.Time
	Compressed bool
	// Active marks the segment currently open for append (rotation index 0).
	Active bool
}

// ScanFiles lists every segment file under dataDir, skipping the exports
// directory. Files that vanish mid-scan are silently dropped; sweeps and
// scans race deletion by design.
func ScanFiles(dataDir string) ([]FileInfo, error) {
	var out []FileInfo
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == ExportsDir && filepath.Dir(path) == filepath.Clean(dataDir) {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !isSegmentName(name) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dataDir, path)
		if err != nil {
			rel = name
		}
		out = append(out, FileInfo{
			Path:       path,
			Rel:        rel,
			Size:       info.Size(),
			ModTime:    info.ModTime(),
			Compressed: strings.HasSuffix(name, CompressedSuffix),
			Active:     strings.HasSuffix(name, ".log"),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// isSegmentName reports whether a file name belongs to a segment chain:
// base.log, base.log.N or base.log.N.gz.
func isSegmentName(name string) bool {
	return strings.HasSuffix(name, ".log") || strings.Contains(name, ".log.")
}
