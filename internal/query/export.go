package query

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"

	"github.com/logkeep/logkeep/internal/engine"
)

// ErrNoFiles is returned when an export or send matches no segment files.
var ErrNoFiles = errors.New("no log files matched")

// Bundle describes a produced archive.
type Bundle struct {
	Path      string
	Files     int
	SizeBytes int64
}

// ScopeKind selects which streams a send packages.
type ScopeKind int

const (
	ScopeAll ScopeKind = iota
	ScopeErrors
	ScopePlugin
)

// Scope is a send target. Plugin must be a resolved plugin name (see
// ResolvePlugin); SendBundle does not fuzzy-match.
type Scope struct {
	Kind   ScopeKind
	Plugin string
}

const archiveStamp = "20060102_150405"

// Export bundles every segment whose modification time falls within the
// trailing number of days into a zip under exports/. Compressed segments are
// stored as-is; the archive is assembled in a temp file and renamed into
// place, so a failed export leaves nothing behind.
func (s *Service) Export(days int) (Bundle, error) {
	if days <= 0 {
		return Bundle{}, fmt.Errorf("export window must be positive, got %d days", days)
	}
	files, err := engine.ScanFiles(s.dataDir)
	if err != nil {
		return Bundle{}, fmt.Errorf("scan corpus: %w", err)
	}

	cutoff := s.now().AddDate(0, 0, -days)
	var selected []engine.FileInfo
	for _, f := range files {
		if !f.ModTime.Before(cutoff) {
			selected = append(selected, f)
		}
	}

	name := fmt.Sprintf("logs_export_%s.zip", s.now().Format(archiveStamp))
	return s.buildArchive(name, selected)
}

// SendBundle packages the streams selected by scope for immediate handoff.
// It reuses the export archive machinery with scope-based selection instead
// of a date window.
func (s *Service) SendBundle(scope Scope) (Bundle, error) {
	files, err := engine.ScanFiles(s.dataDir)
	if err != nil {
		return Bundle{}, fmt.Errorf("scan corpus: %w", err)
	}

	var selected []engine.FileInfo
	var name string
	stamp := s.now().Format(archiveStamp)

	switch scope.Kind {
	case ScopeAll:
		selected = files
		name = fmt.Sprintf("all_logs_%s.zip", stamp)
	case ScopeErrors:
		for _, f := range files {
			if streamOf(f.Rel) == engine.StreamError {
				selected = append(selected, f)
			}
		}
		name = fmt.Sprintf("error_logs_%s.zip", stamp)
	case ScopePlugin:
		if scope.Plugin == "" {
			return Bundle{}, fmt.Errorf("plugin scope requires a resolved plugin name")
		}
		want := engine.PluginStream(scope.Plugin)
		for _, f := range files {
			if streamOf(f.Rel) == want {
				selected = append(selected, f)
			}
		}
		name = fmt.Sprintf("plugin_%s_%s.zip", scope.Plugin, stamp)
	default:
		return Bundle{}, fmt.Errorf("unknown send scope %d", scope.Kind)
	}

	return s.buildArchive(name, selected)
}

// buildArchive writes the selected segments into exports/<name>. The zip's
// deflate stage uses the klauspost encoder. Any failure removes the
// in-progress temp file.
func (s *Service) buildArchive(name string, files []engine.FileInfo) (Bundle, error) {
	if len(files) == 0 {
		return Bundle{}, ErrNoFiles
	}

	exportDir := filepath.Join(s.dataDir, engine.ExportsDir)
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return Bundle{}, fmt.Errorf("create exports dir: %w", err)
	}

	tmp := filepath.Join(exportDir, "."+uuid.NewString()+".tmp")
	final := filepath.Join(exportDir, name)

	bundle, err := writeArchive(tmp, files)
	if err != nil {
		os.Remove(tmp)
		return Bundle{}, err
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return Bundle{}, fmt.Errorf("finalize archive: %w", err)
	}

	bundle.Path = final
	if st, err := os.Stat(final); err == nil {
		bundle.SizeBytes = st.Size()
	}
	return bundle, nil
}

func writeArchive(path string, files []engine.FileInfo) (Bundle, error) {
	out, err := os.Create(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestSpeed)
	})

	var bundle Bundle
	for _, f := range files {
		hdr := &zip.FileHeader{
			Name:     filepath.ToSlash(f.Rel),
			Modified: f.ModTime,
		}
		if f.Compressed {
			// Already gzipped; deflating again wastes cycles for nothing.
			hdr.Method = zip.Store
		} else {
			hdr.Method = zip.Deflate
		}

		src, err := os.Open(f.Path)
		if err != nil {
			// Sweeper may have raced us; skip what vanished.
			if os.IsNotExist(err) {
				continue
			}
			return bundle, fmt.Errorf("read %s: %w", f.Rel, err)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			src.Close()
			return bundle, fmt.Errorf("archive entry %s: %w", f.Rel, err)
		}
		_, err = io.Copy(w, src)
		src.Close()
		if err != nil {
			return bundle, fmt.Errorf("archive %s: %w", f.Rel, err)
		}
		bundle.Files++
	}

	if err := zw.Close(); err != nil {
		return bundle, fmt.Errorf("close archive: %w", err)
	}
	if err := out.Sync(); err != nil {
		return bundle, fmt.Errorf("sync archive: %w", err)
	}
	return bundle, nil
}

// ParseScope maps the user-facing send target ("all", "errors",
// "plugin:<name>") to a Scope.
func ParseScope(target string) (Scope, error) {
	switch {
	case target == "all":
		return Scope{Kind: ScopeAll}, nil
	case target == "errors":
		return Scope{Kind: ScopeErrors}, nil
	case strings.HasPrefix(target, "plugin:"):
		name := strings.TrimPrefix(target, "plugin:")
		if name == "" {
			return Scope{}, fmt.Errorf("plugin scope requires a name")
		}
		return Scope{Kind: ScopePlugin, Plugin: name}, nil
	default:
		return Scope{}, fmt.Errorf("unknown scope %q: want all, errors or plugin:<name>", target)
	}
}
