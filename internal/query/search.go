package query

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/logkeep/logkeep/internal/engine"
)

// Match is one search hit: the segment it came from (relative to the data
// dir), its line number within that segment, and the line itself.
type Match struct {
	File string
	Line int
	Text string
}

// SearchOptions narrow a search. Stream restricts matching to one stream
// identifier ("all", "core", "error", "plugin:<name>"); empty searches
// everything.
type SearchOptions struct {
	Stream string
}

// Search scans every segment (active, rotated and compressed) for lines
// containing keyword, case-insensitively. Matches are streamed to yield as
// they are found rather than collected, so arbitrarily large corpora never
// materialize in memory; yield returning false stops the scan. Unreadable
// segments are skipped and logged.
func (s *Service) Search(keyword string, opt SearchOptions, yield func(Match) bool) error {
	if keyword == "" {
		return fmt.Errorf("search keyword must not be empty")
	}
	needle := strings.ToLower(keyword)

	files, err := engine.ScanFiles(s.dataDir)
	if err != nil {
		return fmt.Errorf("scan corpus: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })

	for _, f := range files {
		if opt.Stream != "" && streamOf(f.Rel) != opt.Stream {
			continue
		}
		stop, err := s.searchFile(f, needle, yield)
		if err != nil {
			s.logger.Warn("skipping unreadable segment", "path", f.Path, "err", err)
			continue
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (s *Service) searchFile(f engine.FileInfo, needle string, yield func(Match) bool) (stop bool, err error) {
	rc, err := openSegment(f)
	if err != nil {
		return false, err
	}
	defer rc.Close()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		if !yield(Match{File: f.Rel, Line: lineNo, Text: line}) {
			return true, nil
		}
	}
	return false, sc.Err()
}
