package query

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveOutcome classifies a fuzzy plugin-name lookup. Ambiguity and
// absence are expected user-facing cases, not errors: the service never
// guesses, callers disambiguate.
type ResolveOutcome int

const (
	ResolveFound ResolveOutcome = iota
	ResolveNotFound
	ResolveAmbiguous
)

// Resolution is the result of ResolvePlugin. Plugin is set only for
// ResolveFound; Candidates lists matches on ambiguity and every known
// plugin on a miss.
type Resolution struct {
	Outcome    ResolveOutcome
	Plugin     string
	Candidates []string
}

// Plugins lists the known plugin stream names, sorted.
func (s *Service) Plugins() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, "plugins"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ResolvePlugin matches fragment against known plugin names by
// case-insensitive substring containment. An exact name wins outright even
// when it is also a substring of other names.
func (s *Service) ResolvePlugin(fragment string) (Resolution, error) {
	names, err := s.Plugins()
	if err != nil {
		return Resolution{}, err
	}

	frag := strings.ToLower(strings.TrimSpace(fragment))
	var matched []string
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), frag) {
			if strings.EqualFold(n, fragment) {
				return Resolution{Outcome: ResolveFound, Plugin: n}, nil
			}
			matched = append(matched, n)
		}
	}

	switch len(matched) {
	case 0:
		return Resolution{Outcome: ResolveNotFound, Candidates: names}, nil
	case 1:
		return Resolution{Outcome: ResolveFound, Plugin: matched[0]}, nil
	default:
		return Resolution{Outcome: ResolveAmbiguous, Candidates: matched}, nil
	}
}
