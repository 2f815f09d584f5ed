package engine

import (
	"log/slog"
	"os"
	"sort"
	"time"
)

// SweepResult summarizes one retention pass.
type SweepResult struct {
	Deleted    int
	FreedBytes int64
}

// cleaner enforces the age and total-size budgets over all streams. Rotated
// segments are immutable, so the only coordination needed is with the
// compression workers, via the shared claim set. Active segments are never
// deleted.
type cleaner struct {
	dataDir      string
	maxAge       time.Duration
	maxTotalSize int64
	claims       *claimSet
	logger       *slog.Logger
	now          func() time.Time
}

func newCleaner(dataDir string, maxAge time.Duration, maxTotalSize int64, claims *claimSet, logger *slog.Logger, now func() time.Time) *cleaner {
	return &cleaner{
		dataDir:      dataDir,
		maxAge:       maxAge,
		maxTotalSize: maxTotalSize,
		claims:       claims,
		logger:       logger,
		now:          now,
	}
}

// Sweep runs the age pass and then the size pass. The passes are
// independent: either may delete even when the other budget is not
// exceeded. Delete failures are skipped and retried on the next sweep.
func (cl *cleaner) Sweep() SweepResult {
	var res SweepResult

	files, err := ScanFiles(cl.dataDir)
	if err != nil {
		cl.logger.Warn("retention scan failed", "err", err)
		return res
	}

	now := cl.now()
	threshold := now.Add(-cl.maxAge)

	// Age pass: rotated segments past max_age_days go, compressed or not.
	remaining := files[:0]
	for _, f := range files {
		if !f.Active && f.ModTime.Before(threshold) {
			if cl.remove(f, &res) {
				continue
			}
		}
		remaining = append(remaining, f)
	}

	// Size pass: oldest-first across all streams until the corpus fits.
	var total int64
	for _, f := range remaining {
		total += f.Size
	}
	if total <= cl.maxTotalSize {
		return res
	}

	sort.Slice(remaining, func(i, j int) bool {
		return remaining[i].ModTime.Before(remaining[j].ModTime)
	})
	for _, f := range remaining {
		if total <= cl.maxTotalSize {
			break
		}
		if f.Active {
			continue
		}
		if cl.remove(f, &res) {
			total -= f.Size
		}
	}
	return res
}

// remove deletes one rotated segment under a claim. Returns false when the
// file is claimed elsewhere or the delete fails; both cases retry later.
func (cl *cleaner) remove(f FileInfo, res *SweepResult) bool {
	if !cl.claims.tryClaim(f.Path) {
		return false
	}
	defer cl.claims.release(f.Path)

	if err := os.Remove(f.Path); err != nil {
		if !os.IsNotExist(err) {
			cl.logger.Warn("retention delete failed, will retry", "path", f.Path, "err", err)
			return false
		}
	}
	res.Deleted++
	res.FreedBytes += f.Size
	return true
}
