package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/logkeep/logkeep/internal/config"
)

// rotationPolicy decides when a stream's active segment must be rotated and
// how many rotated backups survive the shift.
type rotationPolicy struct {
	strategy    string
	interval    string
	maxBytes    int64
	backupCount int
}

func policyFromOptions(o config.Options) rotationPolicy {
	return rotationPolicy{
		strategy:    o.RotationStrategy,
		interval:    o.RotationInterval,
		maxBytes:    o.MaxFileSizeBytes(),
		backupCount: o.BackupCount,
	}
}

// sizeDue reports whether the active segment has reached its size budget.
func (p rotationPolicy) sizeDue(size int64) bool {
	if p.strategy == config.StrategyTime {
		return false
	}
	return size >= p.maxBytes
}

// timeDue reports whether a rotation boundary was crossed since the active
// segment was opened: top of the hour for hourly, midnight for daily.
func (p rotationPolicy) timeDue(openedAt, now time.Time) bool {
	if p.strategy == config.StrategySize {
		return false
	}
	return p.boundary(now).After(p.boundary(openedAt))
}

func (p rotationPolicy) boundary(t time.Time) time.Time {
	if p.interval == config.IntervalHourly {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// shiftBackups renames base.log.N (and compressed counterparts) up one index
// and then renames the closed active file to base.log.1. The file at index
// backupCount is evicted outright first; the count cap deletes, it never
// merely marks. With backupCount == 0 the closed active file itself is
// removed.
func shiftBackups(base string, backupCount int) error {
	if backupCount == 0 {
		return removeBackup(base)
	}

	// Evict the oldest index, both plain and compressed forms.
	if err := removeBackup(fmt.Sprintf("%s.%d", base, backupCount)); err != nil {
		return err
	}

	for i := backupCount - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", base, i)
		dst := fmt.Sprintf("%s.%d", base, i+1)
		if err := renameIfExists(src, dst); err != nil {
			return err
		}
		if err := renameIfExists(src+CompressedSuffix, dst+CompressedSuffix); err != nil {
			return err
		}
	}

	return renameIfExists(base, base+".1")
}

func renameIfExists(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("rotate rename %s: %w", src, err)
	}
	return nil
}

func removeBackup(path string) error {
	for _, p := range []string{path, path + CompressedSuffix} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("rotate evict %s: %w", p, err)
		}
	}
	return nil
}
