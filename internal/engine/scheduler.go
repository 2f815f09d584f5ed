package engine

import (
	"context"
	"time"
)

// scheduler drives the periodic duties: time-rotation checks, the
// compression sweep and the retention sweep. Each duty is a plain function
// so tests invoke them directly instead of waiting on timers.
type scheduler struct {
	rotationEvery  time.Duration
	compressEvery  time.Duration
	retentionEvery time.Duration

	onRotation  func()
	onCompress  func()
	onRetention func()
}

// Run blocks until ctx is cancelled. A duty with a nil callback or a
// non-positive interval is skipped.
func (s *scheduler) Run(ctx context.Context) {
	tick := func(every time.Duration) <-chan time.Time {
		if every <= 0 {
			return nil
		}
		t := time.NewTicker(every)
		go func() {
			<-ctx.Done()
			t.Stop()
		}()
		return t.C
	}

	rotationC := tick(s.rotationEvery)
	compressC := tick(s.compressEvery)
	retentionC := tick(s.retentionEvery)

	for {
		select {
		case <-ctx.Done():
			return
		case <-rotationC:
			if s.onRotation != nil {
				s.onRotation()
			}
		case <-compressC:
			if s.onCompress != nil {
				s.onCompress()
			}
		case <-retentionC:
			if s.onRetention != nil {
				s.onRetention()
			}
		}
	}
}
