package engine

import "sync"

// claimSet grants exclusive ownership of segment paths to background duties.
// The compression workers and the retention sweeper both claim a path before
// touching it, so a file is never deleted mid-compression and never
// processed twice. Paths are used instead of file locks for portability.
type claimSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newClaimSet() *claimSet {
	return &claimSet{paths: make(map[string]struct{})}
}

// tryClaim acquires path, reporting false if another duty holds it.
func (c *claimSet) tryClaim(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.paths[path]; held {
		return false
	}
	c.paths[path] = struct{}{}
	return true
}

func (c *claimSet) release(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.paths, path)
}
