package docproc

import "sync"

// resultCache memoizes normalization results by content hash so re-uploading
// an identical document is a cache hit with no re-processing.
type resultCache struct {
	entries map[string]*NormalizedDocument
	mu      sync.RWMutex
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[string]*NormalizedDocument)}
}

func (c *resultCache) get(hash string) *NormalizedDocument {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.entries[hash]
	if !ok {
		return nil
	}
	clone := *doc
	clone.FromCache = true
	return &clone
}

func (c *resultCache) put(hash string, doc *NormalizedDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := *doc
	c.entries[hash] = &clone
}
