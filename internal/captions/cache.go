package captions

import "sync"

// Cache maps media URLs to their timelines for the lifetime of one search.
// Timelines only grow while their URL stays cached; starting a new search
// discards everything. Only the pipeline mutates timelines through it.
type Cache struct {
	mu        sync.RWMutex
	timelines map[string]*Timeline
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{timelines: make(map[string]*Timeline)}
}

// Timeline returns the timeline for the given media URL, creating it when
// absent.
func (c *Cache) Timeline(mediaURL string) *Timeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	timeline, ok := c.timelines[mediaURL]
	if !ok {
		timeline = NewTimeline()
		c.timelines[mediaURL] = timeline
	}
	return timeline
}

// Lookup returns the timeline for the given media URL without creating one.
func (c *Cache) Lookup(mediaURL string) (*Timeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	timeline, ok := c.timelines[mediaURL]
	return timeline, ok
}

// Clear discards every cached timeline.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timelines = make(map[string]*Timeline)
}

// Len returns the number of cached timelines.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.timelines)
}
