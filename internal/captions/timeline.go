package captions

import (
	"math"
	"strings"
	"sync"
)

// DisplayWindowSeconds is how long a caption stays active once its timestamp
// has passed.
const DisplayWindowSeconds = 3.0

// dedupeBucketSeconds is the absolute-time granularity used to collapse
// duplicate captions produced by re-capturing an already covered region.
const dedupeBucketSeconds = 0.1

// Unit is one caption produced for a segment, timed relative to the segment's
// start.
type Unit struct {
	Offset float64 `json:"start"`
	Text   string  `json:"text"`
}

// Entry is a caption anchored to absolute playback time.
type Entry struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

// Timeline is the append-only collection of entries for one media URL. It is
// safe for concurrent use; entries arrive in transcription-completion order,
// which is not necessarily playback order.
type Timeline struct {
	mu      sync.RWMutex
	entries []Entry
	buckets map[int64]int
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{buckets: make(map[int64]int)}
}

// Append adds entries produced for a segment. Entries whose text trims to
// empty are discarded. When two entries land in the same tenth-of-a-second
// bucket the newest one replaces the older, so re-capturing a region after a
// backward seek does not stack conflicting captions.
func (t *Timeline) Append(entries []Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, entry := range entries {
		entry.Text = strings.TrimSpace(entry.Text)
		if entry.Text == "" {
			continue
		}
		bucket := int64(math.Round(entry.Time / dedupeBucketSeconds))
		if index, ok := t.buckets[bucket]; ok {
			t.entries[index] = entry
			continue
		}
		t.buckets[bucket] = len(t.entries)
		t.entries = append(t.entries, entry)
	}
}

// Entries returns a snapshot of the timeline in arrival order.
func (t *Timeline) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// ActiveAt returns the caption to display at the given playback position, or
// "" when none applies. An entry is active while
// entry.Time <= position < entry.Time+DisplayWindowSeconds; among overlapping
// entries the one with the greatest time wins, so a fresh caption always
// replaces a stale one regardless of arrival order. Callers re-evaluate on
// every position change, including backward seeks.
func (t *Timeline) ActiveAt(position float64) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	best := -1
	for i, entry := range t.entries {
		if entry.Time > position || position >= entry.Time+DisplayWindowSeconds {
			continue
		}
		if best < 0 || entry.Time > t.entries[best].Time {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return t.entries[best].Text
}

// HasNearby reports whether any entry lies within radius seconds of the given
// position. Playback resume uses this to decide whether a region is already
// covered.
func (t *Timeline) HasNearby(position, radius float64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, entry := range t.entries {
		if entry.Time >= position-radius && entry.Time <= position+radius {
			return true
		}
	}
	return false
}
