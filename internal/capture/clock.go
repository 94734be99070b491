package capture

import (
	"sync"
	"time"
)

// ClockHandle is a PlaybackHandle driven by wall-clock time, for consumers
// without a real player: position advances in real time from a starting
// offset until Halt is called.
type ClockHandle struct {
	mu      sync.Mutex
	offset  float64
	started time.Time
	halted  bool
}

var _ PlaybackHandle = (*ClockHandle)(nil)

// NewClockHandle starts the clock at the given playback offset in seconds.
func NewClockHandle(offset float64) *ClockHandle {
	return &ClockHandle{offset: offset, started: time.Now()}
}

// Position returns the simulated playback position.
func (h *ClockHandle) Position() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.halted {
		return h.offset
	}
	return h.offset + time.Since(h.started).Seconds()
}

// Playing reports whether the clock is still running.
func (h *ClockHandle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.halted
}

// Halt freezes the handle; Playing reports false from then on.
func (h *ClockHandle) Halt() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.halted {
		h.offset += time.Since(h.started).Seconds()
		h.halted = true
	}
}
