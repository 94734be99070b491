package captions

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Negr087/substr/internal/capture"
	"github.com/Negr087/substr/internal/logging"
)

// Transcriber is the external speech-and-translation boundary. Failures are
// tolerated by the pipeline; a failed segment simply contributes no captions.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) ([]Unit, error)
}

// Pipeline turns captured segments into timeline entries.
//
// Dispatch is fire-and-forget: capturing the next window never waits on the
// previous window's transcription. In-flight requests are bounded by a
// semaphore so long sessions cannot pile up unbounded external calls.
// Stopping capture does not cancel requests already in flight; their results
// still land unless the search generation has moved on, in which case they
// are dropped as stale.
type Pipeline struct {
	transcriber Transcriber
	cache       *Cache
	logger      *slog.Logger
	slots       chan struct{}

	mu         sync.Mutex
	generation uint64
	wg         sync.WaitGroup
}

// NewPipeline constructs a pipeline writing into cache. maxInflight bounds
// concurrent transcription calls; values below one fall back to one.
func NewPipeline(transcriber Transcriber, cache *Cache, maxInflight int, logger *slog.Logger) *Pipeline {
	if maxInflight < 1 {
		maxInflight = 1
	}
	return &Pipeline{
		transcriber: transcriber,
		cache:       cache,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		slots:       make(chan struct{}, maxInflight),
	}
}

// OnSegment dispatches a segment for transcription without blocking the
// caller beyond semaphore acquisition bookkeeping.
func (p *Pipeline) OnSegment(segment capture.Segment) {
	p.mu.Lock()
	generation := p.generation
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		p.slots <- struct{}{}
		defer func() { <-p.slots }()

		units, err := p.transcriber.Transcribe(context.Background(), segment.Data)
		if err != nil {
			// Captions are best effort: a failed window is silently missing.
			p.logger.Debug("transcription failed, window skipped",
				logging.String(logging.FieldMediaURL, segment.MediaURL),
				logging.Float64("start", segment.Start),
				logging.Error(err),
			)
			return
		}
		p.apply(generation, segment, units)
	}()
}

// apply maps units to absolute-time entries and appends them, unless the
// search generation changed while the request was in flight.
func (p *Pipeline) apply(generation uint64, segment capture.Segment, units []Unit) {
	entries := make([]Entry, 0, len(units))
	for _, unit := range units {
		entries = append(entries, Entry{
			Time: segment.Start + unit.Offset,
			Text: unit.Text,
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if generation != p.generation {
		p.logger.Debug("stale transcription result dropped",
			logging.String(logging.FieldMediaURL, segment.MediaURL),
			logging.Float64("start", segment.Start),
		)
		return
	}
	p.cache.Timeline(segment.MediaURL).Append(entries)
}

// Reset discards all cached timelines and invalidates in-flight results.
// Called when a new top-level search starts.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.generation++
	p.mu.Unlock()
	p.cache.Clear()
}

// Drain blocks until every dispatched segment has settled. Intended for
// shutdown and tests.
func (p *Pipeline) Drain() {
	p.wg.Wait()
}
