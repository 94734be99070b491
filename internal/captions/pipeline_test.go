package captions_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Negr087/substr/internal/capture"
	"github.com/Negr087/substr/internal/captions"
	"github.com/Negr087/substr/internal/logging"
)

// scriptedTranscriber returns fixed units, optionally blocking until released.
type scriptedTranscriber struct {
	units   []captions.Unit
	err     error
	release chan struct{}
	calls   atomic.Int32
}

func (s *scriptedTranscriber) Transcribe(ctx context.Context, audio []byte) ([]captions.Unit, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	return s.units, s.err
}

func TestPipelineMapsUnitsToAbsoluteTime(t *testing.T) {
	t.Parallel()

	cache := captions.NewCache()
	transcriber := &scriptedTranscriber{units: []captions.Unit{
		{Offset: 1.5, Text: "hola"},
		{Offset: 2.5, Text: ""},
	}}
	pipeline := captions.NewPipeline(transcriber, cache, 2, logging.NewNop())

	pipeline.OnSegment(capture.Segment{MediaURL: "http://cdn/x.mp4", Start: 10.0, Data: []byte("a")})
	pipeline.Drain()

	timeline, ok := cache.Lookup("http://cdn/x.mp4")
	if !ok {
		t.Fatal("expected timeline for media url")
	}
	entries := timeline.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected empty-text unit discarded, got %d entries", len(entries))
	}
	if entries[0].Time != 11.5 || entries[0].Text != "hola" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestPipelineSwallowsTranscriberFailures(t *testing.T) {
	t.Parallel()

	cache := captions.NewCache()
	transcriber := &scriptedTranscriber{err: errors.New("503 model loading")}
	pipeline := captions.NewPipeline(transcriber, cache, 2, logging.NewNop())

	pipeline.OnSegment(capture.Segment{MediaURL: "http://cdn/x.mp4", Start: 0, Data: []byte("a")})
	pipeline.Drain()

	if _, ok := cache.Lookup("http://cdn/x.mp4"); ok {
		t.Fatal("failed segment must contribute nothing")
	}
}

func TestPipelineDropsStaleResultsAfterReset(t *testing.T) {
	t.Parallel()

	cache := captions.NewCache()
	transcriber := &scriptedTranscriber{
		units:   []captions.Unit{{Offset: 0.2, Text: "hello"}},
		release: make(chan struct{}),
	}
	pipeline := captions.NewPipeline(transcriber, cache, 2, logging.NewNop())

	// Segment for media A goes in flight, then the user starts a new search.
	pipeline.OnSegment(capture.Segment{MediaURL: "http://cdn/a.mp4", Start: 0, Data: []byte("a")})
	for transcriber.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	pipeline.Reset()
	close(transcriber.release)
	pipeline.Drain()

	if _, ok := cache.Lookup("http://cdn/a.mp4"); ok {
		t.Fatal("stale result from previous search must be discarded")
	}
}

func TestPipelineAppliesResultsAfterCaptureStops(t *testing.T) {
	t.Parallel()

	// Stopping capture is not a new search: in-flight results still land.
	cache := captions.NewCache()
	transcriber := &scriptedTranscriber{
		units:   []captions.Unit{{Offset: 0.5, Text: "late but welcome"}},
		release: make(chan struct{}),
	}
	pipeline := captions.NewPipeline(transcriber, cache, 2, logging.NewNop())

	pipeline.OnSegment(capture.Segment{MediaURL: "http://cdn/a.mp4", Start: 20, Data: []byte("a")})
	// No Reset here; the session merely paused.
	close(transcriber.release)
	pipeline.Drain()

	timeline, ok := cache.Lookup("http://cdn/a.mp4")
	if !ok || timeline.Len() != 1 {
		t.Fatal("expected in-flight result to apply after pause")
	}
}

func TestPipelineBoundsInflightRequests(t *testing.T) {
	t.Parallel()

	cache := captions.NewCache()
	release := make(chan struct{})
	var concurrent, peak atomic.Int32
	transcriber := &gaugeTranscriber{concurrent: &concurrent, peak: &peak, release: release}
	pipeline := captions.NewPipeline(transcriber, cache, 2, logging.NewNop())

	for i := 0; i < 6; i++ {
		pipeline.OnSegment(capture.Segment{MediaURL: "http://cdn/a.mp4", Start: float64(i * 4), Data: []byte("a")})
	}
	close(release)
	pipeline.Drain()

	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent transcriptions, saw %d", peak.Load())
	}
	if timeline, ok := cache.Lookup("http://cdn/a.mp4"); !ok || timeline.Len() != 6 {
		t.Fatal("expected all six segments to land")
	}
}

type gaugeTranscriber struct {
	concurrent *atomic.Int32
	peak       *atomic.Int32
	release    chan struct{}
	mu         sync.Mutex
}

func (g *gaugeTranscriber) Transcribe(ctx context.Context, audio []byte) ([]captions.Unit, error) {
	now := g.concurrent.Add(1)
	defer g.concurrent.Add(-1)
	g.mu.Lock()
	if now > g.peak.Load() {
		g.peak.Store(now)
	}
	g.mu.Unlock()
	<-g.release
	return []captions.Unit{{Offset: 0, Text: "x"}}, nil
}
