package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/Negr087/substr/internal/capture"
	"github.com/Negr087/substr/internal/captions"
	"github.com/Negr087/substr/internal/history"
	"github.com/Negr087/substr/internal/logging"
	"github.com/Negr087/substr/internal/media"
	"github.com/Negr087/substr/internal/nostr"
	"github.com/Negr087/substr/internal/services"
)

// resumeRadiusSeconds is how far around a resume position cached captions
// count as already covering playback.
const resumeRadiusSeconds = 10.0

// EventResolver retrieves one event by hex id and reports the serving relay.
type EventResolver interface {
	Resolve(ctx context.Context, id string) (*nostr.Event, string, error)
}

// Recorder persists resolved searches. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (history.Entry, error)
}

// Result describes a successful search.
type Result struct {
	Identifier string `json:"identifier"`
	EventID    string `json:"event_id"`
	EventKind  int    `json:"event_kind"`
	MediaURL   string `json:"media_url"`
	Relay      string `json:"relay"`
}

// Session owns one viewer's state: the resolved media, its caption cache,
// and the capture pipeline feeding it. All methods are safe for concurrent
// use.
type Session struct {
	resolver EventResolver
	sampler  *capture.Sampler
	pipeline *captions.Pipeline
	cache    *captions.Cache
	recorder Recorder
	logger   *slog.Logger

	mu      sync.Mutex
	current Result
}

// New assembles a session. The sampler must already emit into the pipeline;
// recorder may be nil to disable history.
func New(resolver EventResolver, sampler *capture.Sampler, pipeline *captions.Pipeline, cache *captions.Cache, recorder Recorder, logger *slog.Logger) *Session {
	return &Session{
		resolver: resolver,
		sampler:  sampler,
		pipeline: pipeline,
		cache:    cache,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "session"),
	}
}

// Search resolves an identifier to playable media and makes it the current
// media. Any previous search's capture stops and its cached captions are
// dropped; transcriptions still in flight from it can no longer apply.
func (s *Session) Search(ctx context.Context, identifier string) (Result, error) {
	identifier = strings.TrimSpace(identifier)

	s.sampler.Stop()
	s.pipeline.Reset()
	s.mu.Lock()
	s.current = Result{}
	s.mu.Unlock()

	id, err := nostr.DecodeIdentifier(identifier)
	if err != nil {
		return Result{}, err
	}

	event, relay, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}

	mediaURL, ok := media.Locate(event)
	if !ok {
		return Result{}, services.Wrap(services.ErrNoMedia, "session", "search",
			"event "+id+" carries no playable media", nil)
	}

	result := Result{
		Identifier: identifier,
		EventID:    event.ID,
		EventKind:  event.Kind,
		MediaURL:   mediaURL,
		Relay:      relay,
	}
	s.mu.Lock()
	s.current = result
	s.mu.Unlock()

	if s.recorder != nil {
		if _, recErr := s.recorder.Record(ctx, history.Entry{
			Identifier: identifier,
			EventID:    event.ID,
			EventKind:  event.Kind,
			MediaURL:   mediaURL,
			Relay:      relay,
		}); recErr != nil {
			s.logger.Warn("history record failed", logging.Error(recErr))
		}
	}

	s.logger.Info("search resolved",
		logging.String(logging.FieldEventID, event.ID),
		logging.String(logging.FieldMediaURL, mediaURL),
	)
	return result, nil
}

// Play starts (or resumes) capture for the current media. The returned flag
// reports whether cached captions already cover the resume position, so
// callers can surface subtitles immediately instead of waiting for the first
// window to come back.
func (s *Session) Play(handle capture.PlaybackHandle) (bool, error) {
	mediaURL := s.MediaURL()
	if mediaURL == "" {
		return false, services.Wrap(services.ErrNoMedia, "session", "play",
			"no media resolved yet", nil)
	}

	covered := false
	if timeline, ok := s.cache.Lookup(mediaURL); ok {
		covered = timeline.HasNearby(handle.Position(), resumeRadiusSeconds)
	}
	if err := s.sampler.Start(mediaURL, handle); err != nil {
		return covered, err
	}
	return covered, nil
}

// Pause stops capture. Transcriptions already in flight still land in the
// cache, so resuming picks up where playback left off.
func (s *Session) Pause() {
	s.sampler.Stop()
}

// Seek reports whether cached captions cover the new position. Capture needs
// no restart: the sampler reads playback position at every window boundary.
func (s *Session) Seek(position float64) bool {
	timeline, ok := s.cache.Lookup(s.MediaURL())
	if !ok {
		return false
	}
	return timeline.HasNearby(position, resumeRadiusSeconds)
}

// ActiveCaption returns the caption text to display at a playback position.
func (s *Session) ActiveCaption(position float64) (string, bool) {
	timeline, ok := s.cache.Lookup(s.MediaURL())
	if !ok {
		return "", false
	}
	text := timeline.ActiveAt(position)
	if text == "" {
		return "", false
	}
	return text, true
}

// Captions returns a snapshot of every caption collected for the current
// media, in insertion order.
func (s *Session) Captions() []captions.Entry {
	timeline, ok := s.cache.Lookup(s.MediaURL())
	if !ok {
		return nil
	}
	return timeline.Entries()
}

// Current returns the active search result, zero when nothing is resolved.
func (s *Session) Current() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// MediaURL returns the current media URL, empty when nothing is resolved.
func (s *Session) MediaURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.MediaURL
}

// Capturing reports whether the sampler is currently running.
func (s *Session) Capturing() bool {
	return s.sampler.Running()
}

// Reset stops capture and forgets the current media and all cached captions.
func (s *Session) Reset() {
	s.sampler.Stop()
	s.pipeline.Reset()
	s.mu.Lock()
	s.current = Result{}
	s.mu.Unlock()
}

// Close releases the capture tap and waits for in-flight transcriptions.
func (s *Session) Close() error {
	err := s.sampler.Close()
	s.pipeline.Drain()
	return err
}
