package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Negr087/substr/internal/logging"
	"github.com/Negr087/substr/internal/services"
)

// Segment is one bounded audio capture window, tagged with the playback
// position at which the window began. Each segment is consumed exactly once.
type Segment struct {
	MediaURL string
	Start    float64
	Data     []byte
}

// PlaybackHandle reports the live state of the media element being sampled.
type PlaybackHandle interface {
	Position() float64
	Playing() bool
}

// Tap delivers the audio bytes for one capture window of the tapped source.
type Tap interface {
	ReadWindow(ctx context.Context, start float64, window time.Duration) ([]byte, error)
	Close() error
}

// TapFactory creates the audio tap for a media URL. The sampler calls it at
// most once per URL; the resulting tap is reused across start/stop cycles
// because recreating taps each cycle exhausts audio resources.
type TapFactory func(mediaURL string) (Tap, error)

// Sampler drives the Idle -> Capturing -> Idle recording session.
type Sampler struct {
	factory  TapFactory
	window   time.Duration
	minBytes int
	emit     func(Segment)
	onError  func(error)
	logger   *slog.Logger

	mu      sync.Mutex
	tap     Tap
	tapURL  string
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewSampler constructs a sampler. emit receives completed segments; onError
// receives capture failures (which end the session but never playback) and
// may be nil.
func NewSampler(factory TapFactory, window time.Duration, minBytes int, emit func(Segment), onError func(error), logger *slog.Logger) *Sampler {
	if window <= 0 {
		window = 4 * time.Second
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &Sampler{
		factory:  factory,
		window:   window,
		minBytes: minBytes,
		emit:     emit,
		onError:  onError,
		logger:   logging.NewComponentLogger(logger, "sampler"),
	}
}

// Start begins capturing from the media URL. It is idempotent: calling it
// while a session is already running is a no-op.
func (s *Sampler) Start(mediaURL string, handle PlaybackHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if s.tap != nil && s.tapURL != mediaURL {
		_ = s.tap.Close()
		s.tap = nil
	}
	if s.tap == nil {
		tap, err := s.factory(mediaURL)
		if err != nil {
			return services.Wrap(services.ErrCapture, "sampler", "start", "create audio tap", err)
		}
		s.tap = tap
		s.tapURL = mediaURL
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	go s.run(ctx, s.tap, mediaURL, handle)

	s.logger.Debug("capture started", logging.String(logging.FieldMediaURL, mediaURL))
	return nil
}

// Stop ends the current session. Segments already handed to emit are
// unaffected; the tap stays open for the next Start.
func (s *Sampler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Close stops the session and releases the tap.
func (s *Sampler) Close() error {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tap == nil {
		return nil
	}
	err := s.tap.Close()
	s.tap = nil
	s.tapURL = ""
	return err
}

// Running reports whether a capture session is active.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run cycles capture windows until playback stops, the context is cancelled,
// or the tap fails. Windows are paced to playback: a new window begins only
// once the playhead has moved past the end of the previous one.
func (s *Sampler) run(ctx context.Context, tap Tap, mediaURL string, handle PlaybackHandle) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		if !handle.Playing() {
			s.logger.Debug("playback stopped, capture going idle",
				logging.String(logging.FieldMediaURL, mediaURL))
			return
		}

		start := handle.Position()
		data, err := tap.ReadWindow(ctx, start, s.window)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.onError(services.Wrap(services.ErrCapture, "sampler", "window", "read audio window", err))
			return
		}
		if len(data) < s.minBytes {
			s.logger.Debug("window below silence threshold, dropped",
				logging.Int("bytes", len(data)),
				logging.Float64("start", start),
			)
		} else {
			s.emit(Segment{MediaURL: mediaURL, Start: start, Data: data})
		}
		s.waitForPlayback(ctx, handle, start+s.window.Seconds())
	}
}

// waitForPlayback blocks until the playhead reaches target seconds, playback
// pauses, or the context is cancelled. The tap extracts a window far faster
// than real time; starting the next window before playback has covered the
// previous one would capture and transcribe the same audio repeatedly.
func (s *Sampler) waitForPlayback(ctx context.Context, handle PlaybackHandle, target float64) {
	poll := s.window / 8
	if poll > 100*time.Millisecond {
		poll = 100 * time.Millisecond
	}
	if poll < time.Millisecond {
		poll = time.Millisecond
	}
	for handle.Position() < target && handle.Playing() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(poll):
		}
	}
}
