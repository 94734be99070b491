package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Negr087/substr/internal/capture"
	"github.com/Negr087/substr/internal/captions"
	"github.com/Negr087/substr/internal/config"
	"github.com/Negr087/substr/internal/history"
	"github.com/Negr087/substr/internal/logging"
	"github.com/Negr087/substr/internal/nostr"
	"github.com/Negr087/substr/internal/services/huggingface"
	"github.com/Negr087/substr/internal/session"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	outputs := []string{"stderr"}
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" {
		outputs = append(outputs, filepath.Join(dir, "substr.log"))
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return logger, nil
}

func (c *commandContext) newResolver(cfg *config.Config, logger *slog.Logger) *nostr.Resolver {
	return nostr.NewResolver(
		cfg.Relays.Endpoints,
		time.Duration(cfg.Relays.TimeoutSeconds)*time.Second,
		logger,
	)
}

// sessionBundle carries a fully wired session plus the pieces individual
// commands need direct access to.
type sessionBundle struct {
	session     *session.Session
	transcriber captions.Transcriber
	store       *history.Store
}

func (b *sessionBundle) close() {
	_ = b.session.Close()
	if b.store != nil {
		_ = b.store.Close()
	}
}

// newSession wires resolver, capture, transcription, and (when enabled)
// history persistence into one session.
func (c *commandContext) newSession(cfg *config.Config, logger *slog.Logger) (*sessionBundle, error) {
	transcriber, err := huggingface.New(
		cfg.HuggingFace.APIKey,
		cfg.HuggingFace.BaseURL,
		cfg.HuggingFace.WhisperModel,
		cfg.HuggingFace.TranslationModel,
		logger,
		huggingface.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.HuggingFace.TimeoutSeconds) * time.Second,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("build transcription client: %w", err)
	}

	var store *history.Store
	var recorder session.Recorder
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		recorder = store
	}

	cache := captions.NewCache()
	pipeline := captions.NewPipeline(transcriber, cache, cfg.Capture.MaxInflight, logger)
	sampler := capture.NewSampler(
		capture.NewFFmpegTapFactory(cfg.FFmpegBinary()),
		time.Duration(cfg.Capture.WindowSeconds)*time.Second,
		cfg.Capture.MinSegmentBytes,
		pipeline.OnSegment,
		func(err error) {
			logger.Warn("capture stopped on error", logging.Error(err))
		},
		logger,
	)

	sess := session.New(c.newResolver(cfg, logger), sampler, pipeline, cache, recorder, logger)
	return &sessionBundle{session: sess, transcriber: transcriber, store: store}, nil
}
