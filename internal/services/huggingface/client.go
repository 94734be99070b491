package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Negr087/substr/internal/captions"
	"github.com/Negr087/substr/internal/logging"
	"github.com/Negr087/substr/internal/services"
)

const audioContentType = "audio/ogg"

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client calls the Hugging Face inference API.
type Client struct {
	apiKey           string
	baseURL          string
	whisperModel     string
	translationModel string
	httpClient       HTTPDoer
	logger           *slog.Logger
}

var _ captions.Transcriber = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Hugging Face client. An empty translation model disables
// translation entirely (captions stay in the source language).
func New(apiKey, baseURL, whisperModel, translationModel string, logger *slog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("huggingface base url required")
	}
	whisperModel = strings.TrimSpace(whisperModel)
	if whisperModel == "" {
		return nil, errors.New("huggingface whisper model required")
	}
	client := &Client{
		apiKey:           strings.TrimSpace(apiKey),
		baseURL:          baseURL,
		whisperModel:     whisperModel,
		translationModel: strings.TrimSpace(translationModel),
		httpClient:       &http.Client{Timeout: 60 * time.Second},
		logger:           logging.NewComponentLogger(logger, "huggingface"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// whisperResponse models the inference API's automatic-speech-recognition
// payload. chunks carry word/phrase timestamps relative to the audio start.
type whisperResponse struct {
	Text   string `json:"text"`
	Chunks []struct {
		Timestamp []float64 `json:"timestamp"`
		Text      string    `json:"text"`
	} `json:"chunks"`
}

// Transcribe sends one audio segment through whisper and translates each
// returned chunk. The result is ordered by chunk offset. Any transcription
// failure returns ErrService; translation failures fall back to the
// untranslated chunk text.
func (c *Client) Transcribe(ctx context.Context, audio []byte) ([]captions.Unit, error) {
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrService, "huggingface", "transcribe", "empty audio segment", nil)
	}

	body, err := c.post(ctx, c.modelURL(c.whisperModel), audioContentType, audio)
	if err != nil {
		return nil, err
	}

	var parsed whisperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, services.Wrap(services.ErrService, "huggingface", "transcribe", "decode whisper response", err)
	}

	// Some models omit chunk timestamps; treat the whole text as one chunk
	// anchored at the segment start.
	if len(parsed.Chunks) == 0 {
		if strings.TrimSpace(parsed.Text) == "" {
			return nil, nil
		}
		return []captions.Unit{{Offset: 0, Text: c.translate(ctx, parsed.Text)}}, nil
	}

	units := make([]captions.Unit, 0, len(parsed.Chunks))
	for _, chunk := range parsed.Chunks {
		text := strings.TrimSpace(chunk.Text)
		if text == "" {
			continue
		}
		var offset float64
		if len(chunk.Timestamp) > 0 {
			offset = chunk.Timestamp[0]
		}
		units = append(units, captions.Unit{Offset: offset, Text: c.translate(ctx, text)})
	}
	return units, nil
}

// translationResponse models the opus-mt payload, a one-element array.
type translationResponse []struct {
	TranslationText string `json:"translation_text"`
}

// translate returns the translated text, or the input unchanged when
// translation is disabled or fails.
func (c *Client) translate(ctx context.Context, text string) string {
	if c.translationModel == "" {
		return text
	}
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return text
	}
	body, err := c.post(ctx, c.modelURL(c.translationModel), "application/json", payload)
	if err != nil {
		c.logger.Debug("translation unavailable, keeping source text", logging.Error(err))
		return text
	}
	var parsed translationResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed) == 0 {
		return text
	}
	if translated := strings.TrimSpace(parsed[0].TranslationText); translated != "" {
		return translated
	}
	return text
}

func (c *Client) modelURL(model string) string {
	return fmt.Sprintf("%s/models/%s", c.baseURL, model)
}

func (c *Client) post(ctx context.Context, url, contentType string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrService, "huggingface", "request", "build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrService, "huggingface", "request", "send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrService, "huggingface", "request", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(body))
		if len(detail) > 256 {
			detail = detail[:256]
		}
		return nil, services.Wrap(services.ErrService, "huggingface", "request",
			fmt.Sprintf("status %d: %s", resp.StatusCode, detail), nil)
	}
	return body, nil
}
