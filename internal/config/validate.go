package config

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

func (c *Config) normalize() error {
	endpoints := make([]string, 0, len(c.Relays.Endpoints))
	seen := map[string]struct{}{}
	for _, endpoint := range c.Relays.Endpoints {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		endpoints = append(endpoints, trimmed)
	}
	c.Relays.Endpoints = endpoints

	if c.Relays.TimeoutSeconds <= 0 {
		c.Relays.TimeoutSeconds = defaultRelayTimeoutSeconds
	}
	if c.Capture.WindowSeconds <= 0 {
		c.Capture.WindowSeconds = defaultWindowSeconds
	}
	if c.Capture.MinSegmentBytes < 0 {
		c.Capture.MinSegmentBytes = defaultMinSegmentBytes
	}
	if c.Capture.MaxInflight <= 0 {
		c.Capture.MaxInflight = defaultMaxInflight
	}
	if c.HuggingFace.TimeoutSeconds <= 0 {
		c.HuggingFace.TimeoutSeconds = defaultHFTimeoutSeconds
	}
	c.HuggingFace.BaseURL = strings.TrimRight(strings.TrimSpace(c.HuggingFace.BaseURL), "/")
	if c.HuggingFace.BaseURL == "" {
		c.HuggingFace.BaseURL = defaultHFBaseURL
	}
	c.HuggingFace.TargetLanguage = strings.TrimSpace(c.HuggingFace.TargetLanguage)
	if c.HuggingFace.TargetLanguage == "" {
		c.HuggingFace.TargetLanguage = defaultTargetLanguage
	}

	for _, field := range []*string{&c.History.Path, &c.Logging.Dir} {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	if len(c.Relays.Endpoints) == 0 {
		return fmt.Errorf("relays: at least one endpoint is required")
	}
	for _, endpoint := range c.Relays.Endpoints {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return fmt.Errorf("relays: invalid endpoint %q: %w", endpoint, err)
		}
		if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
			return fmt.Errorf("relays: endpoint %q must use ws:// or wss://", endpoint)
		}
		if parsed.Host == "" {
			return fmt.Errorf("relays: endpoint %q has no host", endpoint)
		}
	}
	if _, err := language.Parse(c.HuggingFace.TargetLanguage); err != nil {
		return fmt.Errorf("huggingface: invalid target_language %q: %w", c.HuggingFace.TargetLanguage, err)
	}
	if strings.TrimSpace(c.Server.Bind) == "" {
		return fmt.Errorf("server: bind address is required")
	}
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format != "" && format != "console" && format != "json" {
		return fmt.Errorf("logging: unsupported format %q", c.Logging.Format)
	}
	return nil
}

// TargetLanguageName returns a human-readable name for the configured
// translation target, falling back to the raw tag when unknown.
func (c *Config) TargetLanguageName() string {
	tag, err := language.Parse(c.HuggingFace.TargetLanguage)
	if err != nil {
		return c.HuggingFace.TargetLanguage
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return c.HuggingFace.TargetLanguage
}
