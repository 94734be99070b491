package config

const (
	defaultRelayTimeoutSeconds = 5
	defaultWindowSeconds       = 4
	defaultMinSegmentBytes     = 50000
	defaultMaxInflight         = 4
	defaultHFBaseURL           = "https://api-inference.huggingface.co"
	defaultWhisperModel        = "openai/whisper-large-v3"
	defaultTranslationModel    = "Helsinki-NLP/opus-mt-en-es"
	defaultTargetLanguage      = "es"
	defaultHFTimeoutSeconds    = 60
	defaultServerBind          = "127.0.0.1:8787"
	defaultHistoryPath         = "~/.local/share/substr/history.db"
	defaultLogDir              = "~/.local/share/substr/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

func defaultRelayEndpoints() []string {
	return []string{
		"wss://relay.damus.io",
		"wss://relay.nostr.band",
		"wss://nos.lol",
		"wss://relay.snort.social",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Relays: Relays{
			Endpoints:      defaultRelayEndpoints(),
			TimeoutSeconds: defaultRelayTimeoutSeconds,
		},
		Capture: Capture{
			WindowSeconds:   defaultWindowSeconds,
			MinSegmentBytes: defaultMinSegmentBytes,
			MaxInflight:     defaultMaxInflight,
		},
		HuggingFace: HuggingFace{
			BaseURL:          defaultHFBaseURL,
			WhisperModel:     defaultWhisperModel,
			TranslationModel: defaultTranslationModel,
			TargetLanguage:   defaultTargetLanguage,
			TimeoutSeconds:   defaultHFTimeoutSeconds,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
	}
}
