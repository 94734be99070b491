// Package huggingface adapts the Hugging Face inference API into substr's
// transcription boundary: whisper for speech-to-text, an opus-mt model for
// translation. Translation is best effort; when it fails, the original
// language text passes through so a degraded translator never costs captions.
package huggingface
