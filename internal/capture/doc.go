// Package capture owns the recording session against a playing media source.
//
// A Sampler taps the source's audio exactly once, slices it into fixed
// duration windows while playback advances, and hands each completed window
// to a delivery callback. Windows below a minimum byte size are treated as
// silence and dropped before they cost a transcription call.
package capture
