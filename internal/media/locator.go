// Package media extracts playable video URLs from resolved Nostr events.
package media

import (
	"regexp"

	"github.com/Negr087/substr/internal/nostr"
)

var (
	directFilePattern    = regexp.MustCompile(`(?i)https?://[^\s]+\.(?:mp4|webm|ogg|mov)`)
	hostingDomainPattern = regexp.MustCompile(`(?i)https?://(?:www\.)?(?:youtube\.com|youtu\.be|vimeo\.com)[^\s]+`)
)

// Locate derives a playable media URL from an event. It is a pure function
// with no failure mode beyond the boolean: file-metadata events yield their
// url tag, text notes are scanned first for direct media files and then for
// known hosting domains. The first match wins in both scans.
func Locate(event *nostr.Event) (string, bool) {
	if event == nil {
		return "", false
	}
	if event.Kind == nostr.KindFileMetadata {
		if url := event.TagValue("url"); url != "" {
			return url, true
		}
		return "", false
	}
	if event.Kind != nostr.KindTextNote {
		return "", false
	}
	if match := directFilePattern.FindString(event.Content); match != "" {
		return match, true
	}
	if match := hostingDomainPattern.FindString(event.Content); match != "" {
		return match, true
	}
	return "", false
}
