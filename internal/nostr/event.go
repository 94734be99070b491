package nostr

// Event kinds substr cares about.
const (
	// KindTextNote is a plain text post (NIP-01).
	KindTextNote = 1
	// KindFileMetadata is a file metadata record (NIP-94).
	KindFileMetadata = 1063
)

// Event is the resolved relay payload. Only the fields the video pipeline
// reads are modeled; everything else on the wire is ignored.
type Event struct {
	ID      string     `json:"id"`
	Kind    int        `json:"kind"`
	Content string     `json:"content"`
	Tags    [][]string `json:"tags"`
}

// TagValue returns the value of the first tag with the given name, or "" when
// the event carries no such tag.
func (e *Event) TagValue(name string) string {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}
