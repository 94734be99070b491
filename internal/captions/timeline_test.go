package captions_test

import (
	"testing"

	"github.com/Negr087/substr/internal/captions"
)

func TestTimelineActiveAtPrefersMostRecent(t *testing.T) {
	t.Parallel()

	timeline := captions.NewTimeline()
	timeline.Append([]captions.Entry{
		{Time: 5.0, Text: "first"},
		{Time: 7.0, Text: "second"},
	})

	if got := timeline.ActiveAt(7.5); got != "second" {
		t.Fatalf("at 7.5 expected overlapping recency winner %q, got %q", "second", got)
	}
	if got := timeline.ActiveAt(5.5); got != "first" {
		t.Fatalf("at 5.5 expected %q, got %q", "first", got)
	}
	if got := timeline.ActiveAt(11.0); got != "" {
		t.Fatalf("at 11.0 expected no caption, got %q", got)
	}
	if got := timeline.ActiveAt(4.9); got != "" {
		t.Fatalf("before first entry expected no caption, got %q", got)
	}
}

func TestTimelineActiveAtIgnoresArrivalOrder(t *testing.T) {
	t.Parallel()

	// A later segment's transcription can finish first; recency must follow
	// absolute time, not append order.
	timeline := captions.NewTimeline()
	timeline.Append([]captions.Entry{{Time: 8.0, Text: "late segment"}})
	timeline.Append([]captions.Entry{{Time: 6.5, Text: "early segment"}})

	if got := timeline.ActiveAt(8.2); got != "late segment" {
		t.Fatalf("expected absolute-time winner, got %q", got)
	}
}

func TestTimelineAppendDiscardsBlankText(t *testing.T) {
	t.Parallel()

	timeline := captions.NewTimeline()
	timeline.Append([]captions.Entry{
		{Time: 1.0, Text: "  "},
		{Time: 2.0, Text: "\n"},
		{Time: 3.0, Text: " kept "},
	})
	if timeline.Len() != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", timeline.Len())
	}
	if got := timeline.ActiveAt(3.0); got != "kept" {
		t.Fatalf("expected trimmed text, got %q", got)
	}
}

func TestTimelineAppendDeduplicatesSameBucket(t *testing.T) {
	t.Parallel()

	timeline := captions.NewTimeline()
	timeline.Append([]captions.Entry{{Time: 12.0, Text: "old take"}})
	// Re-capturing after a backward seek produces a near-identical timestamp.
	timeline.Append([]captions.Entry{{Time: 12.02, Text: "new take"}})

	if timeline.Len() != 1 {
		t.Fatalf("expected bucket dedupe to keep one entry, got %d", timeline.Len())
	}
	if got := timeline.ActiveAt(12.1); got != "new take" {
		t.Fatalf("expected newest entry to win the bucket, got %q", got)
	}
}

func TestTimelineHasNearby(t *testing.T) {
	t.Parallel()

	timeline := captions.NewTimeline()
	timeline.Append([]captions.Entry{{Time: 30.0, Text: "mid"}})

	if !timeline.HasNearby(35.0, 10) {
		t.Fatal("expected entry within radius")
	}
	if !timeline.HasNearby(25.0, 10) {
		t.Fatal("expected entry within radius looking forward")
	}
	if timeline.HasNearby(50.0, 10) {
		t.Fatal("expected no entry near 50.0")
	}
}

func TestTimelineEntriesReturnsSnapshot(t *testing.T) {
	t.Parallel()

	timeline := captions.NewTimeline()
	timeline.Append([]captions.Entry{{Time: 1.0, Text: "a"}})
	snapshot := timeline.Entries()
	timeline.Append([]captions.Entry{{Time: 2.0, Text: "b"}})
	if len(snapshot) != 1 {
		t.Fatalf("snapshot must not grow with the timeline, got %d entries", len(snapshot))
	}
}
