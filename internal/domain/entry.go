package domain

import (
	"strings"
	"time"
)

// NewsEntry is one normalized news item pulled from an RSS feed.
// Entries are read-only inputs to the pipeline.
type NewsEntry struct {
	Source    string
	Title     string
	URL       string
	Summary   string
	Published time.Time // zero when the feed omitted a publish date
}

// Key returns the identity key used for deduplication and history
// lookups: normalized title + url.
func (e NewsEntry) Key() (string, string) {
	return strings.ToLower(strings.TrimSpace(e.Title)), strings.TrimSpace(e.URL)
}

// Text combines title and summary, the unit all safety and matching
// checks operate on.
func (e NewsEntry) Text() string {
	return strings.TrimSpace(e.Title + " " + e.Summary)
}
