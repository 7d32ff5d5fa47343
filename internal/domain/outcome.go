package domain

import "time"

// PostStatus is the closed set of outcome states recorded for every
// decision the pipeline makes.
type PostStatus string

const (
	StatusScheduled PostStatus = "scheduled"
	StatusPosted    PostStatus = "posted"
	StatusFailed    PostStatus = "failed"
	StatusSkipped   PostStatus = "skipped"
)

// ArticleCheck records that an article was evaluated for a brand, so
// later runs skip it. Unique per (brand, title, url).
type ArticleCheck struct {
	BrandName string
	Title     string
	URL       string
	Status    PostStatus
	Reason    string
	CheckedAt time.Time
}

// PostRecord is one row in the append-only post log, written for
// every scheduling attempt, successful or not.
type PostRecord struct {
	RunID         string
	BrandName     string
	ProductName   string
	ArticleTitle  string
	ArticleURL    string
	ImageURL      string
	Caption       string
	ScheduledTime time.Time
	PostedTime    time.Time
	Status        PostStatus
	Reason        string
}

// PostRequest carries everything the post-scheduling API needs.
type PostRequest struct {
	Caption     string
	ImageURL    string
	ScheduledAt time.Time
	Platforms   string
	Workspaces  string
}
