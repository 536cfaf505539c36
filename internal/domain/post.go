package domain

import "time"

// FeedRecord is one entry extracted from the source feed. Records live for a
// single pipeline run and are never persisted in this form.
type FeedRecord struct {
	Title        string   `json:"title"`
	CanonicalURL string   `json:"url"`
	GUID         string   `json:"guid"`
	PublishedAt  string   `json:"publishedAt"`
	Excerpt      string   `json:"excerpt"`
	FullContent  string   `json:"-"`
	Tags         []string `json:"tags"`
	Contributors []string `json:"contributors"`
}

// Valid reports whether the record carries the fields every downstream stage
// depends on. Records failing this check are dropped at parse time.
func (r FeedRecord) Valid() bool {
	return r.Title != "" && r.CanonicalURL != "" && r.GUID != ""
}

// LedgerEntry is the durable marker that a guid has been fully processed.
// The JSON shape is the ledger's stored value.
type LedgerEntry struct {
	GUID        string    `json:"-"`
	Processed   bool      `json:"processed"`
	CompletedAt time.Time `json:"timestamp"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	SourceURL   string    `json:"url"`
}

// PublishedArtifact is the externally visible JSON document for one
// summarized record. Field order matches the persisted artifact format.
type PublishedArtifact struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"publishedAt"`
	Summary     string   `json:"summary"`
	Authors     []string `json:"authors"`
	Categories  []string `json:"categories"`
	GUID        string   `json:"guid"`
}

// RunReport is the terminal summary of one pipeline run.
type RunReport struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Fetched   int           `json:"fetched"`
	Skipped   int           `json:"skipped"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}
