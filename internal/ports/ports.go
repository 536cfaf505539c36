package ports

import (
	"context"
	"time"

	"github.com/cf-vnkr/autoblog/internal/domain"
)

// FeedSource pulls fresh records from the upstream feed. maxItems <= 0 means
// no cap; truncation happens after the whole document is parsed.
type FeedSource interface {
	Fetch(ctx context.Context, maxItems int) ([]domain.FeedRecord, error)
}

// Ledger records which guids have been fully processed.
//
// IsProcessed is fail-open: a read failure reports "not processed" so a
// transient outage causes duplicate (idempotent) work instead of silent
// skips. MarkProcessed is fail-closed and returns write errors to the caller.
type Ledger interface {
	IsProcessed(ctx context.Context, guid string) bool
	BatchIsProcessed(ctx context.Context, guids []string) (map[string]bool, error)
	MarkProcessed(ctx context.Context, entry domain.LedgerEntry) error
	Count(ctx context.Context) (int, error)
	ListAll(ctx context.Context, limit int) ([]domain.LedgerEntry, error)
}

// SummarizeOptions tweaks a single summarization call.
type SummarizeOptions struct {
	IncludeDisclaimer bool
}

// Summarizer condenses a record's content into a short digest. It either
// succeeds or fails clearly after exhausting its internal retries; any
// fallback handling is the orchestrator's decision.
type Summarizer interface {
	Summarize(ctx context.Context, record domain.FeedRecord, opts SummarizeOptions) (string, error)
}

// Publisher writes artifacts to the content store. Publish reports failure
// via its return value rather than an error so the orchestrator can treat it
// as a per-item outcome.
type Publisher interface {
	Publish(ctx context.Context, artifact domain.PublishedArtifact) bool
	PublishMany(ctx context.Context, artifacts []domain.PublishedArtifact) int
	ArtifactPath(slug string) string
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
