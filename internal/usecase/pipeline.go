package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cf-vnkr/autoblog/internal/domain"
	"github.com/cf-vnkr/autoblog/internal/ports"
	"github.com/cf-vnkr/autoblog/internal/textutil"
)

// PipelineDeps wires the driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Source     ports.FeedSource
	Ledger     ports.Ledger
	Summarizer ports.Summarizer
	Publisher  ports.Publisher
	MaxItems   int
	Logger     *slog.Logger
}

// Pipeline implements the per-run ingestion workflow: fetch, filter
// already-done records, then per item summarize, publish, and mark done.
// Items are processed strictly sequentially in feed order.
type Pipeline struct {
	source     ports.FeedSource
	ledger     ports.Ledger
	summarizer ports.Summarizer
	publisher  ports.Publisher
	maxItems   int
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:     deps.Source,
		ledger:     deps.Ledger,
		summarizer: deps.Summarizer,
		publisher:  deps.Publisher,
		maxItems:   deps.MaxItems,
		logger:     logger,
	}
}

// Run executes one scheduled pass. Only a fetch failure is fatal; every
// other failure stays confined to its record so one bad item never blocks
// the rest. Run never errors because all items failed.
func (p *Pipeline) Run(ctx context.Context, trigger time.Time) (domain.RunReport, error) {
	report := domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: trigger,
	}
	start := time.Now()
	log := p.logger.With("run_id", report.RunID)

	records, err := p.source.Fetch(ctx, p.maxItems)
	if err != nil {
		log.Error("feed fetch failed", "error", err)
		return report, fmt.Errorf("fetch feed: %w", err)
	}
	report.Fetched = len(records)
	log.Info("feed fetched", "records", len(records))

	pending := p.filterProcessed(ctx, log, records, &report)

	for _, record := range pending {
		if err := p.processRecord(ctx, record); err != nil {
			report.Failed++
			log.Error("record failed", "title", record.Title, "error", err)
			continue
		}
		report.Succeeded++
		log.Info("record processed", "title", record.Title)
	}

	report.Elapsed = time.Since(start)
	log.Info("run complete",
		"fetched", report.Fetched,
		"skipped", report.Skipped,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"elapsed", report.Elapsed)
	return report, nil
}

// filterProcessed drops records the ledger already knows about. A missing or
// failing ledger degrades to "everything is new": duplicate publishes are
// idempotent, silently skipping fresh posts is not.
func (p *Pipeline) filterProcessed(ctx context.Context, log *slog.Logger, records []domain.FeedRecord, report *domain.RunReport) []domain.FeedRecord {
	if p.ledger == nil {
		log.Warn("ledger unavailable, treating all records as new")
		return records
	}

	guids := make([]string, len(records))
	for i, record := range records {
		guids[i] = record.GUID
	}

	done, err := p.ledger.BatchIsProcessed(ctx, guids)
	if err != nil {
		log.Warn("dedup check failed, treating all records as new", "error", err)
		return records
	}

	pending := make([]domain.FeedRecord, 0, len(records))
	for _, record := range records {
		if done[record.GUID] {
			report.Skipped++
			continue
		}
		pending = append(pending, record)
	}
	return pending
}

// processRecord runs the per-item pass. The ledger is marked only after a
// successful publish, preserving "ledger entry implies published artifact".
func (p *Pipeline) processRecord(ctx context.Context, record domain.FeedRecord) error {
	summary, err := p.summarizer.Summarize(ctx, record, ports.SummarizeOptions{IncludeDisclaimer: true})
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	artifact := BuildArtifact(record, summary)

	if !p.publisher.Publish(ctx, artifact) {
		return fmt.Errorf("publish %s: content store rejected the write", artifact.Slug)
	}

	if p.ledger == nil {
		return nil
	}
	entry := domain.LedgerEntry{
		GUID:      record.GUID,
		Title:     record.Title,
		Slug:      artifact.Slug,
		SourceURL: record.CanonicalURL,
	}
	if err := p.ledger.MarkProcessed(ctx, entry); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// BuildArtifact deterministically maps a record and its summary to the
// published document. The slug comes from the canonical URL when it yields
// one, otherwise from the title, so recomputation is stable across runs.
func BuildArtifact(record domain.FeedRecord, summary string) domain.PublishedArtifact {
	slug := textutil.ExtractSlug(record.CanonicalURL)
	if slug == "" {
		slug = textutil.Slugify(record.Title)
	}
	return domain.PublishedArtifact{
		Slug:        slug,
		Title:       record.Title,
		URL:         record.CanonicalURL,
		PublishedAt: record.PublishedAt,
		Summary:     summary,
		Authors:     record.Contributors,
		Categories:  record.Tags,
		GUID:        record.GUID,
	}
}
