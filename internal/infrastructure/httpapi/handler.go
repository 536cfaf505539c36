// Package httpapi exposes the on-demand debug surface. Every endpoint is a
// thin wrapper over the same components the scheduled pipeline uses, and
// every failure body is structured JSON with an error field.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cf-vnkr/autoblog/internal/config"
	"github.com/cf-vnkr/autoblog/internal/ports"
	"github.com/cf-vnkr/autoblog/internal/usecase"
)

// NextRunner reports the next scheduled pipeline run for /health.
type NextRunner interface {
	NextRun() time.Time
}

// Handler serves the debug endpoints.
type Handler struct {
	cfg        config.Config
	pipeline   *usecase.Pipeline
	source     ports.FeedSource
	ledger     ports.Ledger
	summarizer ports.Summarizer
	publisher  ports.Publisher
	scheduler  NextRunner
}

// HandlerDeps lists everything the debug surface touches. Ledger and
// Scheduler may be nil; the endpoints report their absence instead of
// panicking.
type HandlerDeps struct {
	Config     config.Config
	Pipeline   *usecase.Pipeline
	Source     ports.FeedSource
	Ledger     ports.Ledger
	Summarizer ports.Summarizer
	Publisher  ports.Publisher
	Scheduler  NextRunner
}

// NewHandler wires the debug surface.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		cfg:        deps.Config,
		pipeline:   deps.Pipeline,
		source:     deps.Source,
		ledger:     deps.Ledger,
		summarizer: deps.Summarizer,
		publisher:  deps.Publisher,
		scheduler:  deps.Scheduler,
	}
}

// RegisterRoutes attaches the debug endpoints to the engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/test", h.TestFeed)
	r.GET("/test-kv", h.TestLedger)
	r.GET("/test-ai", h.TestSummarizer)
	r.GET("/test-github", h.TestPublisher)
	r.GET("/trigger", h.Trigger)
}

// Health returns a config snapshot. Always 200.
func (h *Handler) Health(c *gin.Context) {
	snapshot := gin.H{
		"feed_url":          h.cfg.Feed.URL,
		"max_items_per_run": h.cfg.Feed.MaxItemsPerRun,
		"ledger_bound":      h.ledger != nil,
		"ai_bound":          h.summarizer != nil,
		"github_bound":      h.publisher != nil,
	}
	if h.scheduler != nil {
		snapshot["next_run"] = h.scheduler.NextRun()
	}
	c.JSON(http.StatusOK, snapshot)
}

// TestFeed runs a fetch capped to 3 items and returns the parsed records.
func (h *Handler) TestFeed(c *gin.Context) {
	records, err := h.source.Fetch(c.Request.Context(), 3)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}

// TestLedger returns the ledger item count.
func (h *Handler) TestLedger(c *gin.Context) {
	if h.ledger == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger binding is not configured"})
		return
	}

	count, err := h.ledger.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// TestSummarizer fetches one record and summarizes it.
func (h *Handler) TestSummarizer(c *gin.Context) {
	ctx := c.Request.Context()

	records, err := h.source.Fetch(ctx, 1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed returned no records"})
		return
	}

	summary, err := h.summarizer.Summarize(ctx, records[0], ports.SummarizeOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": records[0].Title, "summary": summary})
}

// TestPublisher runs one record through summarize and publish.
func (h *Handler) TestPublisher(c *gin.Context) {
	ctx := c.Request.Context()

	records, err := h.source.Fetch(ctx, 1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed returned no records"})
		return
	}

	summary, err := h.summarizer.Summarize(ctx, records[0], ports.SummarizeOptions{IncludeDisclaimer: true})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	artifact := usecase.BuildArtifact(records[0], summary)
	ok := h.publisher.Publish(ctx, artifact)
	c.JSON(http.StatusOK, gin.H{
		"success": ok,
		"path":    h.publisher.ArtifactPath(artifact.Slug),
	})
}

// Trigger synchronously invokes the full scheduled pipeline.
func (h *Handler) Trigger(c *gin.Context) {
	report, err := h.pipeline.Run(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "run_id": report.RunID})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"completed_at": time.Now().UTC(),
		"run_id":       report.RunID,
		"fetched":      report.Fetched,
		"skipped":      report.Skipped,
		"succeeded":    report.Succeeded,
		"failed":       report.Failed,
		"elapsed":      report.Elapsed.String(),
	})
}
