// Package feed retrieves the source RSS document and extracts records from
// it with per-item failure isolation: one malformed entry never aborts the
// batch, and document order is preserved.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cf-vnkr/autoblog/internal/domain"
	"github.com/cf-vnkr/autoblog/internal/ports"
)

const (
	userAgent      = "autoblog/1.0"
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 8 << 20
)

// Fetcher pulls and parses the configured feed URL.
type Fetcher struct {
	feedURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.FeedSource = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; a nil client gets a 20s timeout default.
func NewFetcher(feedURL string, client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Fetcher{feedURL: feedURL, client: client, logger: logger}
}

// Fetch retrieves the feed document and returns its records in document
// order. Transport failures and non-2xx statuses are fatal to the whole
// fetch; individual malformed items are skipped. maxItems truncates after
// the full document is parsed so a bad trailing item never shifts the window.
func (f *Fetcher) Fetch(ctx context.Context, maxItems int) ([]domain.FeedRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	doc := string(body)
	// A body without a channel envelope is not a feed at all; that is fatal,
	// unlike individual malformed items. An empty channel is still valid.
	if !strings.Contains(doc, "<channel") && !strings.Contains(doc, "<feed") {
		return nil, fmt.Errorf("response from %s is not a feed document", f.feedURL)
	}

	records := f.parseDocument(doc)
	if maxItems > 0 && len(records) > maxItems {
		records = records[:maxItems]
	}

	f.debug("feed fetched", "bytes", len(body), "records", len(records))
	return records, nil
}

func (f *Fetcher) parseDocument(doc string) []domain.FeedRecord {
	blocks := itemExpr.FindAllString(doc, -1)
	records := make([]domain.FeedRecord, 0, len(blocks))
	for i, block := range blocks {
		record, ok := parseItem(block)
		if !ok {
			f.debug("skipping malformed feed item", "index", i)
			continue
		}
		records = append(records, record)
	}
	return records
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
