package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cf-vnkr/autoblog/internal/config"
	"github.com/cf-vnkr/autoblog/internal/domain"
	"github.com/cf-vnkr/autoblog/internal/ports"
	"github.com/cf-vnkr/autoblog/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSource struct {
	records []domain.FeedRecord
	err     error
	gotMax  int
}

func (s *stubSource) Fetch(ctx context.Context, maxItems int) ([]domain.FeedRecord, error) {
	s.gotMax = maxItems
	return s.records, s.err
}

type stubLedger struct {
	count    int
	countErr error
}

func (l *stubLedger) IsProcessed(ctx context.Context, guid string) bool { return false }

func (l *stubLedger) BatchIsProcessed(ctx context.Context, guids []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (l *stubLedger) MarkProcessed(ctx context.Context, entry domain.LedgerEntry) error {
	return nil
}

func (l *stubLedger) Count(ctx context.Context) (int, error) {
	return l.count, l.countErr
}

func (l *stubLedger) ListAll(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	return nil, nil
}

type stubSummarizer struct{}

func (s *stubSummarizer) Summarize(ctx context.Context, record domain.FeedRecord, opts ports.SummarizeOptions) (string, error) {
	return "summary of " + record.Title, nil
}

type stubPublisher struct{}

func (p *stubPublisher) Publish(ctx context.Context, artifact domain.PublishedArtifact) bool {
	return true
}

func (p *stubPublisher) PublishMany(ctx context.Context, artifacts []domain.PublishedArtifact) int {
	return len(artifacts)
}

func (p *stubPublisher) ArtifactPath(slug string) string {
	return "content/posts/" + slug + ".json"
}

type stubScheduler struct {
	next time.Time
}

func (s *stubScheduler) NextRun() time.Time { return s.next }

func testConfig() config.Config {
	return config.Config{
		Feed: config.FeedConfig{
			URL:            "https://blog.example.com/rss/",
			MaxItemsPerRun: 10,
		},
	}
}

func newTestRouter(deps HandlerDeps) *gin.Engine {
	engine := gin.New()
	NewHandler(deps).RegisterRoutes(engine)
	return engine
}

func doRequest(t *testing.T, engine *gin.Engine, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	engine.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s response: %v (%s)", path, err, rec.Body.String())
	}
	return rec.Code, body
}

func TestHealthReportsBindings(t *testing.T) {
	t.Parallel()

	next := time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC)
	engine := newTestRouter(HandlerDeps{
		Config:     testConfig(),
		Source:     &stubSource{},
		Summarizer: &stubSummarizer{},
		Publisher:  &stubPublisher{},
		Scheduler:  &stubScheduler{next: next},
	})

	code, body := doRequest(t, engine, "/health")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["feed_url"] != "https://blog.example.com/rss/" {
		t.Fatalf("unexpected feed_url: %v", body["feed_url"])
	}
	if body["ledger_bound"] != false {
		t.Fatal("nil ledger must report ledger_bound=false")
	}
	if body["ai_bound"] != true || body["github_bound"] != true {
		t.Fatalf("unexpected bindings: %v", body)
	}
	if _, ok := body["next_run"]; !ok {
		t.Fatal("scheduler present but next_run missing")
	}
}

func TestFeedEndpointCapsFetch(t *testing.T) {
	t.Parallel()

	source := &stubSource{records: []domain.FeedRecord{
		{Title: "One", CanonicalURL: "https://blog.example.com/one/", GUID: "g1"},
	}}
	engine := newTestRouter(HandlerDeps{Config: testConfig(), Source: source})

	code, body := doRequest(t, engine, "/test")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if source.gotMax != 3 {
		t.Fatalf("expected fetch cap 3, got %d", source.gotMax)
	}
	if body["count"] != float64(1) {
		t.Fatalf("unexpected count: %v", body["count"])
	}
}

func TestLedgerEndpointWithoutBinding(t *testing.T) {
	t.Parallel()

	engine := newTestRouter(HandlerDeps{Config: testConfig(), Source: &stubSource{}})

	code, body := doRequest(t, engine, "/test-kv")
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if body["error"] != "ledger binding is not configured" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
}

func TestLedgerEndpointReportsCount(t *testing.T) {
	t.Parallel()

	engine := newTestRouter(HandlerDeps{
		Config: testConfig(),
		Source: &stubSource{},
		Ledger: &stubLedger{count: 7},
	})

	code, body := doRequest(t, engine, "/test-kv")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["count"] != float64(7) {
		t.Fatalf("unexpected count: %v", body["count"])
	}
}

func TestSummarizerEndpointEmptyFeed(t *testing.T) {
	t.Parallel()

	engine := newTestRouter(HandlerDeps{
		Config:     testConfig(),
		Source:     &stubSource{},
		Summarizer: &stubSummarizer{},
	})

	code, body := doRequest(t, engine, "/test-ai")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if body["error"] != "feed returned no records" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
}

func TestPublisherEndpointReportsPath(t *testing.T) {
	t.Parallel()

	source := &stubSource{records: []domain.FeedRecord{
		{Title: "One", CanonicalURL: "https://blog.example.com/one/", GUID: "g1"},
	}}
	engine := newTestRouter(HandlerDeps{
		Config:     testConfig(),
		Source:     source,
		Summarizer: &stubSummarizer{},
		Publisher:  &stubPublisher{},
	})

	code, body := doRequest(t, engine, "/test-github")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["success"] != true {
		t.Fatalf("unexpected success flag: %v", body["success"])
	}
	if body["path"] != "content/posts/one.json" {
		t.Fatalf("unexpected path: %v", body["path"])
	}
}

func TestTriggerReturnsRunReport(t *testing.T) {
	t.Parallel()

	source := &stubSource{records: []domain.FeedRecord{
		{Title: "One", CanonicalURL: "https://blog.example.com/one/", GUID: "g1"},
		{Title: "Two", CanonicalURL: "https://blog.example.com/two/", GUID: "g2"},
	}}
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Summarizer: &stubSummarizer{},
		Publisher:  &stubPublisher{},
		MaxItems:   10,
	})
	engine := newTestRouter(HandlerDeps{
		Config:   testConfig(),
		Source:   source,
		Pipeline: pipeline,
	})

	code, body := doRequest(t, engine, "/trigger")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["fetched"] != float64(2) || body["succeeded"] != float64(2) {
		t.Fatalf("unexpected report: %v", body)
	}
	if body["run_id"] == "" {
		t.Fatal("run_id missing from report")
	}
}

func TestTriggerReportsFatalError(t *testing.T) {
	t.Parallel()

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     &stubSource{err: errors.New("feed unreachable")},
		Summarizer: &stubSummarizer{},
		Publisher:  &stubPublisher{},
		MaxItems:   10,
	})
	engine := newTestRouter(HandlerDeps{
		Config:   testConfig(),
		Source:   &stubSource{},
		Pipeline: pipeline,
	})

	code, body := doRequest(t, engine, "/trigger")
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if body["error"] == "" {
		t.Fatal("error body missing")
	}
}
