// Package llm summarizes feed records through an OpenAI-compatible chat
// completion API with bounded retries.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cf-vnkr/autoblog/internal/config"
	"github.com/cf-vnkr/autoblog/internal/domain"
	"github.com/cf-vnkr/autoblog/internal/ports"
	"github.com/cf-vnkr/autoblog/internal/textutil"
)

const (
	maxAttempts      = 3
	minSummaryLength = 50
	contentBudget    = 4000
	maxOutputTokens  = 500
	temperature      = 0.3
)

const systemPrompt = "You are a technical content condenser. You turn long engineering " +
	"blog posts into short, accurate digests. Keep the author's claims intact, name the " +
	"technologies involved, and never invent details that are not in the post. Respond " +
	"with the summary text only."

// Disclaimer prefixes every published summary so readers know its origin.
const Disclaimer = "This summary was generated automatically by a language model " +
	"and may omit important details. Read the full post at the source link."

// ErrSummaryTooShort marks a response below the minimum useful length; it is
// retried like any other failed attempt.
var ErrSummaryTooShort = errors.New("summary shorter than minimum length")

// Summarizer calls the chat completion backend. One Summarize call makes up
// to maxAttempts requests with linearly growing backoff in between; after
// exhaustion the last error propagates. Fallback text is the caller's call.
type Summarizer struct {
	client      *openai.Client
	model       string
	logger      *slog.Logger
	backoffBase time.Duration
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer builds a client from configuration. An empty base URL means
// the public OpenAI endpoint.
func NewSummarizer(cfg config.SummarizerConfig, logger *slog.Logger) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Summarizer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		logger:      logger,
		backoffBase: 2 * time.Second,
	}
}

// Summarize produces the digest for one record.
func (s *Summarizer) Summarize(ctx context.Context, record domain.FeedRecord, opts ports.SummarizeOptions) (string, error) {
	prompt := buildPrompt(record)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			// Linear backoff: attempt index times the base delay.
			delay := time.Duration(attempt-1) * s.backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		summary, err := s.requestSummary(ctx, prompt)
		if err != nil {
			lastErr = err
			s.warn("summarization attempt failed", "title", record.Title, "attempt", attempt, "error", err)
			continue
		}

		if opts.IncludeDisclaimer {
			summary = Disclaimer + "\n\n" + summary
		}
		return summary, nil
	}

	return "", fmt.Errorf("summarize %q after %d attempts: %w", record.Title, maxAttempts, lastErr)
}

func (s *Summarizer) requestSummary(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   maxOutputTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if len(summary) < minSummaryLength {
		return "", fmt.Errorf("%w: got %d characters", ErrSummaryTooShort, len(summary))
	}
	return summary, nil
}

func (s *Summarizer) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// buildPrompt embeds title, contributors, tags, and the plain-text content
// truncated at a word boundary so the budget is spent on signal, not markup.
func buildPrompt(record domain.FeedRecord) string {
	content := textutil.TruncateAtWord(textutil.StripHTML(record.FullContent), contentBudget)

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", record.Title)
	if len(record.Contributors) > 0 {
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(record.Contributors, ", "))
	}
	if len(record.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(record.Tags, ", "))
	}
	fmt.Fprintf(&b, "\nContent:\n%s\n", content)
	b.WriteString("\nWrite a concise summary of this post in two to four sentences.")
	return b.String()
}
