// Package github publishes artifacts to a version-controlled content store
// through the GitHub contents API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/time/rate"

	"github.com/cf-vnkr/autoblog/internal/config"
	"github.com/cf-vnkr/autoblog/internal/domain"
	"github.com/cf-vnkr/autoblog/internal/ports"
)

// Publisher performs conditional create-or-update writes: it reads the
// current revision marker (blob SHA) of the target path, then issues a
// single write carrying that marker so concurrent external edits are never
// clobbered blindly.
type Publisher struct {
	client      *gh.Client
	owner       string
	repo        string
	branch      string
	contentRoot string
	committer   *gh.CommitAuthor
	limiter     *rate.Limiter
	logger      *slog.Logger
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher builds a publisher from configuration. httpClient may be nil.
func NewPublisher(cfg config.GitHubConfig, httpClient *http.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:      gh.NewClient(httpClient).WithAuthToken(cfg.Token),
		owner:       cfg.Owner,
		repo:        cfg.Repo,
		branch:      cfg.Branch,
		contentRoot: cfg.ContentRoot,
		committer: &gh.CommitAuthor{
			Name:  gh.String(cfg.CommitterName),
			Email: gh.String(cfg.CommitterEmail),
		},
		limiter: rate.NewLimiter(rate.Every(cfg.PublishInterval()), 1),
		logger:  logger,
	}
}

// Client exposes the underlying API client so tests can point it at a fake.
func (p *Publisher) Client() *gh.Client {
	return p.client
}

// ArtifactPath maps a slug to its storage path under the content root.
func (p *Publisher) ArtifactPath(slug string) string {
	return path.Join(p.contentRoot, slug+".json")
}

// Publish writes one artifact. Failures are reported as false (with a logged
// reason), never as a panic or error: the orchestrator decides what a failed
// publish means for the item.
func (p *Publisher) Publish(ctx context.Context, artifact domain.PublishedArtifact) bool {
	if err := p.limiter.Wait(ctx); err != nil {
		p.error("publish canceled while rate limited", "slug", artifact.Slug, "error", err)
		return false
	}

	target := p.ArtifactPath(artifact.Slug)

	sha, err := p.currentSHA(ctx, target)
	if err != nil {
		p.error("could not read current revision", "path", target, "error", err)
		return false
	}

	raw, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		p.error("could not serialize artifact", "slug", artifact.Slug, "error", err)
		return false
	}
	raw = append(raw, '\n')

	opts := &gh.RepositoryContentFileOptions{
		Content:   raw,
		Branch:    gh.String(p.branch),
		Committer: p.committer,
	}

	if sha == "" {
		opts.Message = gh.String(fmt.Sprintf("Add summarized post: %s", artifact.Slug))
		_, _, err = p.client.Repositories.CreateFile(ctx, p.owner, p.repo, target, opts)
	} else {
		opts.Message = gh.String(fmt.Sprintf("Update summarized post: %s", artifact.Slug))
		opts.SHA = gh.String(sha)
		_, _, err = p.client.Repositories.UpdateFile(ctx, p.owner, p.repo, target, opts)
	}
	if err != nil {
		p.error("content store rejected write", "path", target, "error", err)
		return false
	}

	p.info("artifact published", "path", target, "updated", sha != "")
	return true
}

// PublishMany sequences single publishes; pacing between requests comes from
// the shared limiter. It never aborts on a failed item and returns the count
// of successes.
func (p *Publisher) PublishMany(ctx context.Context, artifacts []domain.PublishedArtifact) int {
	published := 0
	for _, artifact := range artifacts {
		if ctx.Err() != nil {
			break
		}
		if p.Publish(ctx, artifact) {
			published++
		}
	}
	return published
}

// currentSHA returns the revision marker for the path, or "" when the file
// does not exist yet. Not-found is a valid outcome, not an error.
func (p *Publisher) currentSHA(ctx context.Context, target string) (string, error) {
	file, _, resp, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, target,
		&gh.RepositoryContentGetOptions{Ref: p.branch})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("get contents %s: %w", target, err)
	}
	if file == nil {
		return "", fmt.Errorf("path %s is not a file", target)
	}
	return file.GetSHA(), nil
}

func (p *Publisher) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Publisher) error(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
