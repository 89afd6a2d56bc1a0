package aggregator

import (
	"context"
	"strings"
	"time"

	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/errors"
	"github.com/gundaminthecode/showcase/pkg/integrations/github"
)

// sinceLayouts are the accepted forms of a commit lower bound, tried in order.
var sinceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseSince parses an ISO-8601 timestamp or date. Values without a zone
// are read as UTC.
func ParseSince(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errors.New(errors.ErrCodeInvalidInput, "since is required")
	}
	for _, layout := range sinceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New(errors.ErrCodeInvalidInput, "invalid since %q: want an ISO-8601 date or timestamp", raw)
}

// ListCommits returns the commits of a repository made on or after the UTC
// day of q.Since, newest first.
//
// Stale listings are revalidated with the ETag of the previous fetch.
func (a *Aggregator) ListCommits(ctx context.Context, q CommitQuery) ([]CommitSummary, cache.Status, error) {
	owner, repo := strings.TrimSpace(q.Owner), strings.TrimSpace(q.Repo)
	if err := github.ValidateRepoRef(owner, repo); err != nil {
		return nil, "", err
	}
	var since time.Time
	if !q.Since.IsZero() {
		since = cache.StartOfDay(q.Since)
	}

	key := a.keyer.CommitsKey(owner, repo, since)
	return cache.GetOrRevalidate(ctx, a.store, key, a.ttl, func(ctx context.Context, prior *cache.Entry) (cache.Fetched[[]CommitSummary], error) {
		var etag string
		if prior != nil {
			etag = prior.Token
		}
		l, err := a.upstream.ListCommits(ctx, owner, repo, since, a.commitBnds, etag)
		if err != nil {
			return cache.Fetched[[]CommitSummary]{}, err
		}
		if l.NotModified {
			a.logger.Debug("commit listing not modified", "repo", owner+"/"+repo)
			return cache.Fetched[[]CommitSummary]{NotModified: true}, nil
		}

		out := make([]CommitSummary, 0, len(l.Commits))
		for _, c := range l.Commits {
			out = append(out, summarizeCommit(c))
		}
		a.logger.Debug("fetched commits", "repo", owner+"/"+repo, "count", len(out))
		return cache.Fetched[[]CommitSummary]{Value: out, Token: l.ETag}, nil
	})
}

func summarizeCommit(c github.Commit) CommitSummary {
	return CommitSummary{
		SHA:     c.SHA,
		HTMLURL: c.HTMLURL,
		Message: c.Commit.Message,
		Author: CommitAuthor{
			Name: commitAuthorName(c),
			Date: commitDate(c),
		},
	}
}

// commitAuthorName prefers the git author's name, then the linked accounts.
func commitAuthorName(c github.Commit) string {
	if a := c.Commit.Author; a != nil && a.Name != "" {
		return a.Name
	}
	if c.Author != nil && c.Author.Login != "" {
		return c.Author.Login
	}
	if c.Committer != nil && c.Committer.Login != "" {
		return c.Committer.Login
	}
	return "unknown"
}

func commitDate(c github.Commit) string {
	if a := c.Commit.Author; a != nil && a.Date != "" {
		return a.Date
	}
	if cm := c.Commit.Committer; cm != nil && cm.Date != "" {
		return cm.Date
	}
	return ""
}
