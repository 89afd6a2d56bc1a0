package aggregator

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/errors"
	"github.com/gundaminthecode/showcase/pkg/integrations/github"
	"github.com/gundaminthecode/showcase/pkg/probe"
)

// Sort modes for repository listings.
const (
	SortUpdated = "updated"
	SortStars   = "stars"
	SortPushed  = "pushed"
	SortName    = "name"
)

// SortModes lists the accepted sort modes, default first.
var SortModes = []string{SortUpdated, SortStars, SortPushed, SortName}

// ParseSort normalizes a sort mode. An empty value selects [SortUpdated].
func ParseSort(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return SortUpdated, nil
	}
	if !slices.Contains(SortModes, s) {
		return "", errors.New(errors.ErrCodeInvalidInput, "unknown sort mode %q (want one of %s)", raw, strings.Join(SortModes, ", "))
	}
	return s, nil
}

// ListRepositories returns username's owned repositories, filtered, sorted,
// and annotated with their live site.
func (a *Aggregator) ListRepositories(ctx context.Context, q RepoQuery) ([]RepositorySummary, cache.Status, error) {
	username := strings.ToLower(strings.TrimSpace(q.Username))
	if err := github.ValidateOwner(username); err != nil {
		return nil, "", err
	}
	sortMode, err := ParseSort(q.Sort)
	if err != nil {
		return nil, "", err
	}

	key := a.keyer.RepositoriesKey(username, sortMode, cache.RepoKeyOpts{
		IncludeForks:    q.IncludeForks,
		IncludeArchived: q.IncludeArchived,
	})
	return cache.GetOrCompute(ctx, a.store, key, a.ttl, func(ctx context.Context) ([]RepositorySummary, error) {
		start := time.Now()
		repos, err := a.upstream.ListUserRepos(ctx, username, a.repoBounds)
		if err != nil {
			return nil, err
		}
		repos = FilterRepositories(repos, q.IncludeForks, q.IncludeArchived)
		SortRepositories(repos, sortMode)

		out := make([]RepositorySummary, 0, len(repos))
		for _, r := range repos {
			out = append(out, summarizeRepository(r))
		}
		a.resolveLive(ctx, out)

		a.logger.Debug("fetched repositories", "user", username, "count", len(out), "duration", time.Since(start))
		return out, nil
	})
}

// FilterRepositories drops forks and archived repositories unless included.
func FilterRepositories(repos []github.Repository, includeForks, includeArchived bool) []github.Repository {
	out := repos[:0:0]
	for _, r := range repos {
		if r.Fork && !includeForks {
			continue
		}
		if r.Archived && !includeArchived {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortRepositories orders repos in place. Stars sort by count with ties
// broken by most recent update; pushed falls back to update time; name is
// case-insensitive ascending. Anything else sorts by most recent update.
func SortRepositories(repos []github.Repository, mode string) {
	byUpdated := func(a, b github.Repository) int { return compareTimeDesc(a.UpdatedAt, b.UpdatedAt) }

	switch mode {
	case SortStars:
		slices.SortStableFunc(repos, func(a, b github.Repository) int {
			if c := cmp.Compare(b.Stars, a.Stars); c != 0 {
				return c
			}
			return byUpdated(a, b)
		})
	case SortPushed:
		slices.SortStableFunc(repos, func(a, b github.Repository) int {
			if c := compareTimeDesc(a.PushedAt, b.PushedAt); c != 0 {
				return c
			}
			return byUpdated(a, b)
		})
	case SortName:
		slices.SortStableFunc(repos, func(a, b github.Repository) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	default:
		slices.SortStableFunc(repos, byUpdated)
	}
}

// compareTimeDesc orders later times first; a missing time sorts last.
func compareTimeDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return b.Compare(*a)
}

func summarizeRepository(r github.Repository) RepositorySummary {
	s := RepositorySummary{
		ID:          r.ID,
		Name:        r.Name,
		FullName:    r.FullName,
		HTMLURL:     r.HTMLURL,
		Description: r.Description,
		Language:    r.Language,
		Topics:      r.Topics,
		Stars:       r.Stars,
		Forks:       r.Forks,
		Archived:    r.Archived,
		Fork:        r.Fork,
		UpdatedAt:   r.UpdatedAt,
		PushedAt:    r.PushedAt,
		Owner:       Owner{Login: r.Owner.Login},
		Homepage:    r.Homepage,
		Branch:      r.Branch,
		OpenIssues:  r.OpenIssues,
	}
	if s.Topics == nil {
		s.Topics = []string{}
	}
	if r.License != nil {
		s.License = &LicenseInfo{Key: r.License.Key, Name: r.License.Name, SPDXID: r.License.SPDXID}
	}
	return s
}

// resolveLive fills LiveURL for every summary. Probe failures leave it nil.
func (a *Aggregator) resolveLive(ctx context.Context, repos []RepositorySummary) {
	if a.prober == nil || len(repos) == 0 {
		return
	}
	sets := make([][]string, len(repos))
	for i, r := range repos {
		homepage := ""
		if r.Homepage != nil {
			homepage = *r.Homepage
		}
		sets[i] = a.candidates(homepage, r.Owner.Login, r.Name)
	}
	for i, u := range a.prober.ProbeAll(ctx, sets) {
		if u != "" {
			repos[i].LiveURL = &u
		}
	}
}

func defaultCandidates(homepage, owner, name string) []string {
	return probe.Candidates(homepage, owner, name)
}
