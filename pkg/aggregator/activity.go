package aggregator

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/gundaminthecode/showcase/pkg/cache"
)

// Activity is a repository's commit history grouped by UTC day, with the
// progress notes written for individual commits.
type Activity struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Since string `json:"since,omitempty"`
	Total int    `json:"total"`

	// Days and Counts are keyed by UTC date (YYYY-MM-DD).
	Days   map[string][]CommitSummary `json:"days"`
	Counts map[string]int             `json:"counts"`

	// Blurbs maps a lower-case SHA, full or abbreviated as written in the
	// progress document, to its note.
	Blurbs map[string]string `json:"blurbs"`
}

// Blurb returns the progress note for sha, matching the full SHA or its 7
// or 8 character abbreviation.
func (a Activity) Blurb(sha string) string {
	sha = strings.ToLower(sha)
	for _, n := range []int{len(sha), 7, 8} {
		if n > len(sha) {
			continue
		}
		if b, ok := a.Blurbs[sha[:n]]; ok {
			return b
		}
	}
	return ""
}

// Activity groups q's commits by day and attaches progress blurbs. The
// returned status is that of the commit listing; a progress document that
// cannot be loaded only means no blurbs.
func (a *Aggregator) Activity(ctx context.Context, q CommitQuery) (Activity, cache.Status, error) {
	commits, status, err := a.ListCommits(ctx, q)
	if err != nil {
		return Activity{}, "", err
	}

	act := GroupByDay(commits)
	act.Owner, act.Repo = strings.TrimSpace(q.Owner), strings.TrimSpace(q.Repo)
	if !q.Since.IsZero() {
		act.Since = cache.StartOfDay(q.Since).Format(time.DateOnly)
	}

	doc, _, err := a.FetchDocument(ctx, DocumentQuery{Kind: DocumentProgress, Owner: q.Owner, Repo: q.Repo})
	switch {
	case err != nil:
		a.logger.Warn("progress document unavailable", "repo", act.Owner+"/"+act.Repo, "err", err)
	case doc.Found():
		act.Blurbs = ParseBlurbs(doc.Document.Content)
	}
	if act.Blurbs == nil {
		act.Blurbs = map[string]string{}
	}
	return act, status, nil
}

// GroupByDay buckets commits by the UTC date of their author date. Commits
// without a parsable date are counted in Total only.
func GroupByDay(commits []CommitSummary) Activity {
	act := Activity{
		Days:   make(map[string][]CommitSummary),
		Counts: make(map[string]int),
		Total:  len(commits),
	}
	for _, c := range commits {
		t, err := time.Parse(time.RFC3339, c.Author.Date)
		if err != nil {
			continue
		}
		day := t.UTC().Format(time.DateOnly)
		act.Days[day] = append(act.Days[day], c)
		act.Counts[day]++
	}
	return act
}

var (
	// [abc1234] - note   or   [abc1234]: note
	blurbLine = regexp.MustCompile(`(?i)^\s*\[([0-9a-f]{7,40})\]\s*[-:]\s*(.+?)\s*$`)
	// ## [abc1234]
	blurbHeader = regexp.MustCompile(`(?i)^\s{0,3}#{2,6}\s*\[([0-9a-f]{7,40})\]\s*$`)
	// # Some title (abc1234)
	blurbTitled = regexp.MustCompile(`(?i)^\s{0,3}#{1,6}\s+.*\(([0-9a-f]{7,40})\)\s*$`)
)

// ParseBlurbs extracts per-commit notes from a progress document. A note
// starts at a line naming a SHA and runs until the next such line:
//
//	[abc1234] - fixed the parser
//	## [abc1234]
//	# Parser rewrite (abc1234)
//
// Keys are lower-cased; notes are trimmed and empty notes dropped.
func ParseBlurbs(md string) map[string]string {
	out := make(map[string]string)
	var (
		current string
		buf     []string
	)
	flush := func() {
		if current != "" {
			if t := strings.TrimSpace(strings.Join(buf, "\n")); t != "" {
				out[strings.ToLower(current)] = t
			}
		}
		current, buf = "", nil
	}

	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if m := blurbLine.FindStringSubmatch(line); m != nil {
			flush()
			current, buf = m[1], []string{m[2]}
			continue
		}
		if m := blurbHeader.FindStringSubmatch(line); m != nil {
			flush()
			current = m[1]
			continue
		}
		if m := blurbTitled.FindStringSubmatch(line); m != nil {
			flush()
			current = m[1]
			continue
		}
		if current != "" {
			buf = append(buf, line)
		}
	}
	flush()
	return out
}
