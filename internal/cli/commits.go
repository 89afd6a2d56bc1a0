package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gundaminthecode/showcase/internal/config"
	"github.com/gundaminthecode/showcase/pkg/aggregator"
	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/integrations/github"
)

const defaultCommitDays = 30

type commitsOpts struct {
	since string
	days  int
	json  bool
}

func (c *CLI) commitsCommand() *cobra.Command {
	opts := commitsOpts{days: defaultCommitDays}

	cmd := &cobra.Command{
		Use:   "commits <owner/repo>",
		Short: "List a repository's recent commits",
		Example: `  showcase commits octocat/hello-world --since 2024-01-01
  showcase commits octocat/hello-world --days 7 --json`,
		Args: requireArgs(1, "owner/repo"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommits(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.since, "since", "", "earliest commit date (ISO-8601); overrides --days")
	cmd.Flags().IntVar(&opts.days, "days", opts.days, "look back this many days")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the API payload as JSON")

	return cmd
}

// commitQuery resolves an owner/repo reference and a window into a query.
func commitQuery(ref, since string, days int, now time.Time) (aggregator.CommitQuery, error) {
	owner, repo, err := github.ParseRepoRef(ref)
	if err != nil {
		return aggregator.CommitQuery{}, err
	}
	q := aggregator.CommitQuery{Owner: owner, Repo: repo}
	switch {
	case since != "":
		q.Since, err = aggregator.ParseSince(since)
		if err != nil {
			return aggregator.CommitQuery{}, err
		}
	case days > 0:
		q.Since = cache.StartOfDay(now.UTC().AddDate(0, 0, -days))
	}
	return q, nil
}

func (c *CLI) runCommits(ctx context.Context, ref string, opts commitsOpts) error {
	q, err := commitQuery(ref, opts.since, opts.days, time.Now())
	if err != nil {
		return err
	}

	agg, store, err := c.newAggregator(ctx, config.BackendFile)
	if err != nil {
		return err
	}
	defer store.Close()

	commits, status, err := agg.ListCommits(ctx, q)
	if err != nil {
		return err
	}
	if opts.json {
		return writeJSONOutput(c, commits)
	}

	fmt.Fprintln(c.Out, StyleTitle.Render(q.Owner+"/"+q.Repo))
	if len(commits) == 0 {
		printInfo(c.Out, "No commits since %s", q.Since.Format(time.DateOnly))
		return nil
	}
	for _, cm := range commits {
		fmt.Fprintf(c.Out, "%s %s %s\n",
			StyleNumber.Render(cm.ShortSHA()),
			StyleValue.Render(truncate(cm.Title(), 72)),
			StyleDim.Render(cm.Author.Name+", "+relativeDate(cm.Author.Date)),
		)
	}
	printCacheStatus(c.Out, status, fmt.Sprintf("%d commits", len(commits)))
	return nil
}
