package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gundaminthecode/showcase/internal/config"
	"github.com/gundaminthecode/showcase/internal/server"
	"github.com/gundaminthecode/showcase/pkg/aggregator"
)

// maxBar caps the width of a day's commit bar.
const maxBar = 40

type activityOpts struct {
	since string
	days  int
	json  bool
}

func (c *CLI) activityCommand() *cobra.Command {
	opts := activityOpts{days: server.DefaultActivityDays}

	cmd := &cobra.Command{
		Use:   "activity <owner/repo>",
		Short: "Show a repository's commits per day with progress notes",
		Args:  requireArgs(1, "owner/repo"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runActivity(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.since, "since", "", "earliest commit date (ISO-8601); overrides --days")
	cmd.Flags().IntVar(&opts.days, "days", opts.days, "look back this many days")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the API payload as JSON")

	return cmd
}

func (c *CLI) runActivity(ctx context.Context, ref string, opts activityOpts) error {
	q, err := commitQuery(ref, opts.since, opts.days, time.Now())
	if err != nil {
		return err
	}

	agg, store, err := c.newAggregator(ctx, config.BackendFile)
	if err != nil {
		return err
	}
	defer store.Close()

	act, status, err := agg.Activity(ctx, q)
	if err != nil {
		return err
	}
	if opts.json {
		return writeJSONOutput(c, act)
	}
	renderActivity(c, act)
	printCacheStatus(c.Out, status, fmt.Sprintf("%d commits", act.Total), fmt.Sprintf("%d active days", len(act.Counts)))
	return nil
}

func renderActivity(c *CLI, act aggregator.Activity) {
	fmt.Fprintln(c.Out, StyleTitle.Render(act.Owner+"/"+act.Repo))
	if act.Since != "" {
		printDetail(c.Out, "since %s", act.Since)
	}

	days := make([]string, 0, len(act.Days))
	busiest := 0
	for d, n := range act.Counts {
		days = append(days, d)
		busiest = max(busiest, n)
	}
	slices.Sort(days)
	slices.Reverse(days)

	for _, day := range days {
		n := act.Counts[day]
		width := max(1, n*maxBar/max(busiest, 1))
		fmt.Fprintf(c.Out, "%s %s %s\n",
			StyleValue.Render(day),
			StyleSuccess.Render(strings.Repeat("■", width)),
			StyleNumber.Render(fmt.Sprint(n)),
		)
		for _, cm := range act.Days[day] {
			fmt.Fprintf(c.Out, "  %s %s\n", StyleDim.Render(cm.ShortSHA()), truncate(cm.Title(), 72))
			if b := act.Blurb(cm.SHA); b != "" {
				for _, line := range strings.Split(b, "\n") {
					printDetail(c.Out, "    %s", line)
				}
			}
		}
	}
}
