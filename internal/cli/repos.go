package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/gundaminthecode/showcase/internal/config"
	"github.com/gundaminthecode/showcase/pkg/aggregator"
	"github.com/gundaminthecode/showcase/pkg/cache"
)

type reposOpts struct {
	includeForks    bool
	includeArchived bool
	sort            string
	json            bool
}

func (c *CLI) reposCommand() *cobra.Command {
	var opts reposOpts

	cmd := &cobra.Command{
		Use:   "repos <username>",
		Short: "List a user's public repositories with their live sites",
		Args:  requireArgs(1, "a username"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRepos(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.includeForks, "forks", false, "include forks")
	cmd.Flags().BoolVar(&opts.includeArchived, "archived", false, "include archived repositories")
	cmd.Flags().StringVarP(&opts.sort, "sort", "s", aggregator.SortUpdated,
		"sort order: "+strings.Join(aggregator.SortModes, ", "))
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the API payload as JSON")

	return cmd
}

func (c *CLI) runRepos(ctx context.Context, username string, opts reposOpts) error {
	repos, status, err := c.fetchRepos(ctx, aggregator.RepoQuery{
		Username:        username,
		IncludeForks:    opts.includeForks,
		IncludeArchived: opts.includeArchived,
		Sort:            opts.sort,
	})
	if err != nil {
		return err
	}

	if opts.json {
		return writeJSONOutput(c, repos)
	}
	if len(repos) == 0 {
		printInfo(c.Out, "No repositories for %s", username)
		return nil
	}
	fmt.Fprintln(c.Out, renderRepoTable(repos, -1))
	printCacheStatus(c.Out, status, fmt.Sprintf("%d repositories", len(repos)))
	return nil
}

func (c *CLI) fetchRepos(ctx context.Context, q aggregator.RepoQuery) ([]aggregator.RepositorySummary, cache.Status, error) {
	agg, store, err := c.newAggregator(ctx, config.BackendFile)
	if err != nil {
		return nil, "", err
	}
	defer store.Close()

	prog := newProgress(loggerFromContext(ctx))
	type result struct {
		repos  []aggregator.RepositorySummary
		status cache.Status
	}
	res, err := withSpinner(c, ctx, "Fetching repositories", func() (result, error) {
		repos, status, err := agg.ListRepositories(ctx, q)
		return result{repos, status}, err
	})
	if err != nil {
		return nil, "", err
	}
	prog.done(fmt.Sprintf("Fetched %d repositories for %s", len(res.repos), q.Username))
	return res.repos, res.status, nil
}

// renderRepoTable draws repos as a table, highlighting row cursor (or none
// when cursor is negative).
func renderRepoTable(repos []aggregator.RepositorySummary, cursor int) string {
	rows := make([][]string, len(repos))
	for i, r := range repos {
		rows[i] = []string{
			r.FullName,
			deref(r.Language, "—"),
			strconv.Itoa(r.Stars),
			relativeTime(r.UpdatedAt),
			deref(r.LiveURL, ""),
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Repository", "Lang", "★", "Updated", "Live").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == cursor:
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			case col == 2:
				return StyleNumber
			case col == 4:
				return lipgloss.NewStyle().Foreground(colorBlue)
			case col == 3:
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func writeJSONOutput(c *CLI, v any) error {
	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
