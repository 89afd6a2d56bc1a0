package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gundaminthecode/showcase/internal/config"
	"github.com/gundaminthecode/showcase/pkg/aggregator"
	"github.com/gundaminthecode/showcase/pkg/errors"
	"github.com/gundaminthecode/showcase/pkg/integrations/github"
)

type docOpts struct {
	json  bool
	paths bool
}

func (c *CLI) docCommand() *cobra.Command {
	var opts docOpts

	cmd := &cobra.Command{
		Use:   "doc <progress|case-study> <owner/repo>",
		Short: "Fetch a repository's progress notes or case study",
		Long: `Fetch a repository document, trying each well-known path in order.

Progress notes are optional: when none exists the command succeeds with no
output. A missing case study is an error.`,
		Args: requireArgs(2, "a document kind and owner/repo"),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return []string{string(aggregator.DocumentProgress), string(aggregator.DocumentCaseStudy)}, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDoc(cmd.Context(), args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "print the API payload as JSON")
	cmd.Flags().BoolVar(&opts.paths, "paths", false, "list the candidate paths instead of fetching")

	return cmd
}

func (c *CLI) runDoc(ctx context.Context, rawKind, ref string, opts docOpts) error {
	kind, err := aggregator.ParseDocumentKind(rawKind)
	if err != nil {
		return err
	}
	owner, repo, err := github.ParseRepoRef(ref)
	if err != nil {
		return err
	}

	agg, store, err := c.newAggregator(ctx, config.BackendFile)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.paths {
		for _, p := range agg.DocumentPaths(kind) {
			fmt.Fprintln(c.Out, p)
		}
		return nil
	}

	res, status, err := agg.FetchDocument(ctx, aggregator.DocumentQuery{Kind: kind, Owner: owner, Repo: repo})
	if err != nil {
		return err
	}
	if !res.Found() && kind.Required() {
		return errors.New(errors.ErrCodeNotFound, "no %s document in %s/%s", kind, owner, repo)
	}
	if opts.json {
		return writeJSONOutput(c, res.Document)
	}
	if !res.Found() {
		printInfo(c.Out, "No %s document in %s/%s", kind, owner, repo)
		return nil
	}

	fmt.Fprintln(c.Out, StyleTitle.Render(*res.Document.Path))
	if len(res.Document.FrontMatter) > 0 {
		keys := make([]string, 0, len(res.Document.FrontMatter))
		for k := range res.Document.FrontMatter {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			printKeyValue(c.Out, k, fmt.Sprint(res.Document.FrontMatter[k]))
		}
		fmt.Fprintln(c.Out)
	}
	fmt.Fprintln(c.Out, res.Document.Body)
	printCacheStatus(c.Out, status, string(kind))
	return nil
}
