package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gundaminthecode/showcase/pkg/integrations/github"
	"github.com/gundaminthecode/showcase/pkg/probe"
)

type probeOpts struct {
	homepage string
	urls     bool
}

func (c *CLI) probeCommand() *cobra.Command {
	var opts probeOpts

	cmd := &cobra.Command{
		Use:   "probe <owner/repo> | --urls <url>...",
		Short: "Check which live-site candidates answer",
		Long: `Check a repository's live-site candidates: its homepage (when given with
--homepage) and its GitHub Pages address. With --urls, probe the given URLs
instead. A site is live when HEAD, or failing that GET, returns 2xx or 3xx.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidates := args
			if !opts.urls {
				if len(args) != 1 {
					return fmt.Errorf("expected owner/repo, got %d arguments", len(args))
				}
				owner, repo, err := github.ParseRepoRef(args[0])
				if err != nil {
					return err
				}
				candidates = probe.Candidates(opts.homepage, owner, repo)
			}
			return c.runProbe(cmd.Context(), candidates)
		},
	}

	cmd.Flags().StringVar(&opts.homepage, "homepage", "", "declared homepage to try first")
	cmd.Flags().BoolVar(&opts.urls, "urls", false, "treat arguments as URLs")

	return cmd
}

func (c *CLI) runProbe(ctx context.Context, candidates []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	p := probe.New(probe.WithTimeout(cfg.Probe.Timeout))

	first := ""
	for _, u := range candidates {
		if p.IsLive(ctx, u) {
			printSuccess(c.Out, "%s", u)
			if first == "" {
				first = u
			}
		} else {
			printError(c.Out, "%s", StyleDim.Render(u))
		}
	}
	if first == "" {
		printWarning(c.Out, "no live site")
		return nil
	}
	printLink(c.Out, first)
	return nil
}
