package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gundaminthecode/showcase/internal/config"
	"github.com/gundaminthecode/showcase/pkg/aggregator"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// RepoBrowserModel - Interactive repository selection
// =============================================================================

// RepoBrowserModel is the bubbletea model for picking one repository.
type RepoBrowserModel struct {
	Repos    []aggregator.RepositorySummary
	Cursor   int
	Offset   int
	Height   int
	Selected *aggregator.RepositorySummary
}

// NewRepoBrowserModel creates a browser over repos.
func NewRepoBrowserModel(repos []aggregator.RepositorySummary) RepoBrowserModel {
	return RepoBrowserModel{Repos: repos, Height: 15}
}

func (m RepoBrowserModel) Init() tea.Cmd {
	return nil
}

func (m RepoBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Repos)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "end", "G":
			m.Cursor = max(len(m.Repos)-1, 0)
			m.Offset = max(m.Cursor-m.Height+1, 0)
		case "enter":
			if len(m.Repos) == 0 {
				return m, nil
			}
			r := m.Repos[m.Cursor]
			m.Selected = &r
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		// title, help line, table borders and footer
		m.Height = max(msg.Height-8, 5)
		if m.Cursor >= m.Offset+m.Height {
			m.Offset = m.Cursor - m.Height + 1
		}
	}
	return m, nil
}

func (m RepoBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Repository"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Repos))
	b.WriteString(renderRepoTable(m.Repos[m.Offset:end], m.Cursor-m.Offset))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Repos))))

	return b.String()
}

// =============================================================================
// browse command
// =============================================================================

func (c *CLI) browseCommand() *cobra.Command {
	var opts reposOpts

	cmd := &cobra.Command{
		Use:   "browse <username>",
		Short: "Pick a repository interactively and show its details",
		Args:  requireArgs(1, "a username"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBrowse(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.includeForks, "forks", false, "include forks")
	cmd.Flags().BoolVar(&opts.includeArchived, "archived", false, "include archived repositories")
	cmd.Flags().StringVarP(&opts.sort, "sort", "s", aggregator.SortUpdated, "sort order")

	return cmd
}

func (c *CLI) runBrowse(ctx context.Context, username string, opts reposOpts) error {
	repos, _, err := c.fetchRepos(ctx, aggregator.RepoQuery{
		Username:        username,
		IncludeForks:    opts.includeForks,
		IncludeArchived: opts.includeArchived,
		Sort:            opts.sort,
	})
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		printInfo(c.Out, "No repositories for %s", username)
		return nil
	}

	final, err := tea.NewProgram(NewRepoBrowserModel(repos), tea.WithContext(ctx), tea.WithOutput(c.Err)).Run()
	if err != nil {
		return err
	}
	m, ok := final.(RepoBrowserModel)
	if !ok || m.Selected == nil {
		return nil
	}
	return c.showRepository(ctx, *m.Selected)
}

// showRepository prints a repository's details and its last month of commits.
func (c *CLI) showRepository(ctx context.Context, r aggregator.RepositorySummary) error {
	fmt.Fprintln(c.Out, StyleTitle.Render(r.FullName))
	if r.Description != nil {
		fmt.Fprintln(c.Out, *r.Description)
	}
	printKeyValue(c.Out, "Language", deref(r.Language, "—"))
	printKeyValue(c.Out, "Stars", fmt.Sprint(r.Stars))
	printKeyValue(c.Out, "Forks", fmt.Sprint(r.Forks))
	printKeyValue(c.Out, "Updated", relativeTime(r.UpdatedAt))
	if r.License != nil {
		printKeyValue(c.Out, "License", r.License.Name)
	}
	if len(r.Topics) > 0 {
		printKeyValue(c.Out, "Topics", strings.Join(r.Topics, ", "))
	}
	printKeyValue(c.Out, "Repository", r.HTMLURL)
	if r.LiveURL != nil {
		printLink(c.Out, *r.LiveURL)
	}

	agg, store, err := c.newAggregator(ctx, config.BackendFile)
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := commitQuery(r.FullName, "", defaultCommitDays, time.Now())
	if err != nil {
		return err
	}
	act, _, err := agg.Activity(ctx, q)
	if err != nil {
		printWarning(c.Out, "commits unavailable: %s", err)
		return nil
	}
	fmt.Fprintln(c.Out)
	renderActivity(c, act)
	return nil
}
