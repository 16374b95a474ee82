package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/nounverb/internal/discovery"
	"github.com/aidanlsb/nounverb/internal/output"
	"github.com/aidanlsb/nounverb/internal/ui"
)

// searchResults renders ranked commands as a table.
type searchResults []discovery.Result

func (s searchResults) Text() string {
	if len(s) == 0 {
		return ui.Hint("No commands found")
	}
	t := ui.NewTable(ui.NewDisplayContext(),
		ui.Column{Header: "COMMAND"},
		ui.Column{Header: "SCORE", Align: ui.AlignRight},
		ui.Column{Header: "MATCH"},
		ui.Column{Header: "ABOUT", Flex: true},
	)
	for _, r := range s {
		t.AddRow(ui.CommandName(r.Name), strconv.FormatFloat(r.Score, 'f', 1, 64), string(r.MatchType), r.About)
	}
	return t.Render()
}

func (r *runner) searchCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search [keyword...]",
		Short: "Find commands by name, description or category",
		Long: `Search ranks every registered command against a keyword.

Exact names rank first, then prefixes, then substrings of the name, the
description and the noun. Without a keyword every command is listed.
When nothing matches, the nearest commands are shown instead.`,
		Example: `  nv search status
  nv search "restart service"
  nv search --json config`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			keyword := strings.Join(args, " ")

			results, err := r.rt.Search.Search(keyword)
			if err != nil {
				return r.fail(err, "search", nil)
			}

			var warnings []output.Warning
			if len(results) == 0 && keyword != "" {
				n := limit
				if n <= 0 {
					n = r.rt.Config.Search.SuggestLimit
				}
				results, err = r.rt.Search.Suggest(keyword, n)
				if err != nil {
					return r.fail(err, "search", nil)
				}
				if len(results) > 0 {
					warnings = append(warnings, output.Warning{
						Code:    WarnSuggestionsOnly,
						Message: "no command matched " + strconv.Quote(keyword) + "; showing the nearest commands",
					})
				}
			}
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}
			return r.emit("search", searchResults(results), time.Since(start), warnings...)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (0 for all)")
	return cmd
}
