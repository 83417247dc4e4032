package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonathan/wikibot/internal/reply"
)

const summaryPreviewLength = 60

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search the wiki's lookup index",
	Long:  "Finds every page whose name matches all query terms, fetches them and prints a summary of each.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the chat embed as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(cmd.Context(), oneShot)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := a.close(); err == nil {
			err = cErr
		}
	}()

	query := strings.Join(args, " ")
	items := a.repo.SearchForItems(cmd.Context(), query)

	if searchJSON {
		return writeJSON(cmd.OutOrStdout(), reply.BuildSearchMessage(query, items, a.parser))
	}

	if len(items) == 0 {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "No results found for %q.\n", query)
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Name", "URL", "Summary"})
	for i, item := range items {
		summary := strings.Join(strings.Fields(a.parser.ParseSummary(item.RawText, false)), " ")
		t.AppendRow(table.Row{
			i + 1,
			item.Name,
			item.URI,
			reply.LimitLength(summary, summaryPreviewLength, reply.DefaultSuffix),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d items", len(items))})
	t.Render()
	return nil
}
