package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/wikibot/internal/reply"
	"github.com/jonathan/wikibot/internal/rendering"
)

var (
	getRaw  bool
	getHTML bool
	getJSON bool
)

var getCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a wiki page",
	Long:  "Fetches a page (from the cache when fresh) and prints it as chat Markdown, raw wiki source, an HTML preview or an embed JSON message.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getRaw, "raw", false, "Print the raw wiki source")
	getCmd.Flags().BoolVar(&getHTML, "html", false, "Print an HTML preview of the converted page")
	getCmd.Flags().BoolVar(&getJSON, "json", false, "Print the chat embed as JSON")
	getCmd.MarkFlagsMutuallyExclusive("raw", "html", "json")

	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(cmd.Context(), oneShot)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := a.close(); err == nil {
			err = cErr
		}
	}()

	name := strings.Join(args, " ")
	item, err := a.repo.GetItem(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("failed to get %q: %w", name, err)
	}

	out := cmd.OutOrStdout()
	switch {
	case getRaw:
		_, err = fmt.Fprintln(out, item.RawText)
		return err
	case getHTML:
		page, err := rendering.RenderPage(item.URI, a.parser.Parse(item.RawText, true).All())
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, page)
		return err
	}

	msg := reply.BuildItemMessage(item, a.parser)
	if msg == nil {
		return fmt.Errorf("page %q has no content to show", item.Name)
	}
	if getJSON {
		return writeJSON(out, msg)
	}
	return writeMessage(out, msg)
}

// writeMessage prints a message as plain Markdown.
func writeMessage(w io.Writer, msg *reply.Message) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", msg.Title)
	if msg.URL != "" {
		fmt.Fprintf(&sb, "<%s>\n", msg.URL)
	}
	if msg.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", msg.Description)
	}
	for _, f := range msg.Fields {
		fmt.Fprintf(&sb, "\n## %s\n%s\n", f.Name, f.Value)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
