package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/wikibot/internal/markup"
)

var (
	convertBaseURL  string
	convertSections bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert wiki markup to chat Markdown",
	Long:  "Reads MoinMoin markup from a file, or stdin when no file is given, and prints the converted Markdown.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertBaseURL, "base-url", "", "URL relative links are resolved against")
	convertCmd.Flags().BoolVar(&convertSections, "sections", false, "Clean up the page and print it section by section")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	out := cmd.OutOrStdout()
	if !convertSections {
		converter, err := markup.NewConverter(convertBaseURL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, converter.Convert(string(data)))
		return err
	}

	parser, err := markup.NewParser(convertBaseURL)
	if err != nil {
		return err
	}
	var sb strings.Builder
	for i, s := range parser.Parse(string(data), true).All() {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "== %s ==\n%s\n", s.Title, s.Body)
	}
	_, err = io.WriteString(out, sb.String())
	return err
}
