package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonathan/wikibot/internal/logger"
	"github.com/jonathan/wikibot/internal/wiki"
)

var cachePretty bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and move the page cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached pages",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

var cacheExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write the cache to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheExport,
}

var cacheImportCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Replace the cache with a JSON cache file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheImport,
}

func init() {
	cacheExportCmd.Flags().BoolVar(&cachePretty, "pretty", false, "Indent the JSON output")

	cacheCmd.AddCommand(cacheListCmd, cacheExportCmd, cacheImportCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openCache loads the cache store without touching the network.
func openCache(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	opts := cfg.RepositoryOptions()
	opts.UpdateLookups = false
	opts.AutoUpdate = false
	opts.RefreshSchedule = ""

	repo, err := wiki.New(opts, wiki.WithStore(store), wiki.WithLogger(log))
	if err != nil {
		a.closeDB()
		return nil, err
	}
	if err := repo.Start(ctx); err != nil {
		a.closeDB()
		return nil, err
	}
	a.repo = repo
	return a, nil
}

func runCacheList(cmd *cobra.Command, _ []string) (err error) {
	a, err := openCache(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cErr := a.close(); err == nil {
			err = cErr
		}
	}()

	snapshot := a.repo.Cache().Snapshot()

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "URL", "Categories", "Last Update"})
	for _, item := range snapshot.Items {
		t.AppendRow(table.Row{
			item.Name,
			item.URI,
			strings.Join(item.Categories, ", "),
			item.LastUpdate.Format(time.RFC3339),
		})
	}
	lastUpdate := "never"
	if !snapshot.LastUpdate.IsZero() {
		lastUpdate = snapshot.LastUpdate.Format(time.RFC3339)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d items", len(snapshot.Items)), "", "", lastUpdate})
	t.Render()
	return nil
}

func runCacheExport(cmd *cobra.Command, args []string) (err error) {
	a, err := openCache(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cErr := a.close(); err == nil {
			err = cErr
		}
	}()

	if err := a.repo.Export(args[0], cachePretty || a.cfg.PrettyExport); err != nil {
		return fmt.Errorf("failed to export cache: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items to %s\n", a.repo.Cache().Count(), args[0])
	return err
}

func runCacheImport(cmd *cobra.Command, args []string) (err error) {
	a, err := openCache(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cErr := a.close(); err == nil {
			err = cErr
		}
	}()

	if err := a.repo.Import(args[0]); err != nil {
		return fmt.Errorf("failed to import cache: %w", err)
	}
	if err := a.repo.Save(cmd.Context()); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cache now holds %d items\n", a.repo.Cache().Count())
	return err
}
