package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var refreshLookupsOnly bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the lookup index and the cache",
	Long:  "Rebuilds the lookup index from the wiki's category page, then downloads every expired page into the cache if the cache as a whole has expired.",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshLookupsOnly, "lookups-only", false, "Only rebuild the lookup index")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) (err error) {
	a, err := newApp(cmd.Context(), oneShot)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := a.close(); err == nil {
			err = cErr
		}
	}()

	ctx := cmd.Context()
	if !a.cfg.ShouldUpdateLookups() {
		if err := a.repo.RefreshLookupIndex(ctx); err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Lookup index: %d entries\n", a.repo.Lookups().Len())
	if refreshLookupsOnly {
		return nil
	}

	if err := a.repo.RefreshCache(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Cache: %d items, last update %s\n",
		a.repo.Cache().Count(), a.repo.Cache().LastUpdate().Format(time.RFC3339))
	return err
}
