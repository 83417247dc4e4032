package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/wikibot/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the cache up to date until interrupted",
	Long: "Starts the repository with the configured automatic update and refresh " +
		"schedule and runs until SIGINT or SIGTERM, then persists the cache.",
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, longRunning)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := a.close(); err == nil {
			err = cErr
		}
	}()

	a.log.Info("Watching wiki",
		logger.String("host", a.cfg.HostURL),
		logger.Bool("auto_update", a.cfg.AutomaticallyUpdateCache),
		logger.String("schedule", a.cfg.RefreshSchedule))

	<-ctx.Done()
	a.log.Info("Shutting down")
	return nil
}
