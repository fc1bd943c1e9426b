// Package cmd defines and implements the CLI commands for the harvester executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs the batch loop until
// a fatal error, the end of the id space, or a signal.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Walks the catalog from the stored checkpoint",
		Long: `Reads the checkpoint, then fetches the catalog in batches, publishing
board game ids and flushing the checkpoint on a fixed interval. The command
only stops on error, so it always exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := appInstance.NewWorker(ctx)
	if err != nil {
		return err
	}

	serverDone := make(chan struct{})
	if srv := appInstance.StatusServer(w); srv != nil {
		addr := appInstance.Config().Metrics.Addr
		go func() {
			defer close(serverDone)
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				logger.Error("status server error", zap.Error(err))
			}
		}()
	} else {
		close(serverDone)
	}

	runErr := w.Run(ctx)
	stop()
	<-serverDone

	switch {
	case errors.Is(runErr, crawler.ErrEndOfSpace):
		logger.Warn("reached the end of the catalog id space", zap.Error(runErr))
	case errors.Is(runErr, context.Canceled):
		logger.Info("crawl interrupted", zap.Any("progress", w.Snapshot()))
	}
	if runErr == nil {
		runErr = errors.New("crawl loop returned without an error")
	}
	return fmt.Errorf("crawl: %w", runErr)
}
