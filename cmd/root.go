package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/api"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/app"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/config"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/id/uuid"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/logging"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/worker"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a fake app during tests.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() config.Config
	CheckpointStore() crawler.CheckpointStore
	NewWorker(ctx context.Context) (*worker.Worker, error)
	StatusServer(progress api.ProgressSource) *api.Server
}

// newApp is the application factory. It's a variable so tests can
// replace it.
var newApp = func(ctx context.Context, path string) (App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Config{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	a, err := app.New(ctx, cfg, uuid.New(), logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// session carries the App built by the pre-run hook back to execute so it is
// closed even when the command fails.
type session struct {
	app App
}

// newRootCmd creates and configures the root command.
func newRootCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Walks the BoardGameGeek catalog and queues every board game id.",
		Long: `harvester scans the BoardGameGeek item id space in fixed-size batches,
publishes the ids of items classified as board games to a work queue, and
periodically persists its position so an interrupted run resumes where it
left off.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs before every subcommand; builds and injects the application.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			sess.app = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, optional)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newCheckpointCmd())

	return cmd
}

// execute runs the command tree with args and always closes the App.
func execute(ctx context.Context, args []string, out io.Writer) error {
	sess := &session{}
	root := newRootCmd(sess)
	root.SetArgs(args)
	root.SetOut(out)
	err := root.ExecuteContext(ctx)
	if sess.app != nil {
		sess.app.Close()
	}
	return err
}

// Execute is the main entry point. Any command error is fatal.
func Execute() {
	bootstrap, err := logging.New(logging.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(bootstrap)

	if err := execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		zap.L().Fatal("command execution failed", zap.Error(err))
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
