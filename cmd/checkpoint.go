package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/app"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
)

func newCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspects or overrides the stored crawl cursor",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Prints the stored cursor",
		Args:  cobra.NoArgs,
		RunE:  runCheckpointGet,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <id>",
		Short: "Overwrites the stored cursor with <id>",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheckpointSet,
	})
	return cmd
}

func runCheckpointGet(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cursor, err := appInstance.CheckpointStore().Get(cmd.Context())
	if err != nil {
		return fmt.Errorf("read checkpoint: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), cursor.String())
	return err
}

func runCheckpointSet(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	value, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || value < 0 {
		return fmt.Errorf("%w: %q is not a non-negative id", crawler.ErrCheckpointInvalid, args[0])
	}

	ctx := cmd.Context()
	store := appInstance.CheckpointStore()
	if ensurer, ok := store.(app.SchemaEnsurer); ok {
		if err := ensurer.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	cursor := crawler.Cursor(value)
	if err := store.Put(ctx, cursor); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	appInstance.Logger().Info("checkpoint overwritten", zap.Int64("cursor", value))
	_, err = fmt.Fprintln(cmd.OutOrStdout(), cursor.String())
	return err
}
