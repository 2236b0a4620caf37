package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/VantageDataChat/GoPPTHTML/imagestore"
)

func newPruneCmd(a *app) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored images older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Images.Backend != "sqlite" {
				return fmt.Errorf("prune needs the sqlite image backend, configured backend is %q", a.cfg.Images.Backend)
			}
			if olderThan < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}
			ctx := a.context(cmd)
			store, err := imagestore.OpenSQLite(ctx, a.cfg.Images.SQLitePath)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Prune(ctx, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			zerolog.Ctx(ctx).Info().Int64("removed", n).Dur("older_than", olderThan).Msg("Images pruned")
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d images\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Remove images stored longer ago than this")
	return cmd
}
