package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/lexipack/internal/app"
	"github.com/at-ishikawa/lexipack/internal/datasync"
)

func newStateCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "state",
		Short: "Move installed pack records and the profile between YAML files and the database",
	}
	command.AddCommand(
		newStateSyncCommand("import", "Copy the YAML state files into the database", false),
		newStateSyncCommand("export", "Copy the database state into the YAML files", true),
	)
	return command
}

func newStateSyncCommand(use, short string, fromDatabase bool) *cobra.Command {
	var opts datasync.SyncOptions
	command := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig > %w", err)
			}
			ctx := cmd.Context()
			stores, err := app.OpenStateStores(ctx, cfg)
			if err != nil {
				return fmt.Errorf("app.OpenStateStores > %w", err)
			}
			defer func() {
				_ = stores.Close()
			}()

			from, to := stores.YAML, stores.Database
			if fromDatabase {
				from, to = to, from
			}
			w := cmd.OutOrStdout()
			result, err := datasync.NewSyncer(from, to, w).Sync(ctx, opts)
			if err != nil {
				return fmt.Errorf("Syncer.Sync > %w", err)
			}

			if opts.DryRun {
				fmt.Fprintln(w, "dry run: nothing was written")
			}
			tbl := newTable(w, "Record", "New", "Updated", "Skipped")
			tbl.AddRow("packs", result.PacksNew, result.PacksUpdated, result.PacksSkipped)
			tbl.AddRow("profile", result.ProfileNew, result.ProfileUpdated, result.ProfileSkipped)
			tbl.Print()
			return nil
		},
	}
	flags := command.Flags()
	flags.BoolVar(&opts.DryRun, "dry-run", false, "report what would be copied without writing")
	flags.BoolVar(&opts.UpdateExisting, "update-existing", false, "overwrite records that already exist in the destination")
	return command
}
