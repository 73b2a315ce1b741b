package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recordshare/internal/platform/config"
	"recordshare/internal/platform/database"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == config.DriverMemory {
				return fmt.Errorf("driver %q has no schema; set database.driver", cfg.Database.Driver)
			}

			ctx := cmd.Context()
			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			if dryRun {
				pending, err := database.Pending(ctx, db, cfg.Database.Driver)
				if err != nil {
					return err
				}
				for _, name := range pending {
					fmt.Fprintf(out, "pending %s\n", name)
				}
				return nil
			}

			applied, err := database.Migrate(ctx, db, cfg.Database.Driver)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema is up to date")
			}
			for _, name := range applied {
				fmt.Fprintf(out, "applied %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending migrations without applying them")
	return cmd
}
