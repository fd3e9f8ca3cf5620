package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the artifact table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s database\n", cfg.Database.Driver)
			return nil
		},
	}
}

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired artifacts once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)

			rep := newCleanupWorker(cfg, db, newStore(cfg)).Sweep(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Expired %s, deleted %s, failed %s\n",
				humanize.Comma(int64(rep.Expired)),
				humanize.Comma(int64(rep.Deleted)),
				humanize.Comma(int64(rep.Failed)))
			if rep.Failed > 0 {
				return fmt.Errorf("%d artifacts could not be deleted", rep.Failed)
			}
			return nil
		},
	}
}
