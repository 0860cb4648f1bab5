package main

import (
	"github.com/spf13/cobra"

	"github.com/jobayadurrasid/Smart-Campus/pkg/database"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	var rollback int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations, or roll back with --rollback N",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if rollback > 0 {
				return database.RollbackMigrations(a.sqlDB, rollback, a.logger)
			}
			return database.RunMigrations(a.sqlDB, a.logger)
		},
	}
	cmd.Flags().IntVar(&rollback, "rollback", 0, "Number of migration steps to roll back")
	return cmd
}
