package cmd

import (
	"radbank/backend/utils"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := utils.Migrate(db); err != nil {
			return err
		}
		logger.Println("schema up to date")
		return nil
	},
}
