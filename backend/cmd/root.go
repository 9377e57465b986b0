package cmd

import (
	"fmt"
	"log"

	"radbank/backend/config"
	"radbank/backend/utils"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "radbank",
	Short: "Radiology question bank server",
	Long:  "radbank serves the question bank, quiz sessions and progress dashboard API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("port", "", "Listen port (overrides SERVER_PORT)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads and validates the configuration, builds the logger and opens
// the database.
func setup(cmd *cobra.Command) (*config.Config, *log.Logger, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		cfg.ServerPort = p
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	logger := utils.InitLogger(utils.LoggerConfig{Format: cfg.LogFormat})

	db, err := utils.InitDB(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init database: %w", err)
	}
	return cfg, logger, db, nil
}
