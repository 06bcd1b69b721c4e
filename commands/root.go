package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrewpaige1/stratdesk-api/config"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:           "stratdesk",
		Short:         "Trading strategy desk API",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			logger, err = config.NewLogger(cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.AddCommand(serveCmd(), migrateCmd(), seedCmd(), tokenCmd())
	return root.Execute()
}

// openDB connects and migrates.
func openDB() (*gorm.DB, error) {
	db, err := config.Connect(cfg.DBURL)
	if err != nil {
		return nil, err
	}
	if err := config.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
