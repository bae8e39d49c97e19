package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"eventapi/db"
)

func ensureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the Mongo indexes the API relies on and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			mg, err := db.Connect(ctx, cfg.MongoURI)
			if err != nil {
				return err
			}
			defer func() { _ = mg.Disconnect(context.Background()) }()
			return db.EnsureIndexes(ctx, mg.Database(cfg.MongoDB))
		},
	}
}
