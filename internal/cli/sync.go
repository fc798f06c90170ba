package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willrad86/auditproof-mileage/internal/config"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push completed trips and vehicles to the cloud store",
		Long: `Run one reconciliation pass. Completed trips that have not yet
been pushed, and all vehicles, are upserted into the configured MongoDB
deployment. Records that fail stay queued for the next pass.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.MongoURI == "" {
				return fmt.Errorf("MONGO_URI is not configured")
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			svc, err := a.newSync(ctx)
			if err != nil {
				return err
			}

			res, err := svc.SyncAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("synced %d, failed %d\n", res.Synced, res.Failed)
			return nil
		},
	}
}
