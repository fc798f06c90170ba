package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willrad86/auditproof-mileage/internal/config"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Backfill addresses recorded offline",
		Long: `Re-attempt the reverse geocoding lookups that fell back to raw
coordinates while the device was offline. Trips whose addresses all resolve
are cleared from the lookup queue.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.Load())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.resolver.ResolvePending(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("trips needing lookup: %d, resolved %d, failed %d\n",
				res.Total, res.Resolved, res.Failed)
			return nil
		},
	}
}
