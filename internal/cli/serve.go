package cli

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/willrad86/auditproof-mileage/internal/api"
	"github.com/willrad86/auditproof-mileage/internal/config"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	AutoDetect bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tracking API server",
		Long: `Start the HTTP API. Trips can be driven manually through the
trip endpoints or detected automatically from the position feed when
--autodetect is set.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.AutoDetect, "autodetect", false, "enable trip auto-detection at startup")

	return cmd
}

func runServe(opts *ServeOptions) error {
	cfg := config.Load()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	syncSvc, err := a.newSync(ctx)
	if err != nil {
		// The server is useful without the remote; sync endpoints report
		// the outage instead.
		log.Warnf("[App] remote store unavailable: %v", err)
	}

	if opts.AutoDetect {
		if !a.engine.Enable(ctx) {
			log.Warn("[App] auto-detection not enabled, check permissions and registered vehicles")
		}
		defer a.engine.Disable(ctx)
	}

	router := api.SetupRouter(api.Deps{
		Config:   cfg,
		Trips:    a.trips,
		Vehicles: a.vehicles,
		Reports:  a.reports,
		Settings: a.settings,
		Manager:  a.manager,
		Engine:   a.engine,
		Resolver: a.resolver,
		Reporter: a.reporter,
		Sync:     syncSvc,
	})

	log.Infof("[App] server starting on %s", cfg.Port)
	return router.Run(cfg.Port)
}
