package cli

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/willrad86/auditproof-mileage/internal/autodetect"
	"github.com/willrad86/auditproof-mileage/internal/config"
	"github.com/willrad86/auditproof-mileage/internal/database"
	"github.com/willrad86/auditproof-mileage/internal/geocode"
	"github.com/willrad86/auditproof-mileage/internal/location"
	"github.com/willrad86/auditproof-mileage/internal/report"
	"github.com/willrad86/auditproof-mileage/internal/repository"
	syncsvc "github.com/willrad86/auditproof-mileage/internal/sync"
	"github.com/willrad86/auditproof-mileage/internal/trip"
)

// app holds the wired-up services a command runs against.
type app struct {
	cfg *config.Config
	db  *sql.DB

	trips    *repository.TripRepository
	vehicles *repository.VehicleRepository
	reports  *repository.ReportRepository
	settings *repository.SettingsRepository

	provider location.Provider
	resolver *geocode.Service
	manager  *trip.Manager
	engine   *autodetect.Engine
	reporter *report.Service

	closers []func()
}

// newApp opens the store, runs migrations and constructs the service graph.
func newApp(cfg *config.Config) (*app, error) {
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		return nil, err
	}
	db := database.GetDB()
	if err := database.NewMigrationManager(db).RunMigrations(); err != nil {
		database.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		db:       db,
		trips:    repository.NewTripRepository(db),
		vehicles: repository.NewVehicleRepository(db),
		reports:  repository.NewReportRepository(db),
		settings: repository.NewSettingsRepository(db),
	}
	a.closers = append(a.closers, func() { database.Close() })

	perms := location.Permissions{
		Foreground: cfg.ForegroundLocation,
		Background: cfg.BackgroundLocation,
	}
	if cfg.MQTTBroker != "" {
		mqtt, err := location.NewMQTTProvider(cfg.MQTTBroker, cfg.MQTTTopic, "miletrack", perms)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to start position feed: %w", err)
		}
		a.provider = mqtt
		a.closers = append(a.closers, mqtt.Close)
	} else {
		log.Info("[App] no MQTT broker configured, positions arrive via the API only")
		a.provider = location.NewSimulatedProvider(perms)
	}

	geocoder := geocode.NewHTTPGeocoder(cfg.GeocoderURL)
	a.resolver = geocode.NewService(geocoder, a.trips)
	a.manager = trip.NewManager(a.trips, a.vehicles, a.settings, a.provider, a.resolver)
	a.engine = autodetect.NewEngine(autodetect.DefaultConfig(), a.trips, a.vehicles, a.provider, a.resolver)
	a.reporter = report.NewService(a.trips, a.vehicles, a.reports, a.settings)

	return a, nil
}

// newSync connects the remote store. Returns nil without error when no
// remote is configured.
func (a *app) newSync(ctx context.Context) (*syncsvc.Service, error) {
	if a.cfg.MongoURI == "" {
		return nil, nil
	}
	remote, err := syncsvc.NewMongoRemote(ctx, a.cfg.MongoURI, a.cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { remote.Close(context.Background()) })
	return syncsvc.NewService(a.trips, a.vehicles, remote), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
