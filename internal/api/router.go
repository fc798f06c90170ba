package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/willrad86/auditproof-mileage/internal/auth"
	"github.com/willrad86/auditproof-mileage/internal/autodetect"
	"github.com/willrad86/auditproof-mileage/internal/config"
	"github.com/willrad86/auditproof-mileage/internal/geocode"
	"github.com/willrad86/auditproof-mileage/internal/handler"
	"github.com/willrad86/auditproof-mileage/internal/middleware"
	"github.com/willrad86/auditproof-mileage/internal/report"
	"github.com/willrad86/auditproof-mileage/internal/repository"
	syncsvc "github.com/willrad86/auditproof-mileage/internal/sync"
	"github.com/willrad86/auditproof-mileage/internal/trip"
)

// Deps carries the constructed services the router exposes.
type Deps struct {
	Config *config.Config

	Trips    *repository.TripRepository
	Vehicles *repository.VehicleRepository
	Reports  *repository.ReportRepository
	Settings *repository.SettingsRepository

	Manager  *trip.Manager
	Engine   *autodetect.Engine
	Resolver *geocode.Service
	Reporter *report.Service

	// Sync is nil when no remote store is configured.
	Sync *syncsvc.Service
}

// SetupRouter builds the HTTP surface.
func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authSvc := auth.NewService(d.Config.JWTSecret, 24*time.Hour)

	authHandler := handler.NewAuthHandler(authSvc, d.Config.JWTSecret)
	vehicleHandler := handler.NewVehicleHandler(d.Vehicles)
	tripHandler := handler.NewTripHandler(d.Manager, d.Trips)
	reportHandler := handler.NewReportHandler(d.Reporter, d.Reports)
	syncHandler := handler.NewSyncHandler(d.Sync)
	geocodeHandler := handler.NewGeocodeHandler(d.Resolver)
	settingsHandler := handler.NewSettingsHandler(d.Settings)
	autodetectHandler := handler.NewAutoDetectHandler(d.Engine)

	api := r.Group("/api/v1")
	api.POST("/auth/token", authHandler.Token)

	api.Use(middleware.Auth(authSvc))
	{
		vehicles := api.Group("/vehicles")
		{
			vehicles.POST("", vehicleHandler.Create)
			vehicles.GET("", vehicleHandler.List)
			vehicles.GET("/:id", vehicleHandler.GetByID)
			vehicles.PUT("/:id", vehicleHandler.Update)
			vehicles.DELETE("/:id", vehicleHandler.Delete)
			vehicles.POST("/:id/odometer", vehicleHandler.AttachOdometerPhoto)
		}

		trips := api.Group("/trips")
		{
			trips.GET("", tripHandler.GetTrips)
			trips.POST("/start", tripHandler.Start)
			trips.GET("/:id", tripHandler.GetTripByID)
			trips.PUT("/:id", tripHandler.Annotate)
			trips.DELETE("/:id", tripHandler.Delete)
			trips.POST("/:id/stop", tripHandler.Stop)
			trips.POST("/:id/points", tripHandler.AddPoint)
			trips.PUT("/:id/classify", tripHandler.Classify)
		}

		reports := api.Group("/reports")
		{
			reports.POST("", reportHandler.Generate)
			reports.GET("", reportHandler.List)
			reports.POST("/verify", reportHandler.Verify)
			reports.GET("/:id", reportHandler.GetByID)
			reports.POST("/:id/export", reportHandler.Export)
			reports.GET("/:id/qr", reportHandler.SignatureQR)
		}

		// Upstream lookup providers throttle aggressively; keep resolve
		// bursts under their limits.
		api.POST("/geocode/resolve", middleware.RateLimit(10, time.Minute), geocodeHandler.ResolvePending)

		api.POST("/sync", syncHandler.SyncAll)
		api.POST("/sync/trips", syncHandler.SyncTrips)

		autodetectGroup := api.Group("/autodetect")
		{
			autodetectGroup.POST("/enable", autodetectHandler.Enable)
			autodetectGroup.POST("/disable", autodetectHandler.Disable)
			autodetectGroup.GET("/status", autodetectHandler.Status)
		}

		settings := api.Group("/settings")
		{
			settings.GET("/rate", settingsHandler.GetRate)
			settings.PUT("/rate", settingsHandler.SetRate)
		}
	}

	return r
}
