package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds runtime settings. Values come from the environment, with a
// .env file loaded first when present.
type Config struct {
	Port   string
	DBPath string

	JWTSecret string

	// GeocoderURL is the Nominatim-compatible endpoint for address lookups.
	GeocoderURL string

	// MongoURI and MongoDatabase locate the cloud store for reconciliation.
	// Sync commands fail fast when the URI is empty.
	MongoURI      string
	MongoDatabase string

	// MQTTBroker and MQTTTopic select the live position feed. When the
	// broker is empty the server runs without a feed and trips are fed
	// through the API only.
	MQTTBroker string
	MQTTTopic  string

	// Granted location permissions, as the host platform reports them.
	ForegroundLocation bool
	BackgroundLocation bool
}

// Load reads configuration from .env and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("[Config] .env not loaded: %v", err)
	}

	return &Config{
		Port:               getEnv("PORT", ":8080"),
		DBPath:             getEnv("DB_PATH", "./data/mileage.db"),
		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		GeocoderURL:        getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDatabase:      getEnv("MONGO_DATABASE", "auditproof"),
		MQTTBroker:         os.Getenv("MQTT_BROKER"),
		MQTTTopic:          getEnv("MQTT_TOPIC", "vehicles/+/position"),
		ForegroundLocation: getEnvBool("FOREGROUND_LOCATION", true),
		BackgroundLocation: getEnvBool("BACKGROUND_LOCATION", true),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
