package sync

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/willrad86/auditproof-mileage/internal/models"
)

// RemoteStore is the cloud side of reconciliation. Writes must be
// idempotent: pushing the same record twice leaves one copy remotely.
type RemoteStore interface {
	// Ping verifies the remote is reachable before any write is attempted.
	Ping(ctx context.Context) error
	PutTrip(ctx context.Context, trip *models.Trip) error
	PutVehicle(ctx context.Context, vehicle *models.Vehicle) error
}

// MongoRemote stores records in MongoDB collections, keyed by the local
// record id so repeated pushes replace rather than duplicate.
type MongoRemote struct {
	client   *mongo.Client
	trips    *mongo.Collection
	vehicles *mongo.Collection
}

// NewMongoRemote connects to the given MongoDB deployment and binds the
// trip and vehicle collections of database name.
func NewMongoRemote(ctx context.Context, uri, name string) (*MongoRemote, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to remote store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to reach remote store: %w", err)
	}

	db := client.Database(name)
	return &MongoRemote{
		client:   client,
		trips:    db.Collection("trips"),
		vehicles: db.Collection("vehicles"),
	}, nil
}

func (m *MongoRemote) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRemote) PutTrip(ctx context.Context, trip *models.Trip) error {
	doc := bson.M{
		"_id":             trip.ID,
		"vehicle_id":      trip.VehicleID,
		"start_time":      trip.StartTime,
		"end_time":        trip.EndTime,
		"start_lat":       trip.StartLat,
		"start_lon":       trip.StartLon,
		"end_lat":         trip.EndLat,
		"end_lon":         trip.EndLon,
		"distance_miles":  trip.DistanceMiles,
		"distance_km":     trip.DistanceKm,
		"points":          trip.Points,
		"purpose":         trip.Purpose,
		"notes":           trip.Notes,
		"start_address":   trip.StartAddress,
		"end_address":     trip.EndAddress,
		"hash":            trip.Hash,
		"status":          trip.Status,
		"classification":  trip.Classification,
		"auto_detected":   trip.AutoDetected,
		"needs_lookup":    trip.NeedsLookup,
		"synced_at":       time.Now().UTC(),
	}
	_, err := m.trips.ReplaceOne(ctx, bson.M{"_id": trip.ID}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to push trip %s: %w", trip.ID, err)
	}
	return nil
}

func (m *MongoRemote) PutVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	doc := bson.M{
		"_id":              vehicle.ID,
		"make":             vehicle.Make,
		"model":            vehicle.Model,
		"year":             vehicle.Year,
		"plate":            vehicle.Plate,
		"month_year":       vehicle.MonthYear,
		"verified":         vehicle.Verified,
		"start_photo_hash": vehicle.StartPhotoHash,
		"end_photo_hash":   vehicle.EndPhotoHash,
		"synced_at":        time.Now().UTC(),
	}
	_, err := m.vehicles.ReplaceOne(ctx, bson.M{"_id": vehicle.ID}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to push vehicle %s: %w", vehicle.ID, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (m *MongoRemote) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
