package mongodb

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/config"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

const (
	usersCollection      = "users"
	scanEventsCollection = "scan_events"
)

func NewClient(ctx context.Context, uri string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	return client, nil
}

// NewStore connects to MongoDB and ensures the indexes every repository relies on.
func NewStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	client, err := NewClient(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDB)

	motorcycles := NewMotorcycleRepository(db.Collection(cfg.MongoCollection))
	users := NewUserRepository(db.Collection(usersCollection))
	scans := NewScanEventRepository(db.Collection(scanEventsCollection))

	for _, ensure := range []func(context.Context) error{
		motorcycles.EnsureIndexes,
		users.EnsureIndexes,
		scans.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
	}
	log.Printf("MongoDB: connected to database '%s', motorcycles in '%s'", cfg.MongoDB, cfg.MongoCollection)

	return &repository.Store{
		Users:       users,
		Motorcycles: motorcycles,
		ScanEvents:  scans,
		Close: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	}, nil
}

func isDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// uniqueIndex builds an ascending unique index on a single field.
func uniqueIndex(field string) mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	}
}
