package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hmiyata/battrack/internal/domain/models"
)

// Repository defines the interface for weekly snapshot storage.
type Repository interface {
	SaveWeeklySnapshot(ctx context.Context, snapshot models.WeeklySnapshot) error
	LatestSnapshots(ctx context.Context, limit int64) ([]models.WeeklySnapshot, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "weekly_snapshots",
	}, nil
}

// SaveWeeklySnapshot archives one weekly KPI block.
func (r *MongoDBRepository) SaveWeeklySnapshot(ctx context.Context, snapshot models.WeeklySnapshot) error {
	collection := r.client.Database(r.dbName).Collection(r.collName)
	_, err := collection.InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to insert weekly snapshot: %w", err)
	}
	return nil
}

// LatestSnapshots returns up to limit snapshots, newest first.
func (r *MongoDBRepository) LatestSnapshots(ctx context.Context, limit int64) ([]models.WeeklySnapshot, error) {
	collection := r.client.Database(r.dbName).Collection(r.collName)

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var snapshots []models.WeeklySnapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode weekly snapshots: %w", err)
	}
	return snapshots, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
