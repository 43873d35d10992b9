package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sarinfer/internal/config"
	"sarinfer/internal/models"
	"sarinfer/internal/utils"
)

// MongoClient wraps the MongoDB connection and provides health checks
type MongoClient struct {
	client   *mongo.Client
	database *mongo.Database
	cfg      config.MongoConfig
}

// NewMongoClient connects to MongoDB and verifies the connection
func NewMongoClient(ctx context.Context, cfg config.MongoConfig) (*MongoClient, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI()).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB at %s:%s: %w", cfg.Host, cfg.Port, err)
	}

	return &MongoClient{
		client:   client,
		database: client.Database(cfg.Database),
		cfg:      cfg,
	}, nil
}

// Close disconnects from MongoDB
func (c *MongoClient) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Health returns the health status of MongoDB
func (c *MongoClient) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}

// Database returns the configured database
func (c *MongoClient) Database() *mongo.Database {
	return c.database
}

// MetadataCollection returns the model metadata collection
func (c *MongoClient) MetadataCollection() *mongo.Collection {
	return c.database.Collection(c.cfg.Collection)
}

// MongoStore is a MetadataStore backed by one MongoDB collection
type MongoStore struct {
	coll   *mongo.Collection
	logger *utils.Logger
}

// NewMongoStore creates a store on coll. Call EnsureIndexes once at
// startup so model_id uniqueness is enforced.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{
		coll:   coll,
		logger: utils.NewLogger("mongo-store"),
	}
}

// EnsureIndexes creates the unique model_id index and the model_name lookup
// index. It is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "model_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("model_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "model_name", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("model_name_created_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Add(ctx context.Context, m *models.ModelMetadata) (string, bool, error) {
	_, err := s.coll.InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			observe(opAdd, nil)
			s.logger.Info("Model already exists", "model_id", m.ModelID)
			return "", false, nil
		}
		observe(opAdd, err)
		return "", false, fmt.Errorf("failed to insert model metadata: %w", err)
	}
	observe(opAdd, nil)
	s.logger.Info("Model metadata added", "model_id", m.ModelID, "model_name", m.ModelName, "version", m.Version)
	return m.ModelID, true, nil
}

func (s *MongoStore) Get(ctx context.Context, modelID string) (*models.ModelMetadata, bool, error) {
	var m models.ModelMetadata
	err := s.coll.FindOne(ctx, bson.D{{Key: "model_id", Value: modelID}}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			observe(opGet, nil)
			return nil, false, nil
		}
		observe(opGet, err)
		return nil, false, fmt.Errorf("failed to get model metadata: %w", err)
	}
	observe(opGet, nil)
	return &m, true, nil
}

func (s *MongoStore) Update(ctx context.Context, modelID string, update models.MetadataUpdate) (int64, error) {
	fields := update.Fields(time.Now().UTC())
	set := make(bson.D, 0, len(fields))
	for _, k := range sortedKeys(fields) {
		set = append(set, bson.E{Key: k, Value: fields[k]})
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "model_id", Value: modelID}},
		bson.D{{Key: "$set", Value: set}},
	)
	observe(opUpdate, err)
	if err != nil {
		return 0, fmt.Errorf("failed to update model metadata: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) Delete(ctx context.Context, modelID string) (int64, error) {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "model_id", Value: modelID}})
	observe(opDelete, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete model metadata: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) List(ctx context.Context) ([]*models.ModelMetadata, error) {
	out, err := s.find(ctx, bson.D{}, options.Find())
	observe(opList, err)
	return out, err
}

func (s *MongoStore) FindByName(ctx context.Context, name string) ([]*models.ModelMetadata, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	out, err := s.find(ctx, bson.D{{Key: "model_name", Value: name}}, opts)
	observe(opFind, err)
	return out, err
}

func (s *MongoStore) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]*models.ModelMetadata, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list model metadata: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*models.ModelMetadata
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode model metadata: %w", err)
	}
	return out, nil
}
