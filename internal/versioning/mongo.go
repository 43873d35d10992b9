package versioning

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CountersCollection holds one counter document per model name.
const CountersCollection = "model_versions"

// MongoSequence keeps per-model counters in a MongoDB collection. Each
// increment is a single atomic findAndModify with upsert.
type MongoSequence struct {
	coll *mongo.Collection
}

// NewMongoSequence creates a sequencer on coll.
func NewMongoSequence(coll *mongo.Collection) *MongoSequence {
	return &MongoSequence{coll: coll}
}

type counter struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}

func (s *MongoSequence) Next(ctx context.Context, modelName string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counter
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: modelName}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("failed to increment version counter: %w", err)
	}
	return c.Value, nil
}
