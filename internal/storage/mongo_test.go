package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"sarinfer/internal/models"
	"sarinfer/internal/utils"
)

func metadataDoc(id, name string, created time.Time) bson.D {
	return bson.D{
		{Key: "model_id", Value: id},
		{Key: "model_name", Value: name},
		{Key: "version", Value: "v1"},
		{Key: "size", Value: 140.5},
		{Key: "location", Value: "/models/" + name},
		{Key: "load_status", Value: "unloaded"},
		{Key: "last_loaded", Value: nil},
		{Key: "created_at", Value: primitive.NewDateTimeFromTime(created)},
		{Key: "updated_at", Value: primitive.NewDateTimeFromTime(created)},
	}
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("add", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := NewMongoStore(mt.Coll)

		id, created, err := store.Add(ctx, newRecord(mt.T, "model-1", "llama_70b"))
		require.NoError(mt, err)
		assert.True(mt, created)
		assert.Equal(mt, "model-1", id)
	})

	mt.Run("add duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))
		store := NewMongoStore(mt.Coll)

		id, created, err := store.Add(ctx, newRecord(mt.T, "model-1", "llama_70b"))
		require.NoError(mt, err)
		assert.False(mt, created)
		assert.Empty(mt, id)
	})

	mt.Run("add backend failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    91,
			Message: "shutdown in progress",
		}))
		store := NewMongoStore(mt.Coll)

		_, created, err := store.Add(ctx, newRecord(mt.T, "model-1", "llama_70b"))
		assert.Error(mt, err)
		assert.False(mt, created)
	})

	mt.Run("get", func(mt *mtest.T) {
		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			metadataDoc("model-1", "llama_70b", created)))
		store := NewMongoStore(mt.Coll)

		m, found, err := store.Get(ctx, "model-1")
		require.NoError(mt, err)
		require.True(mt, found)
		assert.Equal(mt, "llama_70b", m.ModelName)
		assert.Equal(mt, 140.5, m.Size)
		assert.Equal(mt, models.LoadStatusUnloaded, m.LoadStatus)
		assert.Nil(mt, m.LastLoaded)
		assert.True(mt, created.Equal(m.CreatedAt))
	})

	mt.Run("get missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))
		store := NewMongoStore(mt.Coll)

		m, found, err := store.Get(ctx, "missing")
		require.NoError(mt, err)
		assert.False(mt, found)
		assert.Nil(mt, m)
	})

	mt.Run("update", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})
		store := NewMongoStore(mt.Coll)

		loaded := models.LoadStatusLoaded
		n, err := store.Update(ctx, "model-1", models.MetadataUpdate{LoadStatus: &loaded})
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), n)
	})

	mt.Run("update missing", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})
		store := NewMongoStore(mt.Coll)

		n, err := store.Update(ctx, "ghost", models.MetadataUpdate{Size: utils.Float64Ptr(1)})
		require.NoError(mt, err)
		assert.Equal(mt, int64(0), n)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}})
		store := NewMongoStore(mt.Coll)

		n, err := store.Delete(ctx, "model-1")
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), n)
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})
		store := NewMongoStore(mt.Coll)

		n, err := store.Delete(ctx, "ghost")
		require.NoError(mt, err)
		assert.Equal(mt, int64(0), n)
	})

	mt.Run("list", func(mt *mtest.T) {
		now := time.Now().UTC()
		ns := namespace(mt)
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, metadataDoc("a", "llama", now))
		second := mtest.CreateCursorResponse(1, ns, mtest.NextBatch, metadataDoc("b", "bert", now))
		killCursors := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, second, killCursors)
		store := NewMongoStore(mt.Coll)

		all, err := store.List(ctx)
		require.NoError(mt, err)
		require.Len(mt, all, 2)
		assert.Equal(mt, "a", all[0].ModelID)
		assert.Equal(mt, "b", all[1].ModelID)
	})

	mt.Run("find by name", func(mt *mtest.T) {
		now := time.Now().UTC()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			metadataDoc("new", "llama", now),
			metadataDoc("old", "llama", now.Add(-time.Hour)),
		))
		store := NewMongoStore(mt.Coll)

		found, err := store.FindByName(ctx, "llama")
		require.NoError(mt, err)
		require.Len(mt, found, 2)
		assert.Equal(mt, "new", found[0].ModelID)
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := NewMongoStore(mt.Coll)

		assert.NoError(mt, store.EnsureIndexes(ctx))
	})
}
