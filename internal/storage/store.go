package storage

import (
	"context"
	"sort"

	"sarinfer/internal/metrics"
	"sarinfer/internal/models"
)

// MetadataStore persists model metadata records keyed by model_id.
//
// Add reports a duplicate model_id as created=false with a nil error; the
// existing record is left untouched. Get reports a missing record as
// found=false. Update and Delete return the number of records affected and
// never create records.
type MetadataStore interface {
	Add(ctx context.Context, m *models.ModelMetadata) (id string, created bool, err error)
	Get(ctx context.Context, modelID string) (*models.ModelMetadata, bool, error)
	Update(ctx context.Context, modelID string, update models.MetadataUpdate) (int64, error)
	Delete(ctx context.Context, modelID string) (int64, error)
	List(ctx context.Context) ([]*models.ModelMetadata, error)
	// FindByName returns the records with the given name, newest first.
	FindByName(ctx context.Context, name string) ([]*models.ModelMetadata, error)
}

// Metadata store operation names used in metrics.
const (
	opAdd    = "add"
	opGet    = "get"
	opUpdate = "update"
	opDelete = "delete"
	opList   = "list"
	opFind   = "find_by_name"
)

func observe(op string, err error) {
	metrics.MetadataOpsTotal.WithLabelValues(op, metrics.Outcome(err)).Inc()
}

func sortedKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
