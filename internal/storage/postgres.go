package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sarinfer/internal/models"
	"sarinfer/internal/utils"
)

const metadataColumns = `model_id, model_name, version, size, location, load_status,
	last_loaded, backup_status, backup_location, created_at, updated_at`

// PostgresStore is a MetadataStore backed by the model_metadata table
type PostgresStore struct {
	db     *DB
	logger *utils.Logger
}

// NewPostgresStore creates a store on db. Run db.Migrate first.
func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: utils.NewLogger("postgres-store"),
	}
}

func (s *PostgresStore) Add(ctx context.Context, m *models.ModelMetadata) (string, bool, error) {
	query := `
		INSERT INTO model_metadata (` + metadataColumns + `)
		VALUES (:model_id, :model_name, :version, :size, :location, :load_status,
			:last_loaded, :backup_status, :backup_location, :created_at, :updated_at)
		ON CONFLICT (model_id) DO NOTHING
	`
	res, err := s.db.conn.NamedExecContext(ctx, query, m)
	if err != nil {
		observe(opAdd, err)
		return "", false, fmt.Errorf("failed to insert model metadata: %w", err)
	}
	n, err := res.RowsAffected()
	observe(opAdd, err)
	if err != nil {
		return "", false, fmt.Errorf("failed to insert model metadata: %w", err)
	}
	if n == 0 {
		s.logger.Info("Model already exists", "model_id", m.ModelID)
		return "", false, nil
	}
	s.logger.Info("Model metadata added", "model_id", m.ModelID, "model_name", m.ModelName, "version", m.Version)
	return m.ModelID, true, nil
}

func (s *PostgresStore) Get(ctx context.Context, modelID string) (*models.ModelMetadata, bool, error) {
	var m models.ModelMetadata
	query := `SELECT ` + metadataColumns + ` FROM model_metadata WHERE model_id = $1`
	err := s.db.conn.GetContext(ctx, &m, query, modelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			observe(opGet, nil)
			return nil, false, nil
		}
		observe(opGet, err)
		return nil, false, fmt.Errorf("failed to get model metadata: %w", err)
	}
	observe(opGet, nil)
	return &m, true, nil
}

func (s *PostgresStore) Update(ctx context.Context, modelID string, update models.MetadataUpdate) (int64, error) {
	query, args := buildUpdate(modelID, update.Fields(time.Now().UTC()))

	res, err := s.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		observe(opUpdate, err)
		return 0, fmt.Errorf("failed to update model metadata: %w", err)
	}
	n, err := res.RowsAffected()
	observe(opUpdate, err)
	if err != nil {
		return 0, fmt.Errorf("failed to update model metadata: %w", err)
	}
	return n, nil
}

// buildUpdate renders an UPDATE over the given fields. Column names come
// from MetadataUpdate.Fields and are never caller-supplied strings.
func buildUpdate(modelID string, fields map[string]interface{}) (string, []interface{}) {
	keys := sortedKeys(fields)
	sets := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys)+1)
	for i, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i+1))
		args = append(args, fields[k])
	}
	args = append(args, modelID)
	query := fmt.Sprintf("UPDATE model_metadata SET %s WHERE model_id = $%d",
		strings.Join(sets, ", "), len(args))
	return query, args
}

func (s *PostgresStore) Delete(ctx context.Context, modelID string) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM model_metadata WHERE model_id = $1`, modelID)
	if err != nil {
		observe(opDelete, err)
		return 0, fmt.Errorf("failed to delete model metadata: %w", err)
	}
	n, err := res.RowsAffected()
	observe(opDelete, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete model metadata: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.ModelMetadata, error) {
	var out []*models.ModelMetadata
	err := s.db.conn.SelectContext(ctx, &out, `SELECT `+metadataColumns+` FROM model_metadata`)
	observe(opList, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list model metadata: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) ([]*models.ModelMetadata, error) {
	var out []*models.ModelMetadata
	query := `SELECT ` + metadataColumns + ` FROM model_metadata WHERE model_name = $1 ORDER BY created_at DESC`
	err := s.db.conn.SelectContext(ctx, &out, query, name)
	observe(opFind, err)
	if err != nil {
		return nil, fmt.Errorf("failed to find model metadata: %w", err)
	}
	return out, nil
}
