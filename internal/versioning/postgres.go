package versioning

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresSequence keeps per-model counters in the model_versions table.
type PostgresSequence struct {
	conn *sqlx.DB
}

// NewPostgresSequence creates a sequencer on conn. The table is created by
// storage.DB.Migrate.
func NewPostgresSequence(conn *sqlx.DB) *PostgresSequence {
	return &PostgresSequence{conn: conn}
}

func (s *PostgresSequence) Next(ctx context.Context, modelName string) (int64, error) {
	query := `
		INSERT INTO model_versions (model_name, value)
		VALUES ($1, 1)
		ON CONFLICT (model_name) DO UPDATE SET value = model_versions.value + 1
		RETURNING value
	`
	var n int64
	if err := s.conn.GetContext(ctx, &n, query, modelName); err != nil {
		return 0, fmt.Errorf("failed to increment version counter: %w", err)
	}
	return n, nil
}
