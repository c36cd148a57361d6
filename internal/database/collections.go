package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"haulr-dispatch/internal/models"
	"haulr-dispatch/internal/remote"
)

// CollectionRepo stores each synced collection as one JSONB row. It has the
// same getAll/sync surface the devices call over HTTP.
type CollectionRepo struct {
	db *sqlx.DB
}

var _ remote.Client = (*CollectionRepo)(nil)

type collectionRow struct {
	Name      string `db:"name"`
	Payload   []byte `db:"payload"`
	UpdatedAt int64  `db:"updated_at"`
}

func NewCollectionRepo(db *sqlx.DB) *CollectionRepo {
	return &CollectionRepo{db: db}
}

// GetAll returns every synced collection. Collections never written decode as empty.
func (r *CollectionRepo) GetAll(ctx context.Context) (*models.Snapshot, error) {
	var rows []collectionRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT name, payload, updated_at FROM collections`); err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}

	raw := make(map[models.Collection]json.RawMessage, len(rows))
	for _, row := range rows {
		name, ok := models.ParseCollection(row.Name)
		if !ok || !name.IsSynced() {
			log.Printf("⚠️  Ignoring unknown collection row %q", row.Name)
			continue
		}
		raw[name] = json.RawMessage(row.Payload)
	}
	return models.SnapshotFromRaw(raw)
}

// Sync upserts the collections present in req in one transaction. Absent
// collections keep their stored payload.
func (r *CollectionRepo) Sync(ctx context.Context, req models.SyncRequest) (*models.SyncAck, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	docs, err := req.Raw()
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sync: %w", err)
	}
	defer tx.Rollback()

	names := req.Collections()
	for _, name := range names {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO collections (name, payload, updated_at)
			VALUES ($1, $2::jsonb, $3)
			ON CONFLICT (name) DO UPDATE
			SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
		`, string(name), string(docs[name]), now)
		if err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync: %w", err)
	}
	return &models.SyncAck{OK: true, Collections: names, SyncedAt: now}, nil
}

// Count returns how many collections have been stored
func (r *CollectionRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM collections`); err != nil {
		return 0, err
	}
	return count, nil
}

// CollectionStat is one row of the stored-collections summary
type CollectionStat struct {
	Name      string `db:"name"`
	Items     int    `db:"items"`
	UpdatedAt int64  `db:"updated_at"`
}

// Summary lists stored collections with their item counts. The settings
// singleton counts as one item.
func (r *CollectionRepo) Summary(ctx context.Context) ([]CollectionStat, error) {
	var stats []CollectionStat
	err := r.db.SelectContext(ctx, &stats, `
		SELECT
			name,
			CASE WHEN jsonb_typeof(payload) = 'array' THEN jsonb_array_length(payload) ELSE 1 END AS items,
			updated_at
		FROM collections
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize collections: %w", err)
	}
	return stats, nil
}
