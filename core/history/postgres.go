package history

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/xerrors"

	"dataset-registry/core/models"
)

// PostgresLedger stores history entries in an append-only table. Selected with
// HISTORY_DRIVER=postgres for deployments that outgrow the file ledger.
type PostgresLedger struct {
	db *sql.DB
}

const historySchema = `
	CREATE TABLE IF NOT EXISTS history_entries (
		id UUID PRIMARY KEY,
		input_text TEXT NOT NULL,
		rows_json TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		content_url TEXT NOT NULL,
		metadata_url TEXT NOT NULL,
		token_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL
	)
`

// OpenPostgres connects to the database and ensures the history table exists
func OpenPostgres(dsn string) (*PostgresLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, xerrors.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, xerrors.Errorf("ping history database: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		return nil, xerrors.Errorf("create history table: %w", err)
	}
	return &PostgresLedger{db: db}, nil
}

// Append inserts one entry; rows never get updated or deleted
func (l *PostgresLedger) Append(ctx context.Context, entry models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	rowsJSON, err := json.Marshal(entry.Rows)
	if err != nil {
		return xerrors.Errorf("serialize history rows: %w", err)
	}

	var tokenID sql.NullInt64
	if entry.TokenID != nil {
		tokenID = sql.NullInt64{Int64: int64(*entry.TokenID), Valid: true}
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO history_entries (
			id, input_text, rows_json, content_hash, content_url,
			metadata_url, token_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		entry.ID,
		entry.InputText,
		string(rowsJSON),
		entry.ContentHash,
		entry.ContentURL,
		entry.MetadataURL,
		tokenID,
		entry.CreatedAt,
	)
	if err != nil {
		return xerrors.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries first
func (l *PostgresLedger) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, input_text, rows_json, content_hash, content_url,
			metadata_url, token_id, created_at
		FROM history_entries
		ORDER BY created_at DESC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, xerrors.Errorf("query history entries: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var entry models.HistoryEntry
		var rowsJSON string
		var tokenID sql.NullInt64

		err := rows.Scan(
			&entry.ID,
			&entry.InputText,
			&rowsJSON,
			&entry.ContentHash,
			&entry.ContentURL,
			&entry.MetadataURL,
			&tokenID,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, xerrors.Errorf("scan history entry: %w", err)
		}

		if err := json.Unmarshal([]byte(rowsJSON), &entry.Rows); err != nil {
			log.WithError(err).WithField("entry", entry.ID).Warn("skipping entry with unparseable rows")
			continue
		}
		if tokenID.Valid {
			id := uint64(tokenID.Int64)
			entry.TokenID = &id
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the database handle
func (l *PostgresLedger) Close() error {
	return l.db.Close()
}
