package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/sheetfed/internal/domain"
)

type recordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository wires a repository backed by pgxpool.
func NewRecordRepository(pool *pgxpool.Pool) RecordRepository {
	return &recordRepository{pool: pool}
}

func (r *recordRepository) ListRecords(ctx context.Context, sheetID string) ([]domain.Record, error) {
	bySheet, err := r.ListRecordsBySheets(ctx, []string{sheetID})
	if err != nil {
		return nil, err
	}
	records := bySheet[sheetID]
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

func (r *recordRepository) ListRecordsBySheets(ctx context.Context, sheetIDs []string) (map[string][]domain.Record, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("record repository not initialized")
	}
	ids, err := parseIDs("sheet", sheetIDs)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, sheet_id, field_values, metadata
		 FROM records
		 WHERE sheet_id = ANY($1)
		 ORDER BY sheet_id, seq`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Record, len(sheetIDs))
	for rows.Next() {
		var (
			id       uuid.UUID
			sheetID  uuid.UUID
			values   []byte
			metadata []byte
		)
		if scanErr := rows.Scan(&id, &sheetID, &values, &metadata); scanErr != nil {
			return nil, fmt.Errorf("failed to scan record: %w", scanErr)
		}

		record := domain.Record{ID: id.String()}
		if record.Values, err = decodeValues(values); err != nil {
			return nil, err
		}
		if record.Metadata, err = decodeMetadata(metadata); err != nil {
			return nil, err
		}
		key := sheetID.String()
		out[key] = append(out[key], record)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", rowsErr)
	}
	return out, nil
}

func (r *recordRepository) InsertRecords(ctx context.Context, sheetID string, values []domain.Values) error {
	records := make([]domain.Record, 0, len(values))
	for _, v := range values {
		records = append(records, domain.Record{Values: v})
	}
	_, err := r.CreateRecords(ctx, sheetID, records)
	return err
}

// CreateRecords bulk loads records with COPY. Records without an id get a new one.
func (r *recordRepository) CreateRecords(ctx context.Context, sheetID string, records []domain.Record) ([]domain.Record, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("record repository not initialized")
	}
	sheet, err := parseID("sheet", sheetID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []domain.Record{}, nil
	}

	created := make([]domain.Record, 0, len(records))
	rows := make([][]any, 0, len(records))
	for _, record := range records {
		id := uuid.New()
		if record.ID != "" {
			if id, err = parseID("record", record.ID); err != nil {
				return nil, err
			}
		}
		values, err := encodeValues(record.Values)
		if err != nil {
			return nil, err
		}
		metadata, err := encodeMetadata(record.Metadata)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []any{id, sheet, values, metadata})

		record.ID = id.String()
		created = append(created, record)
	}

	if _, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"records"},
		[]string{"id", "sheet_id", "field_values", "metadata"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return nil, fmt.Errorf("failed to insert records into sheet %s: %w", sheetID, err)
	}
	return created, nil
}

// UpdateRecords applies minimal patches: values are merged key by key and
// metadata, when present, replaces the stored bag.
func (r *recordRepository) UpdateRecords(ctx context.Context, updates []domain.RecordUpdate) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("record repository not initialized")
	}
	if len(updates) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, update := range updates {
		id, err := parseID("record", update.ID)
		if err != nil {
			return 0, err
		}
		if len(update.Values) > 0 {
			values, err := encodeValues(update.Values)
			if err != nil {
				return 0, err
			}
			batch.Queue(
				`UPDATE records SET field_values = field_values || $2::jsonb, updated_at = now() WHERE id = $1`,
				id,
				values,
			)
		}
		if update.Metadata != nil {
			metadata, err := encodeMetadata(update.Metadata)
			if err != nil {
				return 0, err
			}
			batch.Queue(
				`UPDATE records SET metadata = $2::jsonb, updated_at = now() WHERE id = $1`,
				id,
				metadata,
			)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to open transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to update records: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to update records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit record updates: %w", err)
	}
	return len(updates), nil
}
