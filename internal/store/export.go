package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/ayusman/mudra/internal/collect"
)

// Export is a persisted export bundle.
type Export struct {
	ID           string
	Gesture      string
	FrameCount   int
	TakeCount    int
	CSV          []byte // nil when the session had no frames
	Metadata     json.RawMessage
	TakeMetadata json.RawMessage
	CreatedAt    time.Time
}

// HasCSV reports whether a frame table was stored.
func (e *Export) HasCSV() bool {
	return len(e.CSV) > 0
}

// ExportRepository provides CRUD operations for exports.
type ExportRepository struct {
	db *sql.DB
}

// Exports returns the export repository for this store.
func (s *Store) Exports() *ExportRepository {
	return &ExportRepository{db: s.db}
}

// Create stores b and its takes in a single transaction.
func (r *ExportRepository) Create(b *collect.Bundle) (*Export, error) {
	meta, err := b.MetadataJSON()
	if err != nil {
		return nil, err
	}
	takeMeta, err := b.TakeMetadataJSON()
	if err != nil {
		return nil, err
	}

	e := &Export{
		ID:           b.ExportID,
		Gesture:      b.Metadata.Gesture,
		FrameCount:   b.Metadata.TotalFrames,
		TakeCount:    b.TakeMetadata.TakeCount,
		Metadata:     meta,
		TakeMetadata: takeMeta,
		CreatedAt:    time.Now(),
	}
	var csv any
	if b.HasCSV() {
		e.CSV = b.CSV
		csv = string(b.CSV)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO exports (id, gesture, frame_count, take_count, csv, metadata, take_metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Gesture, e.FrameCount, e.TakeCount, csv, string(meta), string(takeMeta), e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO takes (export_id, take_id, gesture, quality, score, reasons, frames, started_ms, ended_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, t := range b.TakeMetadata.Takes {
		if _, err := stmt.Exec(
			e.ID, t.TakeID, t.Gesture, string(t.Quality), t.Score, t.ReasonText(), t.Frames,
			nullInt64(t.StartMs), nullInt64(t.EndMs),
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an export with its artifacts.
func (r *ExportRepository) GetByID(id string) (*Export, error) {
	e := &Export{}
	var csv sql.NullString
	var meta, takeMeta string

	err := r.db.QueryRow(
		`SELECT id, gesture, frame_count, take_count, csv, metadata, take_metadata, created_at
		 FROM exports WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.Gesture, &e.FrameCount, &e.TakeCount, &csv, &meta, &takeMeta, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if csv.Valid {
		e.CSV = []byte(csv.String)
	}
	e.Metadata = json.RawMessage(meta)
	e.TakeMetadata = json.RawMessage(takeMeta)
	return e, nil
}

// List retrieves export summaries, newest first. Artifacts are not loaded.
func (r *ExportRepository) List() ([]*Export, error) {
	rows, err := r.db.Query(
		`SELECT id, gesture, frame_count, take_count, created_at
		 FROM exports ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []*Export
	for rows.Next() {
		e := &Export{}
		if err := rows.Scan(&e.ID, &e.Gesture, &e.FrameCount, &e.TakeCount, &e.CreatedAt); err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exports, nil
}

// Delete removes an export and, through the foreign key, its takes.
func (r *ExportRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM exports WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
