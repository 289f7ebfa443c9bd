package store

import (
	"database/sql"

	"github.com/ayusman/mudra/internal/collect"
)

// TakeRecord is a stored take summary.
type TakeRecord struct {
	ExportID  string          `json:"export_id"`
	TakeID    int             `json:"take_id"`
	Gesture   string          `json:"gesture"`
	Quality   collect.Quality `json:"quality"`
	Score     int             `json:"score"`
	Reasons   string          `json:"reasons"`
	Frames    int             `json:"frames"`
	StartedMs *int64          `json:"started_ms"`
	EndedMs   *int64          `json:"ended_ms"`
}

// TakeRepository queries take summaries across exports.
type TakeRepository struct {
	db *sql.DB
}

// Takes returns the take repository for this store.
func (s *Store) Takes() *TakeRepository {
	return &TakeRepository{db: s.db}
}

// ListByExport retrieves the takes of one export in take order. An unknown
// export yields an empty list.
func (r *TakeRepository) ListByExport(exportID string) ([]TakeRecord, error) {
	rows, err := r.db.Query(
		`SELECT export_id, take_id, gesture, quality, score, reasons, frames, started_ms, ended_ms
		 FROM takes WHERE export_id = ? ORDER BY take_id ASC, id ASC`,
		exportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	takes := []TakeRecord{}
	for rows.Next() {
		var t TakeRecord
		var quality string
		var started, ended sql.NullInt64

		if err := rows.Scan(&t.ExportID, &t.TakeID, &t.Gesture, &quality, &t.Score, &t.Reasons, &t.Frames, &started, &ended); err != nil {
			return nil, err
		}

		t.Quality = collect.Quality(quality)
		if started.Valid {
			t.StartedMs = &started.Int64
		}
		if ended.Valid {
			t.EndedMs = &ended.Int64
		}
		takes = append(takes, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return takes, nil
}

// QualityCounts tallies stored takes by quality label, optionally restricted
// to one gesture. Every label is present in the result.
func (r *TakeRepository) QualityCounts(gesture string) (map[collect.Quality]int, error) {
	query := `SELECT quality, COUNT(*) FROM takes GROUP BY quality`
	args := []any{}
	if gesture != "" {
		query = `SELECT quality, COUNT(*) FROM takes WHERE gesture = ? GROUP BY quality`
		args = append(args, gesture)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[collect.Quality]int{
		collect.QualityGood:       0,
		collect.QualityBorderline: 0,
		collect.QualityBad:        0,
	}
	for rows.Next() {
		var quality string
		var n int
		if err := rows.Scan(&quality, &n); err != nil {
			return nil, err
		}
		counts[collect.Quality(quality)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
