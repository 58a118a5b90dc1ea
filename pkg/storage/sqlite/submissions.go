package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type dbSubmission struct {
	ClientID string `db:"client_id"`
	Params   []byte `db:"params"`
}

type SubmissionRepository struct {
	db *Database
}

func NewSubmissionRepository(db *Database) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Put(ctx context.Context, round uint64, clientID string, params []float64) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	query := `INSERT INTO submissions (round, client_id, params, submitted_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (round, client_id) DO UPDATE SET params = excluded.params, submitted_at = excluded.submitted_at`

	if _, err := r.db.ExecContext(ctx, query, int64(round), clientID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *SubmissionRepository) Get(ctx context.Context, round uint64) (map[string][]float64, error) {
	query := `SELECT client_id, params FROM submissions WHERE round = ?`

	var rows []dbSubmission
	if err := r.db.SelectContext(ctx, &rows, query, int64(round)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	result := make(map[string][]float64, len(rows))
	for _, row := range rows {
		var params []float64
		if err := json.Unmarshal(row.Params, &params); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDBScan, err)
		}
		result[row.ClientID] = params
	}

	return result, nil
}

func (r *SubmissionRepository) Count(ctx context.Context, round uint64) (int, error) {
	query := `SELECT COUNT(*) FROM submissions WHERE round = ?`

	var count int
	if err := r.db.GetContext(ctx, &count, query, int64(round)); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return count, nil
}

func (r *SubmissionRepository) Clear(ctx context.Context, round uint64) error {
	query := `DELETE FROM submissions WHERE round = ?`

	if _, err := r.db.ExecContext(ctx, query, int64(round)); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func (r *SubmissionRepository) Close() error {
	return r.db.Close()
}
