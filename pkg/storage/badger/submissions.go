package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const submissionPrefix = "sub/"

type submission struct {
	ClientID    string    `json:"client_id"`
	Params      []float64 `json:"params"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type SubmissionRepository struct {
	db *Database
}

func NewSubmissionRepository(db *Database) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Round numbers are zero padded so keys of one round sort together.
func roundPrefix(round uint64) []byte {
	return fmt.Appendf(nil, "%s%020d/", submissionPrefix, round)
}

func submissionKey(round uint64, clientID string) []byte {
	return append(roundPrefix(round), clientID...)
}

func (r *SubmissionRepository) Put(_ context.Context, round uint64, clientID string, params []float64) error {
	val, err := json.Marshal(submission{
		ClientID:    clientID,
		Params:      params,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	return r.db.set(submissionKey(round, clientID), val)
}

func (r *SubmissionRepository) Get(_ context.Context, round uint64) (map[string][]float64, error) {
	result := make(map[string][]float64)
	prefix := roundPrefix(round)

	err := r.db.scanPrefix(prefix, func(key, val []byte) error {
		var sub submission
		if err := json.Unmarshal(val, &sub); err != nil {
			return err
		}
		id := sub.ClientID
		if id == "" {
			id = strings.TrimPrefix(string(key), string(prefix))
		}
		result[id] = sub.Params

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SubmissionRepository) Count(_ context.Context, round uint64) (int, error) {
	return r.db.countWithPrefix(roundPrefix(round))
}

func (r *SubmissionRepository) Clear(_ context.Context, round uint64) error {
	return r.db.dropPrefix(roundPrefix(round))
}

func (r *SubmissionRepository) Close() error {
	return r.db.Close()
}
