// Package checkpoint persists aggregated models.
//
// Every aggregated round gets its own immutable artifact under
// <dir>/round_<N>/, and the top-level canonical artifact is replaced
// atomically to point at the newest round. Artifacts are written as JSON
// and CBOR; an optional Mirror receives a compressed copy.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/storage"
)

const (
	jsonName = "checkpoint.json"
	cborName = "checkpoint.cbor"
)

// Mirror receives a copy of every saved checkpoint.
type Mirror interface {
	Upload(ctx context.Context, key string, data []byte) error
}

type Store struct {
	dir    string
	mirror Mirror
	logger *slog.Logger
	mu     sync.Mutex
}

func NewStore(dir string, mirror Mirror, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	return &Store{
		dir:    dir,
		mirror: mirror,
		logger: logger,
	}, nil
}

// Save writes the round artifact first and only then replaces the
// canonical one. A failure leaves the previous canonical artifact intact.
// Checkpoints holding non-finite values are refused with ErrInvalidData.
func (s *Store) Save(ctx context.Context, cp fl.Checkpoint) error {
	if err := fl.CheckFinite(cp.Params); err != nil {
		return err
	}
	jsonData, err := EncodeJSON(cp)
	if err != nil {
		return fmt.Errorf("%w: failed to encode checkpoint: %w", pkgerrors.ErrInvalidData, err)
	}
	cborData, err := EncodeCBOR(cp)
	if err != nil {
		return fmt.Errorf("%w: failed to encode checkpoint: %w", pkgerrors.ErrInvalidData, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	roundDir := storage.RoundDir(s.dir, cp.Round)
	if err := os.MkdirAll(roundDir, 0o755); err != nil {
		return fmt.Errorf("failed to create round directory: %w", err)
	}
	if err := storage.WriteFileAtomic(filepath.Join(roundDir, cborName), cborData); err != nil {
		return fmt.Errorf("failed to write round %d checkpoint: %w", cp.Round, err)
	}
	if err := storage.WriteFileAtomic(filepath.Join(roundDir, jsonName), jsonData); err != nil {
		return fmt.Errorf("failed to write round %d checkpoint: %w", cp.Round, err)
	}
	if err := s.replaceCanonical(jsonData, cborData); err != nil {
		return fmt.Errorf("failed to replace canonical checkpoint: %w", err)
	}

	if s.mirror != nil {
		s.upload(ctx, cp)
	}

	return nil
}

// replaceCanonical commits the canonical pair. The JSON file is the commit
// point: if it cannot be replaced, the previous CBOR file is put back.
func (s *Store) replaceCanonical(jsonData, cborData []byte) error {
	cborPath := filepath.Join(s.dir, cborName)
	prev, err := os.ReadFile(cborPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	hadPrev := err == nil

	if err := storage.WriteFileAtomic(cborPath, cborData); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(filepath.Join(s.dir, jsonName), jsonData); err != nil {
		var rollback error
		if hadPrev {
			rollback = storage.WriteFileAtomic(cborPath, prev)
		} else {
			rollback = os.Remove(cborPath)
		}

		return errors.Join(err, rollback)
	}

	return nil
}

func (s *Store) upload(ctx context.Context, cp fl.Checkpoint) {
	data, err := EncodeCompressed(cp)
	if err != nil {
		s.logger.Warn("Failed to encode checkpoint for mirror", slog.Uint64("round", cp.Round), slog.Any("error", err))

		return
	}

	for _, key := range []string{fmt.Sprintf("round_%d/%s.sz", cp.Round, cborName), cborName + ".sz"} {
		if err := s.mirror.Upload(ctx, key, data); err != nil {
			s.logger.Warn("Failed to mirror checkpoint",
				slog.Uint64("round", cp.Round),
				slog.String("key", key),
				slog.Any("error", err),
			)

			return
		}
	}
}

// Latest returns the canonical checkpoint.
func (s *Store) Latest(_ context.Context) (fl.Checkpoint, error) {
	return readCheckpoint(filepath.Join(s.dir, jsonName))
}

func (s *Store) Get(_ context.Context, round uint64) (fl.Checkpoint, error) {
	return readCheckpoint(filepath.Join(storage.RoundDir(s.dir, round), jsonName))
}

// LatestBytes returns the raw canonical artifact in the requested encoding.
// Other encodings are served from the round named by the canonical JSON.
func (s *Store) LatestBytes(ctx context.Context, format Format) ([]byte, error) {
	if format != FormatCBOR {
		return readFile(filepath.Join(s.dir, jsonName))
	}

	latest, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}

	return s.RoundBytes(ctx, latest.Round, format)
}

func (s *Store) RoundBytes(_ context.Context, round uint64, format Format) ([]byte, error) {
	return readFile(filepath.Join(storage.RoundDir(s.dir, round), format.fileName()))
}

// LatestRound returns the round of the canonical checkpoint. Round
// directories without a published canonical artifact do not count.
func (s *Store) LatestRound(ctx context.Context) (uint64, bool, error) {
	latest, err := s.Latest(ctx)
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to read canonical checkpoint: %w", err)
	}

	return latest.Round, true, nil
}

func readCheckpoint(path string) (fl.Checkpoint, error) {
	data, err := readFile(path)
	if err != nil {
		return fl.Checkpoint{}, err
	}

	return DecodeJSON(data)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, pkgerrors.ErrNotFound
		}

		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	return data, nil
}

type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

func (f Format) fileName() string {
	if f == FormatCBOR {
		return cborName
	}

	return jsonName
}

func (f Format) ContentType() string {
	if f == FormatCBOR {
		return "application/cbor"
	}

	return "application/json"
}
