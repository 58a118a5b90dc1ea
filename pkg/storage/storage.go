package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/fl"
)

// RoundStore holds client submissions keyed by (round, client).
// A later Put for the same key replaces the earlier one.
type RoundStore interface {
	Put(ctx context.Context, round uint64, clientID string, params []float64) error
	Get(ctx context.Context, round uint64) (map[string][]float64, error)
	Count(ctx context.Context, round uint64) (int, error)
	Clear(ctx context.Context, round uint64) error
	io.Closer
}

// ValidateClientID rejects ids that cannot be used as a storage key or a
// file name component.
func ValidateClientID(clientID string) error {
	switch {
	case clientID == "":
		return pkgerrors.ErrEmptyKey
	case clientID == "." || clientID == "..",
		strings.ContainsAny(clientID, `/\`),
		strings.ContainsRune(clientID, 0):
		return fmt.Errorf("%w: %q", ErrInvalidID, clientID)
	}

	return nil
}

var _ RoundStore = (*validatingStore)(nil)

// validatingStore rejects submissions whose length differs from the model
// parameter count, or that hold non-finite values, before they reach the
// backend.
type validatingStore struct {
	RoundStore
	dim int
}

// WithDimension wraps store so that every Put must carry exactly dim finite values.
func WithDimension(store RoundStore, dim int) RoundStore {
	return &validatingStore{RoundStore: store, dim: dim}
}

func (s *validatingStore) Put(ctx context.Context, round uint64, clientID string, params []float64) error {
	if err := ValidateClientID(clientID); err != nil {
		return err
	}
	if len(params) != s.dim {
		return fmt.Errorf("%w: got %d values, expected %d", pkgerrors.ErrDimensionMismatch, len(params), s.dim)
	}
	if err := fl.CheckFinite(params); err != nil {
		return err
	}

	return s.RoundStore.Put(ctx, round, clientID, params)
}
