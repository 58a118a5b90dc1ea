package checkpoint_test

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/absmach/flcoord/pkg/checkpoint"
	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMirror struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (m *fakeMirror) Upload(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data

	return nil
}

func testCheckpoint(t *testing.T, round uint64, params ...float64) fl.Checkpoint {
	t.Helper()

	shape := fl.ModelShape{Parameters: []fl.ParameterSpec{{Name: "w", Shape: []int{len(params)}}}}
	cp, err := fl.BuildCheckpoint(params, shape)
	require.NoError(t, err)
	cp.Round = round

	return cp
}

func TestStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := checkpoint.NewStore(dir, nil, slog.Default())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Latest(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	first := testCheckpoint(t, 0, 0.1, 0.2)
	second := testCheckpoint(t, 1, 0.3, 0.4)
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	for _, name := range []string{"checkpoint.json", "checkpoint.cbor"} {
		for _, path := range []string{
			filepath.Join(dir, name),
			filepath.Join(dir, "round_0", name),
			filepath.Join(dir, "round_1", name),
		} {
			_, err := os.Stat(path)
			assert.NoError(t, err, path)
		}
	}

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), latest.Round)
	assert.Equal(t, second.Params, latest.Params)

	old, err := store.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, first.Params, old.Params, "earlier round checkpoints are retained")

	_, err = store.Get(ctx, 5)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	raw, err := store.LatestBytes(ctx, checkpoint.FormatCBOR)
	require.NoError(t, err)
	decoded, err := checkpoint.DecodeCBOR(raw)
	require.NoError(t, err)
	assert.Equal(t, second.Params, decoded.Params)
	assert.Equal(t, second.Tensors, decoded.Tensors)
}

func TestStoreKeepsCanonicalOnFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := checkpoint.NewStore(dir, nil, slog.Default())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testCheckpoint(t, 0, 1, 2)))

	// A regular file where the round directory should go makes the save fail.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "round_1"), []byte("x"), 0o644))
	assert.Error(t, store.Save(ctx, testCheckpoint(t, 1, 3, 4)))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), latest.Round)
	assert.Equal(t, []float64{1, 2}, latest.Params)
}

func TestStoreLatestRound(t *testing.T) {
	dir := t.TempDir()
	store, err := checkpoint.NewStore(dir, nil, slog.Default())
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := store.LatestRound(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	for _, round := range []uint64{0, 2, 10} {
		require.NoError(t, store.Save(ctx, testCheckpoint(t, round, 1)))
	}
	// Round directories holding only submissions do not count.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "round_11"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "round_abc"), 0o755))
	// Neither does a round artifact that never became canonical.
	orphan, err := checkpoint.EncodeJSON(testCheckpoint(t, 12, 1))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "round_12"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "round_12", "checkpoint.json"), orphan, 0o644))

	latest, found, err := store.LatestRound(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(10), latest)
}

// blockCanonicalJSON puts a directory where the canonical JSON file goes,
// so replacing it fails after the canonical CBOR file was written.
func blockCanonicalJSON(t *testing.T, dir string) {
	t.Helper()

	path := filepath.Join(dir, "checkpoint.json")
	require.NoError(t, os.RemoveAll(path))
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), []byte("x"), 0o644))
}

func TestStoreCanonicalPairStaysConsistent(t *testing.T) {
	ctx := context.Background()

	t.Run("previous canonical CBOR is restored", func(t *testing.T) {
		dir := t.TempDir()
		store, err := checkpoint.NewStore(dir, nil, slog.Default())
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, testCheckpoint(t, 0, 1, 2)))
		before, err := os.ReadFile(filepath.Join(dir, "checkpoint.cbor"))
		require.NoError(t, err)

		blockCanonicalJSON(t, dir)
		assert.Error(t, store.Save(ctx, testCheckpoint(t, 1, 3, 4)))

		after, err := os.ReadFile(filepath.Join(dir, "checkpoint.cbor"))
		require.NoError(t, err)
		assert.Equal(t, before, after)
		decoded, err := checkpoint.DecodeCBOR(after)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), decoded.Round)
	})

	t.Run("first canonical CBOR is removed", func(t *testing.T) {
		dir := t.TempDir()
		store, err := checkpoint.NewStore(dir, nil, slog.Default())
		require.NoError(t, err)

		blockCanonicalJSON(t, dir)
		assert.Error(t, store.Save(ctx, testCheckpoint(t, 0, 1, 2)))

		_, err = os.Stat(filepath.Join(dir, "checkpoint.cbor"))
		assert.ErrorIs(t, err, os.ErrNotExist)

		// The round artifact exists but was never published, so boot
		// recovery must not skip past it.
		require.NoError(t, os.RemoveAll(filepath.Join(dir, "checkpoint.json")))
		_, err = os.Stat(filepath.Join(dir, "round_0", "checkpoint.json"))
		require.NoError(t, err)
		_, found, err := store.LatestRound(ctx)
		require.NoError(t, err)
		assert.False(t, found)

		_, err = store.LatestBytes(ctx, checkpoint.FormatCBOR)
		assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
	})
}

func TestStoreRejectsNonFinite(t *testing.T) {
	dir := t.TempDir()
	store, err := checkpoint.NewStore(dir, nil, slog.Default())
	require.NoError(t, err)

	cp := testCheckpoint(t, 0, 1, 2)
	cp.Params[1] = math.Inf(1)
	assert.ErrorIs(t, store.Save(context.Background(), cp), pkgerrors.ErrInvalidData)

	_, err = os.Stat(filepath.Join(dir, "round_0"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStoreMirror(t *testing.T) {
	cases := []struct {
		desc string
		err  error
		keys []string
	}{
		{
			desc: "uploads round and canonical objects",
			keys: []string{"round_3/checkpoint.cbor.sz", "checkpoint.cbor.sz"},
		},
		{
			desc: "mirror failure does not fail the save",
			err:  errors.New("bucket unavailable"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			mirror := &fakeMirror{err: tc.err}
			store, err := checkpoint.NewStore(t.TempDir(), mirror, slog.Default())
			require.NoError(t, err)

			cp := testCheckpoint(t, 3, 0.5, 0.25)
			require.NoError(t, store.Save(context.Background(), cp))

			assert.Len(t, mirror.objects, len(tc.keys))
			for _, key := range tc.keys {
				require.Contains(t, mirror.objects, key)
				got, err := checkpoint.DecodeCompressed(mirror.objects[key])
				require.NoError(t, err)
				assert.Equal(t, cp.Params, got.Params)
				assert.Equal(t, uint64(3), got.Round)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	_, err := checkpoint.DecodeJSON([]byte("{"))
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidData)

	_, err = checkpoint.DecodeCBOR([]byte{0xff})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidData)

	_, err = checkpoint.DecodeCompressed([]byte("not snappy"))
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidData)
}
