// Package selector picks the clients that take part in a training round.
//
// Selection is uniform random sampling without replacement. Given the same
// live set, fraction and seed it always returns the same participants, so a
// round can be replayed from its recorded seed.
package selector

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sort"

	pkgerrors "github.com/absmach/flcoord/pkg/errors"
)

// DefaultFraction is the share of live clients asked to train each round.
const DefaultFraction = 0.5

// SeedSource produces the seed of one selection.
type SeedSource func() (int64, error)

// CryptoSeed reads a seed from crypto/rand.
func CryptoSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// FixedSeed always returns seed.
func FixedSeed(seed int64) SeedSource {
	return func() (int64, error) {
		return seed, nil
	}
}

// Size returns how many of n live clients are selected: max(1, floor(n*fraction)),
// or 0 when nobody is live.
func Size(n int, fraction float64) int {
	if n == 0 {
		return 0
	}
	k := int(float64(n) * fraction)
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	return k
}

// Select returns a random subset of live. The input is put in sorted order
// first so the result depends only on its contents, not on its order.
func Select(live []string, fraction float64, seed int64) ([]string, error) {
	if fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidFraction, fraction)
	}

	pool := dedupSorted(live)
	k := Size(len(pool), fraction)
	if k == 0 {
		return []string{}, nil
	}

	rng := rand.New(rand.NewSource(seed))
	// Partial Fisher-Yates: the first k slots hold the sample.
	for i := range k {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return pool[:k:k], nil
}

func dedupSorted(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)

	n := 0
	for i, id := range out {
		if i > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}

	return out[:n]
}

// Selector draws a fresh seed for every selection.
type Selector struct {
	fraction float64
	seeds    SeedSource
}

func New(fraction float64, seeds SeedSource) (*Selector, error) {
	if fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidFraction, fraction)
	}
	if seeds == nil {
		seeds = CryptoSeed
	}

	return &Selector{fraction: fraction, seeds: seeds}, nil
}

func (s *Selector) Fraction() float64 {
	return s.fraction
}

// Select returns the chosen participants together with the seed used.
func (s *Selector) Select(live []string) ([]string, int64, error) {
	seed, err := s.seeds()
	if err != nil {
		return nil, 0, err
	}

	selected, err := Select(live, s.fraction, seed)
	if err != nil {
		return nil, 0, err
	}

	return selected, seed, nil
}
