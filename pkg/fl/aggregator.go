package fl

import (
	"fmt"
	"math"
	"sort"

	pkgerrors "github.com/absmach/flcoord/pkg/errors"
)

// MeanAggregator averages submissions element-wise, every client weighing the same.
type MeanAggregator struct{}

func NewMeanAggregator() Aggregator {
	return &MeanAggregator{}
}

// CheckFinite rejects vectors holding NaN or infinite values.
func CheckFinite(params []float64) error {
	for i, v := range params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: params[%d] is not finite", pkgerrors.ErrInvalidData, i)
		}
	}

	return nil
}

func (a *MeanAggregator) Aggregate(submissions map[string][]float64) ([]float64, error) {
	if len(submissions) == 0 {
		return nil, pkgerrors.ErrEmptySubmissionSet
	}

	// Summation order is fixed so the result does not depend on map iteration.
	clients := make([]string, 0, len(submissions))
	for id := range submissions {
		clients = append(clients, id)
	}
	sort.Strings(clients)

	dim := len(submissions[clients[0]])
	sum := make([]float64, dim)
	for _, id := range clients {
		params := submissions[id]
		if len(params) != dim {
			return nil, fmt.Errorf("%w: client %s sent %d values, expected %d", pkgerrors.ErrDimensionMismatch, id, len(params), dim)
		}
		if err := CheckFinite(params); err != nil {
			return nil, fmt.Errorf("client %s: %w", id, err)
		}
		for i, v := range params {
			sum[i] += v
		}
	}

	n := float64(len(clients))
	for i := range sum {
		if math.IsInf(sum[i], 0) {
			// The running sum overflowed; scaling each term first keeps it in range.
			sum[i] = scaledMean(submissions, clients, i, n)

			continue
		}
		sum[i] /= n
	}

	return sum, nil
}

func scaledMean(submissions map[string][]float64, clients []string, i int, n float64) float64 {
	var mean float64
	for _, id := range clients {
		mean += submissions[id][i] / n
	}

	return mean
}
