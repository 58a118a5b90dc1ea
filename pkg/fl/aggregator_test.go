package fl_test

import (
	"math"
	"testing"

	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanAggregator(t *testing.T) {
	agg := fl.NewMeanAggregator()

	cases := []struct {
		desc        string
		submissions map[string][]float64
		want        []float64
		err         error
	}{
		{
			desc:        "two clients",
			submissions: map[string][]float64{"a": {1, 2}, "b": {3, 4}},
			want:        []float64{2, 3},
		},
		{
			desc:        "single client returns its own vector",
			submissions: map[string][]float64{"a": {0.1, 0.2, 0.1, 0.2}},
			want:        []float64{0.1, 0.2, 0.1, 0.2},
		},
		{
			desc:        "three clients with negative values",
			submissions: map[string][]float64{"a": {-3, 0}, "b": {0, 3}, "c": {6, 6}},
			want:        []float64{1, 3},
		},
		{
			desc:        "empty submission set",
			submissions: map[string][]float64{},
			err:         pkgerrors.ErrEmptySubmissionSet,
		},
		{
			desc:        "nil submission set",
			submissions: nil,
			err:         pkgerrors.ErrEmptySubmissionSet,
		},
		{
			desc:        "values near the float64 limit",
			submissions: map[string][]float64{"a": {1.7e308, -1.7e308}, "b": {1.7e308, -1.7e308}},
			want:        []float64{1.7e308, -1.7e308},
		},
		{
			desc:        "max float64 with opposite signs",
			submissions: map[string][]float64{"a": {math.MaxFloat64, 4}, "b": {-math.MaxFloat64, 2}},
			want:        []float64{0, 3},
		},
		{
			desc:        "NaN value",
			submissions: map[string][]float64{"a": {1, 2}, "b": {math.NaN(), 2}},
			err:         pkgerrors.ErrInvalidData,
		},
		{
			desc:        "infinite value",
			submissions: map[string][]float64{"a": {math.Inf(1), 2}, "b": {1, 2}},
			err:         pkgerrors.ErrInvalidData,
		},
		{
			desc:        "dimension mismatch",
			submissions: map[string][]float64{"a": {1, 2}, "b": {1, 2, 3}},
			err:         pkgerrors.ErrDimensionMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := agg.Aggregate(tc.submissions)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.Nil(t, got)

				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tc.want))
			for i := range tc.want {
				assert.False(t, math.IsInf(got[i], 0), "value %d overflowed", i)
				assert.InDelta(t, tc.want[i], got[i], 1e-12*math.Max(1, math.Abs(tc.want[i])))
			}
		})
	}
}

func TestMeanAggregatorDoesNotMutateInput(t *testing.T) {
	in := map[string][]float64{"a": {1, 1}, "b": {3, 3}}

	_, err := fl.NewMeanAggregator().Aggregate(in)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1}, in["a"])
	assert.Equal(t, []float64{3, 3}, in["b"])
}
