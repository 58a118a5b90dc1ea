package coordinator_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/flcoord/coordinator"
	"github.com/absmach/flcoord/coordinator/mocks"
	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler(t *testing.T) {
	cases := []struct {
		desc      string
		start     string
		aggregate string
		enabled   bool
		err       bool
	}{
		{desc: "no schedules", enabled: false},
		{desc: "start only", start: "*/5 * * * *", enabled: true},
		{desc: "both schedules", start: "@hourly", aggregate: "30 * * * *", enabled: true},
		{desc: "invalid start", start: "not a cron", err: true},
		{desc: "invalid aggregate", aggregate: "* * *", err: true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			s, err := coordinator.NewScheduler(&mocks.MockService{}, tc.start, tc.aggregate, slog.Default())
			if tc.err {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.enabled, s.Enabled())
		})
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func TestSchedulerRunsJobs(t *testing.T) {
	svc := &mocks.MockService{}
	started := make(chan struct{}, 4)
	aggregated := make(chan struct{}, 4)

	// Failing jobs keep the schedule alive.
	svc.On("StartRound", mock.Anything).
		Run(func(mock.Arguments) { notify(started) }).
		Return(round.StartReport{}, pkgerrors.ErrNoParticipantsAvailable)
	svc.On("CloseCollectionAndAggregate", mock.Anything).
		Run(func(mock.Arguments) { notify(aggregated) }).
		Return(fl.Checkpoint{}, nil)

	s, err := coordinator.NewScheduler(svc, "@every 1s", "@every 1s", slog.Default())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	for range 2 {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("start job was not triggered")
		}
	}
	select {
	case <-aggregated:
	case <-time.After(5 * time.Second):
		t.Fatal("aggregate job was not triggered")
	}

	s.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerStopsWithContext(t *testing.T) {
	s, err := coordinator.NewScheduler(&mocks.MockService{}, "@hourly", "", slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
