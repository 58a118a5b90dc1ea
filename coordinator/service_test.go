package coordinator_test

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/absmach/flcoord/coordinator"
	"github.com/absmach/flcoord/pkg/broadcast"
	"github.com/absmach/flcoord/pkg/checkpoint"
	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/mqtt"
	mqttmocks "github.com/absmach/flcoord/pkg/mqtt/mocks"
	"github.com/absmach/flcoord/pkg/registry"
	"github.com/absmach/flcoord/pkg/round"
	"github.com/absmach/flcoord/pkg/selector"
	"github.com/absmach/flcoord/pkg/storage"
	"github.com/fxamacker/cbor/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	domainID  = "domain"
	channelID = "channel"
)

var testShape = fl.ModelShape{
	Name: "test",
	Parameters: []fl.ParameterSpec{
		{Name: "w", Shape: []int{2}},
		{Name: "b", Shape: []int{1}},
	},
}

type recorder struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
}

func (r *recorder) Send(_ context.Context, msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)

	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true

	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.msgs)
}

type fixture struct {
	svc         coordinator.Service
	reg         *registry.Registry
	ctrl        *round.Controller
	checkpoints *checkpoint.Store
	gauges      *coordinator.Gauges
}

func newFixture(t *testing.T, pubsub mqtt.PubSub) fixture {
	t.Helper()

	logger := slog.Default()
	reg := registry.New(logger)
	sel, err := selector.New(1.0, selector.FixedSeed(7))
	require.NoError(t, err)
	store := storage.WithDimension(storage.NewInMemoryStorage(), testShape.Size())
	cps, err := checkpoint.NewStore(t.TempDir(), nil, logger)
	require.NoError(t, err)
	gauges, err := coordinator.NewGauges(prometheus.NewRegistry())
	require.NoError(t, err)

	ctrl := round.NewController(round.Config{
		Registry:    reg,
		Selector:    sel,
		Notifier:    broadcast.New(logger),
		Store:       store,
		Aggregator:  fl.NewMeanAggregator(),
		Checkpoints: cps,
		Shape:       testShape,
	}, logger)

	svc := coordinator.NewService(coordinator.Config{
		Registry:    reg,
		Controller:  ctrl,
		Store:       store,
		Checkpoints: cps,
		PubSub:      pubsub,
		DomainID:    domainID,
		ChannelID:   channelID,
		Gauges:      gauges,
	}, logger)

	return fixture{svc: svc, reg: reg, ctrl: ctrl, checkpoints: cps, gauges: gauges}
}

func TestConnect(t *testing.T) {
	cases := []struct {
		desc     string
		clientID string
		handle   registry.Handle
		err      error
	}{
		{
			desc:     "connect client",
			clientID: "client-1",
			handle:   &recorder{},
		},
		{
			desc:     "connect with empty id",
			clientID: "",
			handle:   &recorder{},
			err:      pkgerrors.ErrEmptyKey,
		},
		{
			desc:     "connect without handle",
			clientID: "client-1",
			err:      pkgerrors.ErrInvalidData,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			f := newFixture(t, nil)
			err := f.svc.Connect(context.Background(), tc.clientID, tc.handle)
			assert.ErrorIs(t, err, tc.err)
			if tc.err != nil {
				return
			}

			clients, err := f.svc.ListClients(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{tc.clientID}, clients)
			assert.InDelta(t, 1, testutil.ToFloat64(f.gauges.LiveClients), 0)
		})
	}
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	old := &recorder{}
	replacement := &recorder{}
	require.NoError(t, f.svc.Connect(ctx, "client-1", old))
	require.NoError(t, f.svc.Connect(ctx, "client-1", replacement))
	assert.True(t, old.closed, "replaced handle should be closed")

	// A late disconnect from the replaced connection keeps the new one.
	require.NoError(t, f.svc.Disconnect(ctx, "client-1", old))
	clients, err := f.svc.ListClients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"client-1"}, clients)

	require.NoError(t, f.svc.Disconnect(ctx, "client-1", replacement))
	clients, err = f.svc.ListClients(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)

	require.NoError(t, f.svc.Disconnect(ctx, "missing", nil))
	assert.ErrorIs(t, f.svc.Disconnect(ctx, "", nil), pkgerrors.ErrEmptyKey)
}

func TestRoundLifecycle(t *testing.T) {
	ctx := context.Background()
	pubsub := &mqttmocks.MockPubSub{}
	pubsub.On("Publish", mock.Anything, mqtt.NextRoundTopic(domainID, channelID), coordinator.NextRound{
		Round:         1,
		PreviousRound: 0,
		Clients:       2,
	}).Return(nil).Once()
	f := newFixture(t, pubsub)

	a, b := &recorder{}, &recorder{}
	require.NoError(t, f.svc.Connect(ctx, "a", a))
	require.NoError(t, f.svc.Connect(ctx, "b", b))

	// Nothing is collected before the round opens.
	err := f.svc.SubmitUpdate(ctx, fl.Submission{Round: 0, ClientID: "a", Params: []float64{100, 100, 100}})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidState)

	report, err := f.svc.StartRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), report.Round)
	assert.ElementsMatch(t, []string{"a", "b"}, report.Participants)
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())

	// Connected after selection, so outside the round.
	require.NoError(t, f.svc.Connect(ctx, "late", &recorder{}))

	cases := []struct {
		desc string
		sub  fl.Submission
		err  error
	}{
		{
			desc: "submit for current round",
			sub:  fl.Submission{Round: 0, ClientID: "a", Params: []float64{1, 2, 3}},
		},
		{
			desc: "submit wrong dimension",
			sub:  fl.Submission{Round: 0, ClientID: "b", Params: []float64{1}},
			err:  pkgerrors.ErrDimensionMismatch,
		},
		{
			desc: "submit for future round",
			sub:  fl.Submission{Round: 5, ClientID: "b", Params: []float64{1, 2, 3}},
			err:  pkgerrors.ErrStaleRound,
		},
		{
			desc: "submit without client id",
			sub:  fl.Submission{Round: 0, Params: []float64{1, 2, 3}},
			err:  pkgerrors.ErrEmptyKey,
		},
		{
			desc: "submit from client never connected",
			sub:  fl.Submission{Round: 0, ClientID: "ghost", Params: []float64{100, 100, 100}},
			err:  pkgerrors.ErrNotParticipant,
		},
		{
			desc: "submit from client connected after selection",
			sub:  fl.Submission{Round: 0, ClientID: "late", Params: []float64{100, 100, 100}},
			err:  pkgerrors.ErrNotParticipant,
		},
		{
			desc: "submit NaN",
			sub:  fl.Submission{Round: 0, ClientID: "b", Params: []float64{1, math.NaN(), 3}},
			err:  pkgerrors.ErrInvalidData,
		},
		{
			desc: "submit infinity",
			sub:  fl.Submission{Round: 0, ClientID: "b", Params: []float64{1, 2, math.Inf(1)}},
			err:  pkgerrors.ErrInvalidData,
		},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.ErrorIs(t, f.svc.SubmitUpdate(ctx, tc.sub), tc.err)
		})
	}

	nan, err := cbor.Marshal(map[string]any{"params": []float64{math.NaN(), 4, 5}})
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.SubmitUpdateCBOR(ctx, 0, "b", nan), pkgerrors.ErrInvalidData)

	data, err := cbor.Marshal(map[string]any{"params": []float64{3, 4, 5}})
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitUpdateCBOR(ctx, 0, "b", data))
	assert.ErrorIs(t, f.svc.SubmitUpdateCBOR(ctx, 0, "b", []byte{0xff}), pkgerrors.ErrInvalidData)

	status, err := f.svc.RoundStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, round.Collecting, status.State)
	assert.Equal(t, 2, status.Submissions)

	cp, err := f.svc.CloseCollectionAndAggregate(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cp.Round)
	assert.Equal(t, []float64{2, 3, 4}, cp.Params)
	assert.Equal(t, uint64(1), f.ctrl.CurrentRound())
	assert.InDelta(t, 1, testutil.ToFloat64(f.gauges.CurrentRound), 0)
	pubsub.AssertExpectations(t)

	// Round 0 is closed: its submissions are refused from now on.
	err = f.svc.SubmitUpdate(ctx, fl.Submission{Round: 0, ClientID: "a", Params: []float64{9, 9, 9}})
	assert.ErrorIs(t, err, pkgerrors.ErrStaleRound)
	err = f.svc.SubmitUpdate(ctx, fl.Submission{Round: 1, ClientID: "a", Params: []float64{9, 9, 9}})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidState)

	latest, err := f.svc.GetCheckpoint(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, cp.Params, latest.Params)

	zero := uint64(0)
	byRound, err := f.svc.GetCheckpoint(ctx, &zero)
	require.NoError(t, err)
	assert.Equal(t, cp.Params, byRound.Params)

	missing := uint64(42)
	_, err = f.svc.GetCheckpoint(ctx, &missing)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	raw, err := f.svc.ExportCheckpoint(ctx, nil, checkpoint.FormatCBOR)
	require.NoError(t, err)
	decoded, err := checkpoint.DecodeCBOR(raw)
	require.NoError(t, err)
	assert.Equal(t, cp.Params, decoded.Params)
	assert.Equal(t, []string{"a", "b"}, decoded.Clients)
}

func TestAggregateFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.CloseCollectionAndAggregate(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidState)

	_, err = f.svc.StartRound(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrNoParticipantsAvailable)

	require.NoError(t, f.svc.Connect(ctx, "a", &recorder{}))
	_, err = f.svc.StartRound(ctx)
	require.NoError(t, err)

	_, err = f.svc.StartRound(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrRoundInProgress)

	_, err = f.svc.CloseCollectionAndAggregate(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrEmptySubmissionSet)
	assert.Equal(t, uint64(0), f.ctrl.CurrentRound())
}

func TestAggregateLargeValues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.svc.Connect(ctx, "a", &recorder{}))
	require.NoError(t, f.svc.Connect(ctx, "b", &recorder{}))

	for i := range 2 {
		_, err := f.svc.StartRound(ctx)
		require.NoError(t, err)

		roundNum := uint64(i)
		big := []float64{1.7e308, -1.7e308, math.MaxFloat64}
		require.NoError(t, f.svc.SubmitUpdate(ctx, fl.Submission{Round: roundNum, ClientID: "a", Params: big}))
		require.NoError(t, f.svc.SubmitUpdate(ctx, fl.Submission{Round: roundNum, ClientID: "b", Params: big}))

		cp, err := f.svc.CloseCollectionAndAggregate(ctx)
		require.NoError(t, err)
		assert.Equal(t, big, cp.Params)
		assert.Equal(t, roundNum+1, f.ctrl.CurrentRound())
	}
}

func TestMQTTClients(t *testing.T) {
	ctx := context.Background()
	pubsub := &mqttmocks.MockPubSub{}

	var handler mqtt.Handler
	pubsub.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			handler = args.Get(2).(mqtt.Handler)
		}).
		Return(nil).Times(3)
	roundsTopic := mqtt.ClientRoundsTopic(domainID, channelID, "m1")
	pubsub.On("Publish", mock.Anything, roundsTopic, mock.Anything).Return(nil).Once()

	f := newFixture(t, pubsub)
	require.NoError(t, f.svc.Subscribe(ctx))
	require.NotNil(t, handler)

	alive := mqtt.ClientsAliveTopic(domainID, channelID)
	offline := mqtt.ClientsOfflineTopic(domainID, channelID)
	m1Submissions := mqtt.ClientSubmissionsTopic(domainID, channelID, "m1")

	require.NoError(t, handler(alive, map[string]any{"client_id": "m1"}))
	assert.Error(t, handler(alive, map[string]any{}))

	clients, err := f.svc.ListClients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, clients)

	report, err := f.svc.StartRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, report.Delivered)

	cases := []struct {
		desc  string
		topic string
		msg   map[string]any
		err   error
	}{
		{
			desc:  "valid submission",
			topic: m1Submissions,
			msg:   map[string]any{"round": float64(0), "params": []any{1.0, 2.0, 3.0}},
		},
		{
			desc:  "payload naming the topic client",
			topic: m1Submissions,
			msg:   map[string]any{"client_id": "m1", "round": float64(0), "params": []any{1.0, 2.0, 3.0}},
		},
		{
			desc:  "payload naming another client",
			topic: mqtt.ClientSubmissionsTopic(domainID, channelID, "m2"),
			msg:   map[string]any{"client_id": "m1", "round": float64(0), "params": []any{9.0, 9.0, 9.0}},
			err:   pkgerrors.ErrAuthentication,
		},
		{
			desc:  "client outside the round",
			topic: mqtt.ClientSubmissionsTopic(domainID, channelID, "m2"),
			msg:   map[string]any{"round": float64(0), "params": []any{9.0, 9.0, 9.0}},
			err:   pkgerrors.ErrNotParticipant,
		},
		{
			desc:  "non numeric params",
			topic: m1Submissions,
			msg:   map[string]any{"round": float64(0), "params": []any{"x"}},
			err:   pkgerrors.ErrInvalidData,
		},
		{
			desc:  "fractional round",
			topic: m1Submissions,
			msg:   map[string]any{"round": 0.5, "params": []any{1.0, 2.0, 3.0}},
			err:   pkgerrors.ErrInvalidData,
		},
		{
			desc:  "stale round",
			topic: m1Submissions,
			msg:   map[string]any{"round": float64(3), "params": []any{1.0, 2.0, 3.0}},
			err:   pkgerrors.ErrStaleRound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.ErrorIs(t, handler(tc.topic, tc.msg), tc.err)
		})
	}

	status, err := f.svc.RoundStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Submissions)

	// An offline notice for a client now on a websocket leaves it connected.
	require.NoError(t, f.svc.Connect(ctx, "w1", &recorder{}))
	require.NoError(t, handler(offline, map[string]any{"client_id": "w1"}))
	require.NoError(t, handler(offline, map[string]any{"client_id": "m1"}))

	clients, err = f.svc.ListClients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, clients)
	pubsub.AssertExpectations(t)
}

func TestShutdown(t *testing.T) {
	ctx := context.Background()
	pubsub := &mqttmocks.MockPubSub{}
	pubsub.On("Unsubscribe", mock.Anything, mock.Anything).Return(nil).Times(3)
	pubsub.On("Disconnect", mock.Anything).Return(nil).Once()

	f := newFixture(t, pubsub)
	h := &recorder{}
	require.NoError(t, f.svc.Connect(ctx, "a", h))

	require.NoError(t, f.svc.Shutdown(ctx))
	assert.True(t, h.closed)
	assert.Equal(t, 0, f.reg.Len())
	pubsub.AssertExpectations(t)
}
