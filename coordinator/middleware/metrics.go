package middleware

import (
	"context"
	"time"

	"github.com/absmach/flcoord/coordinator"
	"github.com/absmach/flcoord/pkg/checkpoint"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/registry"
	"github.com/absmach/flcoord/pkg/round"
	"github.com/go-kit/kit/metrics"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) observe(method string, begin time.Time) {
	mm.counter.With("method", method).Add(1)
	mm.latency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mm *metricsMiddleware) ListClients(ctx context.Context) ([]string, error) {
	defer mm.observe("list-clients", time.Now())

	return mm.svc.ListClients(ctx)
}

func (mm *metricsMiddleware) Connect(ctx context.Context, clientID string, handle registry.Handle) error {
	defer mm.observe("connect", time.Now())

	return mm.svc.Connect(ctx, clientID, handle)
}

func (mm *metricsMiddleware) Disconnect(ctx context.Context, clientID string, handle registry.Handle) error {
	defer mm.observe("disconnect", time.Now())

	return mm.svc.Disconnect(ctx, clientID, handle)
}

func (mm *metricsMiddleware) StartRound(ctx context.Context) (round.StartReport, error) {
	defer mm.observe("start-round", time.Now())

	return mm.svc.StartRound(ctx)
}

func (mm *metricsMiddleware) CloseCollectionAndAggregate(ctx context.Context) (fl.Checkpoint, error) {
	defer mm.observe("aggregate-round", time.Now())

	return mm.svc.CloseCollectionAndAggregate(ctx)
}

func (mm *metricsMiddleware) RoundStatus(ctx context.Context) (round.Status, error) {
	defer mm.observe("round-status", time.Now())

	return mm.svc.RoundStatus(ctx)
}

func (mm *metricsMiddleware) SubmitUpdate(ctx context.Context, sub fl.Submission) error {
	defer mm.observe("submit-update", time.Now())

	return mm.svc.SubmitUpdate(ctx, sub)
}

func (mm *metricsMiddleware) SubmitUpdateCBOR(ctx context.Context, roundNum uint64, clientID string, data []byte) error {
	defer mm.observe("submit-update-cbor", time.Now())

	return mm.svc.SubmitUpdateCBOR(ctx, roundNum, clientID, data)
}

func (mm *metricsMiddleware) GetCheckpoint(ctx context.Context, roundNum *uint64) (fl.Checkpoint, error) {
	defer mm.observe("get-checkpoint", time.Now())

	return mm.svc.GetCheckpoint(ctx, roundNum)
}

func (mm *metricsMiddleware) ExportCheckpoint(ctx context.Context, roundNum *uint64, format checkpoint.Format) ([]byte, error) {
	defer mm.observe("export-checkpoint", time.Now())

	return mm.svc.ExportCheckpoint(ctx, roundNum, format)
}

func (mm *metricsMiddleware) Subscribe(ctx context.Context) error {
	defer mm.observe("subscribe", time.Now())

	return mm.svc.Subscribe(ctx)
}

func (mm *metricsMiddleware) Shutdown(ctx context.Context) error {
	defer mm.observe("shutdown", time.Now())

	return mm.svc.Shutdown(ctx)
}
