package middleware

import (
	"context"

	"github.com/absmach/flcoord/coordinator"
	"github.com/absmach/flcoord/pkg/checkpoint"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/registry"
	"github.com/absmach/flcoord/pkg/round"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) ListClients(ctx context.Context) ([]string, error) {
	ctx, span := tm.tracer.Start(ctx, "list-clients")
	defer span.End()

	return tm.svc.ListClients(ctx)
}

func (tm *tracing) Connect(ctx context.Context, clientID string, handle registry.Handle) error {
	ctx, span := tm.tracer.Start(ctx, "connect", trace.WithAttributes(
		attribute.String("client_id", clientID),
	))
	defer span.End()

	return tm.svc.Connect(ctx, clientID, handle)
}

func (tm *tracing) Disconnect(ctx context.Context, clientID string, handle registry.Handle) error {
	ctx, span := tm.tracer.Start(ctx, "disconnect", trace.WithAttributes(
		attribute.String("client_id", clientID),
	))
	defer span.End()

	return tm.svc.Disconnect(ctx, clientID, handle)
}

func (tm *tracing) StartRound(ctx context.Context) (round.StartReport, error) {
	ctx, span := tm.tracer.Start(ctx, "start-round")
	defer span.End()

	return tm.svc.StartRound(ctx)
}

func (tm *tracing) CloseCollectionAndAggregate(ctx context.Context) (fl.Checkpoint, error) {
	ctx, span := tm.tracer.Start(ctx, "aggregate-round")
	defer span.End()

	return tm.svc.CloseCollectionAndAggregate(ctx)
}

func (tm *tracing) RoundStatus(ctx context.Context) (round.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "round-status")
	defer span.End()

	return tm.svc.RoundStatus(ctx)
}

func (tm *tracing) SubmitUpdate(ctx context.Context, sub fl.Submission) error {
	ctx, span := tm.tracer.Start(ctx, "submit-update", trace.WithAttributes(
		attribute.Int64("round", int64(sub.Round)),
		attribute.String("client_id", sub.ClientID),
		attribute.Int("params", len(sub.Params)),
	))
	defer span.End()

	return tm.svc.SubmitUpdate(ctx, sub)
}

func (tm *tracing) SubmitUpdateCBOR(ctx context.Context, roundNum uint64, clientID string, data []byte) error {
	ctx, span := tm.tracer.Start(ctx, "submit-update-cbor", trace.WithAttributes(
		attribute.Int64("round", int64(roundNum)),
		attribute.String("client_id", clientID),
		attribute.Int("bytes", len(data)),
	))
	defer span.End()

	return tm.svc.SubmitUpdateCBOR(ctx, roundNum, clientID, data)
}

func (tm *tracing) GetCheckpoint(ctx context.Context, roundNum *uint64) (fl.Checkpoint, error) {
	ctx, span := tm.tracer.Start(ctx, "get-checkpoint")
	defer span.End()
	if roundNum != nil {
		span.SetAttributes(attribute.Int64("round", int64(*roundNum)))
	}

	return tm.svc.GetCheckpoint(ctx, roundNum)
}

func (tm *tracing) ExportCheckpoint(ctx context.Context, roundNum *uint64, format checkpoint.Format) ([]byte, error) {
	ctx, span := tm.tracer.Start(ctx, "export-checkpoint", trace.WithAttributes(
		attribute.String("format", string(format)),
	))
	defer span.End()
	if roundNum != nil {
		span.SetAttributes(attribute.Int64("round", int64(*roundNum)))
	}

	return tm.svc.ExportCheckpoint(ctx, roundNum, format)
}

func (tm *tracing) Subscribe(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "subscribe")
	defer span.End()

	return tm.svc.Subscribe(ctx)
}

func (tm *tracing) Shutdown(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "shutdown")
	defer span.End()

	return tm.svc.Shutdown(ctx)
}
