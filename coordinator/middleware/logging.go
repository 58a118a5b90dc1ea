package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/flcoord/coordinator"
	"github.com/absmach/flcoord/pkg/checkpoint"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/registry"
	"github.com/absmach/flcoord/pkg/round"
)

var _ coordinator.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) ListClients(ctx context.Context) (clients []string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("count", len(clients)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List clients failed", args...)

			return
		}
		lm.logger.Info("List clients completed successfully", args...)
	}(time.Now())

	return lm.svc.ListClients(ctx)
}

func (lm *loggingMiddleware) Connect(ctx context.Context, clientID string, handle registry.Handle) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("client_id", clientID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Connect client failed", args...)

			return
		}
		lm.logger.Info("Connect client completed successfully", args...)
	}(time.Now())

	return lm.svc.Connect(ctx, clientID, handle)
}

func (lm *loggingMiddleware) Disconnect(ctx context.Context, clientID string, handle registry.Handle) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("client_id", clientID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Disconnect client failed", args...)

			return
		}
		lm.logger.Info("Disconnect client completed successfully", args...)
	}(time.Now())

	return lm.svc.Disconnect(ctx, clientID, handle)
}

func (lm *loggingMiddleware) StartRound(ctx context.Context) (report round.StartReport, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start round failed", args...)

			return
		}
		args = append(args,
			slog.Group("round",
				slog.Uint64("number", report.Round),
				slog.Int("participants", len(report.Participants)),
				slog.Int("delivered", len(report.Delivered)),
				slog.Int("skipped", len(report.Skipped)),
			),
		)
		lm.logger.Info("Start round completed successfully", args...)
	}(time.Now())

	return lm.svc.StartRound(ctx)
}

func (lm *loggingMiddleware) CloseCollectionAndAggregate(ctx context.Context) (cp fl.Checkpoint, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Aggregate round failed", args...)

			return
		}
		args = append(args,
			slog.Group("checkpoint",
				slog.Uint64("round", cp.Round),
				slog.Int("clients", len(cp.Clients)),
				slog.Int("params", len(cp.Params)),
			),
		)
		lm.logger.Info("Aggregate round completed successfully", args...)
	}(time.Now())

	return lm.svc.CloseCollectionAndAggregate(ctx)
}

func (lm *loggingMiddleware) RoundStatus(ctx context.Context) (status round.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Round status failed", args...)

			return
		}
		lm.logger.Debug("Round status completed successfully", args...)
	}(time.Now())

	return lm.svc.RoundStatus(ctx)
}

func (lm *loggingMiddleware) SubmitUpdate(ctx context.Context, sub fl.Submission) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("submission",
				slog.Uint64("round", sub.Round),
				slog.String("client_id", sub.ClientID),
				slog.Int("params", len(sub.Params)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit update failed", args...)

			return
		}
		lm.logger.Info("Submit update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdate(ctx, sub)
}

func (lm *loggingMiddleware) SubmitUpdateCBOR(ctx context.Context, roundNum uint64, clientID string, data []byte) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("submission",
				slog.Uint64("round", roundNum),
				slog.String("client_id", clientID),
				slog.Int("bytes", len(data)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit CBOR update failed", args...)

			return
		}
		lm.logger.Info("Submit CBOR update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdateCBOR(ctx, roundNum, clientID, data)
}

func (lm *loggingMiddleware) GetCheckpoint(ctx context.Context, roundNum *uint64) (cp fl.Checkpoint, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if roundNum != nil {
			args = append(args, slog.Uint64("round", *roundNum))
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get checkpoint failed", args...)

			return
		}
		lm.logger.Info("Get checkpoint completed successfully", args...)
	}(time.Now())

	return lm.svc.GetCheckpoint(ctx, roundNum)
}

func (lm *loggingMiddleware) ExportCheckpoint(ctx context.Context, roundNum *uint64, format checkpoint.Format) (data []byte, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("format", string(format)),
		}
		if roundNum != nil {
			args = append(args, slog.Uint64("round", *roundNum))
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Export checkpoint failed", args...)

			return
		}
		lm.logger.Info("Export checkpoint completed successfully", args...)
	}(time.Now())

	return lm.svc.ExportCheckpoint(ctx, roundNum, format)
}

func (lm *loggingMiddleware) Subscribe(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Subscribe failed", args...)

			return
		}
		lm.logger.Info("Subscribe completed successfully", args...)
	}(time.Now())

	return lm.svc.Subscribe(ctx)
}

func (lm *loggingMiddleware) Shutdown(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Shutdown failed", args...)

			return
		}
		lm.logger.Info("Shutdown completed successfully", args...)
	}(time.Now())

	return lm.svc.Shutdown(ctx)
}
