package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/absmach/flcoord/pkg/checkpoint"
	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/mqtt"
	"github.com/absmach/flcoord/pkg/registry"
	"github.com/absmach/flcoord/pkg/round"
	"github.com/absmach/flcoord/pkg/storage"
	"github.com/fxamacker/cbor/v2"
)

type Config struct {
	Registry    *registry.Registry
	Controller  *round.Controller
	Store       storage.RoundStore
	Checkpoints *checkpoint.Store
	// PubSub is optional; without it the coordinator serves websocket clients only.
	PubSub    mqtt.PubSub
	DomainID  string
	ChannelID string
	Gauges    *Gauges
}

type service struct {
	registry    *registry.Registry
	controller  *round.Controller
	store       storage.RoundStore
	checkpoints *checkpoint.Store
	pubsub      mqtt.PubSub
	domainID    string
	channelID   string
	gauges      *Gauges
	logger      *slog.Logger
}

func NewService(cfg Config, logger *slog.Logger) Service {
	svc := &service{
		registry:    cfg.Registry,
		controller:  cfg.Controller,
		store:       cfg.Store,
		checkpoints: cfg.Checkpoints,
		pubsub:      cfg.PubSub,
		domainID:    cfg.DomainID,
		channelID:   cfg.ChannelID,
		gauges:      cfg.Gauges,
		logger:      logger,
	}
	svc.gauges.setRound(svc.controller.CurrentRound())

	return svc
}

func (svc *service) ListClients(_ context.Context) ([]string, error) {
	return svc.registry.LiveClients(), nil
}

func (svc *service) Connect(_ context.Context, clientID string, handle registry.Handle) error {
	if clientID == "" {
		return pkgerrors.ErrEmptyKey
	}
	if handle == nil {
		return fmt.Errorf("%w: nil connection handle", pkgerrors.ErrInvalidData)
	}

	svc.registry.Register(clientID, handle)
	svc.gauges.setLive(svc.registry.Len())

	return nil
}

func (svc *service) Disconnect(_ context.Context, clientID string, handle registry.Handle) error {
	if clientID == "" {
		return pkgerrors.ErrEmptyKey
	}

	if handle == nil {
		svc.registry.Unregister(clientID)
	} else {
		svc.registry.UnregisterHandle(clientID, handle)
	}
	svc.gauges.setLive(svc.registry.Len())

	return nil
}

func (svc *service) StartRound(ctx context.Context) (round.StartReport, error) {
	return svc.controller.StartRound(ctx)
}

func (svc *service) CloseCollectionAndAggregate(ctx context.Context) (fl.Checkpoint, error) {
	cp, err := svc.controller.CloseCollectionAndAggregate(ctx)
	if err != nil {
		return fl.Checkpoint{}, err
	}

	next := svc.controller.CurrentRound()
	svc.gauges.setRound(next)
	svc.publishNextRound(ctx, NextRound{
		Round:         next,
		PreviousRound: cp.Round,
		Clients:       len(cp.Clients),
	})

	return cp, nil
}

func (svc *service) publishNextRound(ctx context.Context, msg NextRound) {
	if svc.pubsub == nil {
		return
	}

	topic := mqtt.NextRoundTopic(svc.domainID, svc.channelID)
	if err := svc.pubsub.Publish(ctx, topic, msg); err != nil {
		svc.logger.Warn("Failed to publish next round",
			slog.Uint64("round", msg.Round),
			slog.Any("error", err),
		)
	}
}

func (svc *service) RoundStatus(ctx context.Context) (round.Status, error) {
	return svc.controller.Status(ctx)
}

func (svc *service) SubmitUpdate(ctx context.Context, sub fl.Submission) error {
	if sub.ClientID == "" {
		return pkgerrors.ErrEmptyKey
	}
	if err := svc.controller.Accepts(sub.Round, sub.ClientID); err != nil {
		return err
	}

	return svc.store.Put(ctx, sub.Round, sub.ClientID, sub.Params)
}

type cborUpdate struct {
	Params []float64 `cbor:"params"`
}

func (svc *service) SubmitUpdateCBOR(ctx context.Context, roundNum uint64, clientID string, data []byte) error {
	var update cborUpdate
	if err := cbor.Unmarshal(data, &update); err != nil {
		return errors.Join(pkgerrors.ErrInvalidData, err)
	}

	return svc.SubmitUpdate(ctx, fl.Submission{
		Round:    roundNum,
		ClientID: clientID,
		Params:   update.Params,
	})
}

func (svc *service) GetCheckpoint(ctx context.Context, roundNum *uint64) (fl.Checkpoint, error) {
	if roundNum == nil {
		return svc.checkpoints.Latest(ctx)
	}

	return svc.checkpoints.Get(ctx, *roundNum)
}

func (svc *service) ExportCheckpoint(ctx context.Context, roundNum *uint64, format checkpoint.Format) ([]byte, error) {
	if roundNum == nil {
		return svc.checkpoints.LatestBytes(ctx, format)
	}

	return svc.checkpoints.RoundBytes(ctx, *roundNum, format)
}

func (svc *service) Subscribe(ctx context.Context) error {
	if svc.pubsub == nil {
		return nil
	}

	handler := svc.handle(ctx)
	for _, topic := range svc.topics() {
		if err := svc.pubsub.Subscribe(ctx, topic, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}

	return nil
}

func (svc *service) topics() []string {
	return []string{
		mqtt.ClientsAliveTopic(svc.domainID, svc.channelID),
		mqtt.ClientsOfflineTopic(svc.domainID, svc.channelID),
		mqtt.SubmissionsTopic(svc.domainID, svc.channelID),
	}
}

func (svc *service) Shutdown(ctx context.Context) error {
	var errs []error

	if svc.pubsub != nil {
		for _, topic := range svc.topics() {
			if err := svc.pubsub.Unsubscribe(ctx, topic); err != nil {
				errs = append(errs, err)
			}
		}
		if err := svc.pubsub.Disconnect(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	svc.registry.Close()
	svc.gauges.setLive(0)

	if err := svc.store.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
