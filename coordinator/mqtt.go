package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/mqtt"
	"github.com/absmach/flcoord/pkg/registry"
)

var errInvalidClientID = errors.New("invalid client_id")

func (svc *service) handle(ctx context.Context) mqtt.Handler {
	alive := mqtt.ClientsAliveTopic(svc.domainID, svc.channelID)
	offline := mqtt.ClientsOfflineTopic(svc.domainID, svc.channelID)

	return func(topic string, msg map[string]any) error {
		switch topic {
		case alive:
			return svc.clientAlive(ctx, msg)
		case offline:
			return svc.clientOffline(ctx, msg)
		}
		if id, ok := mqtt.SubmissionClientID(svc.domainID, svc.channelID, topic); ok {
			return svc.mqttSubmission(ctx, id, msg)
		}

		return nil
	}
}

func clientID(msg map[string]any) (string, error) {
	id, ok := msg["client_id"].(string)
	if !ok || id == "" {
		return "", errInvalidClientID
	}

	return id, nil
}

func (svc *service) clientAlive(ctx context.Context, msg map[string]any) error {
	id, err := clientID(msg)
	if err != nil {
		return err
	}

	// Heartbeats from a client already connected over MQTT keep its entry.
	if c, ok := svc.registry.Get(id); ok {
		if _, isMQTT := c.Handle.(*registry.MQTTHandle); isMQTT {
			return nil
		}
	}

	if err := svc.Connect(ctx, id, registry.NewMQTTHandle(svc.pubsub, svc.domainID, svc.channelID, id)); err != nil {
		return err
	}
	svc.logger.InfoContext(ctx, "Client connected over MQTT", slog.String("client_id", id))

	return nil
}

// clientOffline only drops MQTT connections; a client that moved to a
// websocket keeps it.
func (svc *service) clientOffline(ctx context.Context, msg map[string]any) error {
	id, err := clientID(msg)
	if err != nil {
		return err
	}

	c, ok := svc.registry.Get(id)
	if !ok {
		return nil
	}
	if _, isMQTT := c.Handle.(*registry.MQTTHandle); !isMQTT {
		return nil
	}

	return svc.Disconnect(ctx, id, c.Handle)
}

// mqttSubmission stores an update published on the submitting client's own
// topic; a client_id in the payload must name the same client.
func (svc *service) mqttSubmission(ctx context.Context, id string, msg map[string]any) error {
	if claimed, ok := msg["client_id"]; ok && claimed != id {
		return fmt.Errorf("%w: payload names %v on the topic of %s", pkgerrors.ErrAuthentication, claimed, id)
	}

	roundNum, ok := msg["round"].(float64)
	if !ok || roundNum < 0 || roundNum != float64(uint64(roundNum)) {
		return fmt.Errorf("%w: invalid round", pkgerrors.ErrInvalidData)
	}

	raw, ok := msg["params"].([]any)
	if !ok {
		return fmt.Errorf("%w: invalid params", pkgerrors.ErrInvalidData)
	}
	params := make([]float64, len(raw))
	for i, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("%w: params[%d] is not a number", pkgerrors.ErrInvalidData, i)
		}
		params[i] = f
	}

	return svc.SubmitUpdate(ctx, fl.Submission{
		Round:    uint64(roundNum),
		ClientID: id,
		Params:   params,
	})
}
