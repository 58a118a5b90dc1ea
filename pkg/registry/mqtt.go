package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/absmach/flcoord/pkg/mqtt"
)

var _ Handle = (*MQTTHandle)(nil)

// MQTTHandle delivers messages to a client over its per-client MQTT topic.
// Closing it does not touch the shared broker connection.
type MQTTHandle struct {
	pubsub mqtt.PubSub
	topic  string
}

func NewMQTTHandle(pubsub mqtt.PubSub, domainID, channelID, clientID string) *MQTTHandle {
	return &MQTTHandle{
		pubsub: pubsub,
		topic:  mqtt.ClientRoundsTopic(domainID, channelID, clientID),
	}
}

func (h *MQTTHandle) Topic() string {
	return h.topic
}

func (h *MQTTHandle) Send(ctx context.Context, msg []byte) error {
	if !json.Valid(msg) {
		return fmt.Errorf("mqtt handle: payload for %s is not valid JSON", h.topic)
	}

	return h.pubsub.Publish(ctx, h.topic, json.RawMessage(msg))
}

func (h *MQTTHandle) Close() error {
	return nil
}
