package mqtt_test

import (
	"testing"

	"github.com/absmach/flcoord/pkg/mqtt"
	"github.com/stretchr/testify/assert"
)

func TestTopics(t *testing.T) {
	cases := []struct {
		desc  string
		topic string
		want  string
	}{
		{desc: "alive", topic: mqtt.ClientsAliveTopic("d", "c"), want: "m/d/c/c/fl/clients/alive"},
		{desc: "offline", topic: mqtt.ClientsOfflineTopic("d", "c"), want: "m/d/c/c/fl/clients/offline"},
		{desc: "submissions filter", topic: mqtt.SubmissionsTopic("d", "c"), want: "m/d/c/c/fl/clients/+/submissions"},
		{desc: "client submissions", topic: mqtt.ClientSubmissionsTopic("d", "c", "alice"), want: "m/d/c/c/fl/clients/alice/submissions"},
		{desc: "client rounds", topic: mqtt.ClientRoundsTopic("d", "c", "alice"), want: "m/d/c/c/fl/clients/alice/rounds"},
		{desc: "next round", topic: mqtt.NextRoundTopic("d", "c"), want: "m/d/c/c/fl/rounds/next"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.topic)
		})
	}
}

func TestSubmissionClientID(t *testing.T) {
	cases := []struct {
		desc  string
		topic string
		id    string
		ok    bool
	}{
		{desc: "client topic", topic: mqtt.ClientSubmissionsTopic("d", "c", "alice"), id: "alice", ok: true},
		{desc: "other channel", topic: mqtt.ClientSubmissionsTopic("d", "other", "alice")},
		{desc: "rounds topic", topic: mqtt.ClientRoundsTopic("d", "c", "alice")},
		{desc: "alive topic", topic: mqtt.ClientsAliveTopic("d", "c")},
		{desc: "wildcard", topic: mqtt.SubmissionsTopic("d", "c")},
		{desc: "nested id", topic: "m/d/c/c/fl/clients/a/b/submissions"},
		{desc: "empty id", topic: "m/d/c/c/fl/clients//submissions"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			id, ok := mqtt.SubmissionClientID("d", "c", tc.topic)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.id, id)
		})
	}
}
