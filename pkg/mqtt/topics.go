package mqtt

import (
	"fmt"
	"strings"
)

const topicPrefix = "m/%s/c/%s/fl"

func base(domainID, channelID string) string {
	return fmt.Sprintf(topicPrefix, domainID, channelID)
}

// ClientsAliveTopic carries {"client_id":...} announcements of joining clients.
func ClientsAliveTopic(domainID, channelID string) string {
	return base(domainID, channelID) + "/clients/alive"
}

// ClientsOfflineTopic carries leave announcements and last-will messages.
func ClientsOfflineTopic(domainID, channelID string) string {
	return base(domainID, channelID) + "/clients/offline"
}

// SubmissionsTopic is the subscription filter matching every client's
// submissions topic.
func SubmissionsTopic(domainID, channelID string) string {
	return ClientSubmissionsTopic(domainID, channelID, "+")
}

// ClientSubmissionsTopic is where clientID publishes its parameter updates.
func ClientSubmissionsTopic(domainID, channelID, clientID string) string {
	return fmt.Sprintf("%s/clients/%s/submissions", base(domainID, channelID), clientID)
}

// SubmissionClientID extracts the client id from a topic built by
// ClientSubmissionsTopic.
func SubmissionClientID(domainID, channelID, topic string) (string, bool) {
	prefix := base(domainID, channelID) + "/clients/"
	rest, ok := strings.CutPrefix(topic, prefix)
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/submissions")
	if !ok || id == "" || id == "+" || strings.ContainsAny(id, "/#") {
		return "", false
	}

	return id, true
}

func ClientRoundsTopic(domainID, channelID, clientID string) string {
	return fmt.Sprintf("%s/clients/%s/rounds", base(domainID, channelID), clientID)
}

// NextRoundTopic announces that a round was aggregated and the next one opened.
func NextRoundTopic(domainID, channelID string) string {
	return base(domainID, channelID) + "/rounds/next"
}
