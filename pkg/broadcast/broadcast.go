// Package broadcast notifies selected participants that a round has started.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

const roundStartType = "round_start"

// Sender delivers one message to one client.
type Sender interface {
	Send(ctx context.Context, clientID string, msg []byte) error
}

// RoundStart is the message received by each participant.
type RoundStart struct {
	Type    string `json:"type"`
	Round   uint64 `json:"round"`
	Message string `json:"message"`
}

func NewRoundStart(round uint64) RoundStart {
	return RoundStart{
		Type:    roundStartType,
		Round:   round,
		Message: fmt.Sprintf("trigger_learning_round_%d", round),
	}
}

// Report lists which participants received the notification.
type Report struct {
	Delivered []string `json:"delivered"`
	Skipped   []string `json:"skipped"`
}

type Broadcaster struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{logger: logger}
}

// NotifyRound sends the round-start message to every participant once.
// Clients that cannot be reached are logged and skipped; the call itself
// never fails and nothing is retried.
func (b *Broadcaster) NotifyRound(ctx context.Context, round uint64, participants []string, sender Sender) Report {
	report := Report{
		Delivered: []string{},
		Skipped:   []string{},
	}

	msg, err := json.Marshal(NewRoundStart(round))
	if err != nil {
		b.logger.Error("Failed to encode round start message", slog.Uint64("round", round), slog.Any("error", err))
		report.Skipped = append(report.Skipped, participants...)

		return report
	}

	for _, id := range participants {
		if err := sender.Send(ctx, id, msg); err != nil {
			b.logger.Warn("Skipping participant",
				slog.Uint64("round", round),
				slog.String("client_id", id),
				slog.Any("error", err),
			)
			report.Skipped = append(report.Skipped, id)

			continue
		}
		report.Delivered = append(report.Delivered, id)
	}

	return report
}
