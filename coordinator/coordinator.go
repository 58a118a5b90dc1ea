package coordinator

import (
	"context"

	"github.com/absmach/flcoord/pkg/checkpoint"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/registry"
	"github.com/absmach/flcoord/pkg/round"
)

type Service interface {
	// ListClients returns the ids of clients holding a live connection.
	ListClients(ctx context.Context) ([]string, error)
	// Connect registers handle as the connection of clientID, replacing any previous one.
	Connect(ctx context.Context, clientID string, handle registry.Handle) error
	// Disconnect drops clientID. With a non-nil handle it only does so while
	// that handle is still the registered connection.
	Disconnect(ctx context.Context, clientID string, handle registry.Handle) error

	StartRound(ctx context.Context) (round.StartReport, error)
	CloseCollectionAndAggregate(ctx context.Context) (fl.Checkpoint, error)
	RoundStatus(ctx context.Context) (round.Status, error)

	// SubmitUpdate stores a parameter vector for the round it names, which
	// must be the current, open round with the client among its participants.
	SubmitUpdate(ctx context.Context, sub fl.Submission) error
	SubmitUpdateCBOR(ctx context.Context, roundNum uint64, clientID string, data []byte) error

	// GetCheckpoint returns the checkpoint of roundNum, or the canonical one when nil.
	GetCheckpoint(ctx context.Context, roundNum *uint64) (fl.Checkpoint, error)
	ExportCheckpoint(ctx context.Context, roundNum *uint64, format checkpoint.Format) ([]byte, error)

	Subscribe(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// NextRound is published once a round has been aggregated.
type NextRound struct {
	Round         uint64 `json:"round"`
	PreviousRound uint64 `json:"previous_round"`
	Clients       int    `json:"clients"`
}
