package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")

	// ErrNotConnected is returned when a message targets a client without a live connection.
	ErrNotConnected = errors.New("client not connected")
	// ErrDimensionMismatch is returned when a parameter vector does not match the model size.
	ErrDimensionMismatch = errors.New("parameter vector dimension mismatch")
	// ErrEmptySubmissionSet is returned when a round has nothing to aggregate.
	ErrEmptySubmissionSet = errors.New("no submissions to aggregate")
	// ErrNoParticipantsAvailable is returned when a round is started with no live clients.
	ErrNoParticipantsAvailable = errors.New("no participants available")
	// ErrRoundInProgress is returned when a round is started while another one is running.
	ErrRoundInProgress = errors.New("round already in progress")

	ErrStaleRound      = errors.New("submission targets a round that is not current")
	ErrNotParticipant  = errors.New("client is not a participant of the round")
	ErrInvalidFraction = errors.New("selection fraction must be in (0, 1]")
	ErrInvalidState    = errors.New("operation not allowed in current round state")
	ErrAuthentication  = errors.New("failed to identify client")
)
