// Package round drives federated-learning rounds through
// idle -> selecting -> notifying -> collecting -> aggregating -> idle.
//
// The controller is the only writer of the round number. It advances by one
// after a checkpoint has been saved and never otherwise. Transitions are
// claimed under a lock which is released while clients are notified and
// while the store is read, then taken again to commit the outcome.
package round

import (
	"context"
	"fmt"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/absmach/flcoord/pkg/broadcast"
	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/storage"
)

// Registry is the view of connected clients the controller needs.
type Registry interface {
	broadcast.Sender
	LiveClients() []string
}

type Selector interface {
	Select(live []string) ([]string, int64, error)
}

type Notifier interface {
	NotifyRound(ctx context.Context, round uint64, participants []string, sender broadcast.Sender) broadcast.Report
}

type CheckpointStore interface {
	Save(ctx context.Context, cp fl.Checkpoint) error
}

type StartReport struct {
	Round        uint64   `json:"round"`
	Seed         int64    `json:"seed"`
	Participants []string `json:"participants"`
	Delivered    []string `json:"delivered"`
	Skipped      []string `json:"skipped"`
}

type Status struct {
	Round        uint64   `json:"round"`
	State        State    `json:"state"`
	Participants []string `json:"participants"`
	Submissions  int      `json:"submissions"`
}

type Config struct {
	Registry    Registry
	Selector    Selector
	Notifier    Notifier
	Store       storage.RoundStore
	Aggregator  fl.Aggregator
	Checkpoints CheckpointStore
	Shape       fl.ModelShape
	// StartRound is the first round number, normally recovered from the
	// newest saved checkpoint.
	StartRound uint64
}

type Controller struct {
	mu           sync.Mutex
	round        uint64
	state        State
	participants []string

	registry    Registry
	selector    Selector
	notifier    Notifier
	store       storage.RoundStore
	aggregator  fl.Aggregator
	checkpoints CheckpointStore
	shape       fl.ModelShape
	logger      *slog.Logger
}

func NewController(cfg Config, logger *slog.Logger) *Controller {
	return &Controller{
		round:       cfg.StartRound,
		state:       Idle,
		registry:    cfg.Registry,
		selector:    cfg.Selector,
		notifier:    cfg.Notifier,
		store:       cfg.Store,
		aggregator:  cfg.Aggregator,
		checkpoints: cfg.Checkpoints,
		shape:       cfg.Shape,
		logger:      logger,
	}
}

func (c *Controller) CurrentRound() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.round
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// StartRound selects participants among live clients and notifies them.
// It fails with ErrRoundInProgress unless the controller is idle, and with
// ErrNoParticipantsAvailable when nobody is connected; neither changes the
// round number.
func (c *Controller) StartRound(ctx context.Context) (StartReport, error) {
	c.mu.Lock()
	if c.state != Idle {
		round, state := c.round, c.state
		c.mu.Unlock()

		return StartReport{}, fmt.Errorf("%w: round %d is %s", pkgerrors.ErrRoundInProgress, round, state)
	}
	c.state = Selecting
	round := c.round
	c.mu.Unlock()

	live := c.registry.LiveClients()
	participants, seed, err := c.selector.Select(live)
	if err == nil && len(participants) == 0 {
		err = pkgerrors.ErrNoParticipantsAvailable
	}
	if err != nil {
		c.transition(Idle, nil)

		return StartReport{}, err
	}

	c.transition(Notifying, participants)
	c.logger.Info("Round participants selected",
		slog.Uint64("round", round),
		slog.Int("live", len(live)),
		slog.Any("participants", participants),
		slog.Int64("seed", seed),
	)

	report := c.notifier.NotifyRound(ctx, round, participants, c.registry)

	c.transition(Collecting, participants)

	return StartReport{
		Round:        round,
		Seed:         seed,
		Participants: participants,
		Delivered:    report.Delivered,
		Skipped:      report.Skipped,
	}, nil
}

// CloseCollectionAndAggregate averages the submissions of the current round,
// saves the checkpoint and advances the round. An empty, inconsistent or
// non-finite submission set aborts the round; read and save failures leave
// it collecting so the trigger can be retried.
func (c *Controller) CloseCollectionAndAggregate(ctx context.Context) (fl.Checkpoint, error) {
	c.mu.Lock()
	if c.state != Collecting {
		state := c.state
		c.mu.Unlock()

		return fl.Checkpoint{}, fmt.Errorf("%w: cannot aggregate while %s", pkgerrors.ErrInvalidState, state)
	}
	c.state = Aggregating
	round := c.round
	participants := c.participants
	c.mu.Unlock()

	submissions, err := c.store.Get(ctx, round)
	if err != nil {
		c.transition(Collecting, participants)

		return fl.Checkpoint{}, fmt.Errorf("failed to read round %d submissions: %w", round, err)
	}

	params, err := c.aggregator.Aggregate(submissions)
	if err != nil {
		c.abort(round, err)

		return fl.Checkpoint{}, err
	}

	cp, err := fl.BuildCheckpoint(params, c.shape)
	if err != nil {
		c.abort(round, err)

		return fl.Checkpoint{}, err
	}
	cp.Round = round
	cp.Clients = sortedKeys(submissions)

	if err := c.checkpoints.Save(ctx, cp); err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidData) {
			c.abort(round, err)

			return fl.Checkpoint{}, err
		}
		c.transition(Collecting, participants)

		return fl.Checkpoint{}, fmt.Errorf("failed to save round %d checkpoint: %w", round, err)
	}

	c.mu.Lock()
	c.round++
	c.state = Idle
	c.participants = nil
	c.mu.Unlock()

	c.logger.Info("Round aggregated",
		slog.Uint64("round", round),
		slog.Int("submissions", len(submissions)),
	)

	return cp, nil
}

// Accepts reports whether clientID may submit for roundNum: the round must be
// the current one, its participants notified or collecting, and the client
// one of them.
func (c *Controller) Accepts(roundNum uint64, clientID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if roundNum != c.round {
		return fmt.Errorf("%w: got round %d, current round is %d", pkgerrors.ErrStaleRound, roundNum, c.round)
	}
	if c.state != Notifying && c.state != Collecting {
		return fmt.Errorf("%w: round %d is %s", pkgerrors.ErrInvalidState, c.round, c.state)
	}
	if !slices.Contains(c.participants, clientID) {
		return fmt.Errorf("%w: %s in round %d", pkgerrors.ErrNotParticipant, clientID, c.round)
	}

	return nil
}

// Status reports the current round and how many submissions it holds.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	c.mu.Lock()
	st := Status{
		Round:        c.round,
		State:        c.state,
		Participants: append([]string{}, c.participants...),
	}
	c.mu.Unlock()

	count, err := c.store.Count(ctx, st.Round)
	if err != nil {
		return Status{}, err
	}
	st.Submissions = count

	return st, nil
}

func (c *Controller) transition(state State, participants []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = state
	c.participants = participants
}

func (c *Controller) abort(round uint64, err error) {
	c.transition(Idle, nil)
	c.logger.Warn("Round aborted", slog.Uint64("round", round), slog.Any("error", err))
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
