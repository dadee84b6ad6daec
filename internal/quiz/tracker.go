package quiz

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// MessageDeleter is the transport-side delete used by the tracker.
// Deletion is expected to fail sometimes (already-gone message, missing
// permission); those failures are swallowed here, never surfaced.
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, userID, messageID int64) error
}

// Tracker records which transient chat messages belong to a user's current
// interaction so they can be deleted reliably.
//
// Two disciplines coexist: the active-message slot replaces the last screen,
// the chain erases everything shown since a flow began (cancel, completion).
// A message may be tracked by both at once.
type Tracker struct {
	transport MessageDeleter
	log       zerolog.Logger

	mu     sync.Mutex
	states map[int64]*chainState
}

type chainState struct {
	active int64 // 0 means no active message
	chain  []int64
}

func NewTracker(transport MessageDeleter, log zerolog.Logger) *Tracker {
	return &Tracker{
		transport: transport,
		log:       log.With().Str("component", "tracker").Logger(),
		states:    make(map[int64]*chainState),
	}
}

// SetActiveMessage replaces the single tracked transient message. Callers must
// delete-then-set: "at most one active message" is a caller invariant, not
// enforced here.
func (t *Tracker) SetActiveMessage(userID, messageID int64) {
	t.mu.Lock()
	t.stateLocked(userID).active = messageID
	t.mu.Unlock()
}

// DeleteActiveMessage best-effort deletes the tracked message and clears the
// slot regardless of the outcome. The invariant protected is "don't show two
// menus at once", not "guarantee deletion".
func (t *Tracker) DeleteActiveMessage(ctx context.Context, userID int64) bool {
	t.mu.Lock()
	state := t.stateLocked(userID)
	id := state.active
	state.active = 0
	t.mu.Unlock()

	if id == 0 {
		return false
	}
	return t.tryDelete(ctx, userID, id)
}

// StartMessageChain resets the chain to a single message, marking the start
// of a multi-message interaction.
func (t *Tracker) StartMessageChain(userID, firstID int64) {
	t.mu.Lock()
	t.stateLocked(userID).chain = []int64{firstID}
	t.mu.Unlock()
}

// AddToMessageChain appends a message to the user's chain.
func (t *Tracker) AddToMessageChain(userID, messageID int64) {
	t.mu.Lock()
	state := t.stateLocked(userID)
	state.chain = append(state.chain, messageID)
	t.mu.Unlock()
}

// CleanupMessageChain deletes every chained message oldest-first, each
// independently best-effort, then discards the chain. Calling it again on an
// empty chain is a no-op. Returns the number of successful deletes.
func (t *Tracker) CleanupMessageChain(ctx context.Context, userID int64) int {
	t.mu.Lock()
	state := t.stateLocked(userID)
	chain := state.chain
	state.chain = nil
	t.mu.Unlock()

	deleted := 0
	for _, id := range chain {
		if t.tryDelete(ctx, userID, id) {
			deleted++
		}
	}
	return deleted
}

// Discard drops all tracking for a user without issuing deletes. Called on
// session teardown so no orphaned tracking survives.
func (t *Tracker) Discard(userID int64) {
	t.mu.Lock()
	delete(t.states, userID)
	t.mu.Unlock()
}

// tryDelete issues one best-effort delete and reports success. Failures are
// logged and swallowed: double-deletes and expired messages are expected.
func (t *Tracker) tryDelete(ctx context.Context, userID, messageID int64) bool {
	if err := t.transport.DeleteMessage(ctx, userID, messageID); err != nil {
		t.log.Debug().
			Int64("user_id", userID).
			Int64("message_id", messageID).
			Err(err).
			Msg("delete failed")
		return false
	}
	return true
}

func (t *Tracker) stateLocked(userID int64) *chainState {
	state, ok := t.states[userID]
	if !ok {
		state = &chainState{}
		t.states[userID] = state
	}
	return state
}
