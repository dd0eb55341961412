// Package actions tracks per-key submission state for UI action buttons.
// Each key (one protocol action on one entity) carries its own lifecycle, so
// two approvals racing on different requests can never smear failure onto
// each other.
package actions

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle     State = "idle"
	StateInFlight State = "in-flight"
	StateFailed   State = "failed"
)

// ErrInFlight is returned when an action is begun while a previous attempt
// on the same key has not settled.
var ErrInFlight = errors.New("action already in flight")

type Status struct {
	Key       string    `json:"key"`
	State     State     `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	AttemptID string    `json:"attemptId"`
	StartedAt time.Time `json:"startedAt"`
}

// Key builds a tracker key like "request/7" from an action scope and the
// entity's numeric id.
func Key(scope string, id uint64) string {
	return scope + "/" + strconv.FormatUint(id, 10)
}

type Tracker struct {
	mu    sync.Mutex
	byKey map[string]Status
}

func NewTracker() *Tracker {
	return &Tracker{byKey: make(map[string]Status)}
}

// Begin marks the key in-flight and returns the attempt id, replacing any
// previous failed state. A key already in flight is refused.
func (t *Tracker) Begin(key string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.byKey[key]; ok && cur.State == StateInFlight {
		return "", ErrInFlight
	}
	attempt := uuid.NewString()
	t.byKey[key] = Status{
		Key:       key,
		State:     StateInFlight,
		AttemptID: attempt,
		StartedAt: time.Now().UTC(),
	}
	return attempt, nil
}

// Fail records a failure reason for the key. The entry sticks around until
// the user retries or the list refreshes.
func (t *Tracker) Fail(key, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.byKey[key]
	if !ok {
		cur = Status{Key: key, StartedAt: time.Now().UTC()}
	}
	cur.State = StateFailed
	cur.Reason = reason
	t.byKey[key] = cur
}

// Resolve discards the key's entry; an absent key reads as idle.
func (t *Tracker) Resolve(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byKey, key)
}

// Reset discards everything, matching a full list refresh in the UI.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byKey = make(map[string]Status)
}

// ClearFailed discards failed entries while leaving in-flight attempts
// untouched. List refreshes call this so stale error badges disappear
// without orphaning a submission that is still awaiting confirmation.
func (t *Tracker) ClearFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, s := range t.byKey {
		if s.State == StateFailed {
			delete(t.byKey, key)
		}
	}
}

func (t *Tracker) Get(key string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.byKey[key]; ok {
		return cur
	}
	return Status{Key: key, State: StateIdle}
}

// Snapshot returns all live entries in stable key order.
func (t *Tracker) Snapshot() []Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Status, 0, len(t.byKey))
	for _, s := range t.byKey {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
