// Package payload implements the payload registry (§4.9): a concurrent map
// from PayloadID to its lifecycle state, tracking payloads from submission
// through sealing, including the delayed-payload path used when a
// payload's parent hasn't arrived yet.
package payload

import (
	"sync"

	"github.com/luxfi/hybridvm/apperror"
	"github.com/luxfi/hybridvm/types"
)

// Status is a payload's lifecycle state.
type Status uint8

const (
	StatusInProgress Status = iota
	StatusSealed
	StatusDelayed
)

// State is what the registry tracks for one PayloadID.
type State struct {
	Status     Status
	Attributes types.PayloadAttributes
	ParentHash types.B256 // the parent this payload is waiting on, set only while Delayed
	BlockHash  types.B256 // set once Status == StatusSealed
}

// Registry is the concurrent PayloadID -> State map (§4.9). Safe for
// concurrent use: begin/finish are called by the single-writer actor,
// get_delayed and reads may be called by concurrent application-reader
// queries.
type Registry struct {
	mu    sync.Mutex
	state map[types.PayloadID]*State
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{state: make(map[types.PayloadID]*State)}
}

// Begin records a payload as in-progress. A second Begin for an id already
// tracked returns AlreadyStarted (§4.9): "a PayloadId transitions at most
// once from in-progress to sealed".
func (r *Registry) Begin(id types.PayloadID, attrs types.PayloadAttributes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.state[id]; ok {
		return apperror.AlreadyStarted(uint64(id))
	}
	r.state[id] = &State{Status: StatusInProgress, Attributes: attrs}
	return nil
}

// Finish marks id sealed at blockHash. Finishing an id that was never
// begun, or one already sealed, is an invariant violation — the command
// actor calls Finish once per id, right after building that id's block.
func (r *Registry) Finish(id types.PayloadID, blockHash types.B256) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.state[id]
	if !ok || st.Status == StatusSealed {
		apperror.Invariant("payload %d finished without a matching in-progress begin", id)
	}
	st.Status = StatusSealed
	st.BlockHash = blockHash
}

// Delay marks id as waiting on parentHash, which hasn't arrived yet (§4.8
// step 7). Building resumes via PromoteOnParent once that hash is recorded.
func (r *Registry) Delay(id types.PayloadID, attrs types.PayloadAttributes, parentHash types.B256) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[id] = &State{Status: StatusDelayed, Attributes: attrs, ParentHash: parentHash}
}

// GetDelayed returns every payload currently waiting on a parent.
func (r *Registry) GetDelayed() map[types.PayloadID]types.PayloadAttributes {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[types.PayloadID]types.PayloadAttributes)
	for id, st := range r.state {
		if st.Status == StatusDelayed {
			out[id] = st.Attributes
		}
	}
	return out
}

// PromoteOnParent transitions every delayed payload whose parent hash now
// matches parentHash back to in-progress, returning their ids and
// attributes so the caller (the command actor) can re-attempt Build for
// each (§4.8 step 7, §4.9).
func (r *Registry) PromoteOnParent(parentHash types.B256) []PromotedPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	var promoted []PromotedPayload
	for id, st := range r.state {
		if st.Status != StatusDelayed {
			continue
		}
		if st.ParentHash != parentHash {
			continue
		}
		st.Status = StatusInProgress
		promoted = append(promoted, PromotedPayload{ID: id, Attributes: st.Attributes})
	}
	return promoted
}

// PromotedPayload is one payload returned by PromoteOnParent.
type PromotedPayload struct {
	ID         types.PayloadID
	Attributes types.PayloadAttributes
}

// Get returns the current state of id.
func (r *Registry) Get(id types.PayloadID) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.state[id]
	if !ok {
		return State{}, false
	}
	return *st, true
}
