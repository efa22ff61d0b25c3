package state

import (
	"github.com/luxfi/hybridvm/apperror"
	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/types"
)

// HeightIndex is the append-only height→state-root index (§3, §8):
// once written, a height's root never changes.
type HeightIndex struct {
	store kv.Store
}

// NewHeightIndex opens a height index over store.
func NewHeightIndex(store kv.Store) *HeightIndex {
	return &HeightIndex{store: store}
}

// Root returns the state root recorded at height, if any.
func (h *HeightIndex) Root(height uint64) (types.B256, bool, error) {
	raw, ok, err := h.store.Get(kv.CFStateHeight, kv.Uint64Key(height))
	if err != nil || !ok {
		return types.B256{}, false, err
	}
	var root types.B256
	copy(root[:], raw)
	return root, true, nil
}

// Record appends height's state root. Recording a height that already has a
// different root is an invariant violation (§8: "append-only").
func (h *HeightIndex) Record(height uint64, root types.B256) error {
	existing, ok, err := h.Root(height)
	if err != nil {
		return err
	}
	if ok {
		if existing != root {
			apperror.Invariant("height %d already recorded with root %s, got %s", height, existing.Hex(), root.Hex())
		}
		return nil
	}
	return h.store.Put(kv.CFStateHeight, kv.Uint64Key(height), root[:])
}
