package execution

import (
	"github.com/luxfi/hybridvm/types"
)

// moveStateSource is the subset of *state.Resolver / *state.CachedResolver
// the Move overlay reads through.
type moveStateSource interface {
	GetMoveValue(key []byte) (*types.StateValue, bool, error)
	PutMoveValue(key []byte, value types.StateValue) error
}

// moveOverlay buffers Move resource writes made during one transaction's
// execution so they can be discarded wholesale on VM error (§4.7: "On Error
// for a canonical transaction, state changes are discarded"), committed to
// the underlying resolver only once the transaction succeeds.
type moveOverlay struct {
	base    moveStateSource
	pending map[string]types.StateValue
}

func newMoveOverlay(base moveStateSource) *moveOverlay {
	return &moveOverlay{base: base, pending: make(map[string]types.StateValue)}
}

func (o *moveOverlay) GetMoveValue(key []byte) (*types.StateValue, bool, error) {
	if v, ok := o.pending[string(key)]; ok {
		return &v, true, nil
	}
	return o.base.GetMoveValue(key)
}

func (o *moveOverlay) PutMoveValue(key []byte, value types.StateValue) error {
	o.pending[string(key)] = value
	return nil
}

// commit flushes every buffered write to the base resolver.
func (o *moveOverlay) commit() error {
	for k, v := range o.pending {
		if err := o.base.PutMoveValue([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// discard drops every buffered write without touching the base resolver.
func (o *moveOverlay) discard() {
	o.pending = make(map[string]types.StateValue)
}
