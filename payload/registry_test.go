package payload

import (
	"testing"

	"github.com/luxfi/hybridvm/apperror"
	"github.com/luxfi/hybridvm/types"
)

func TestBeginThenFinishSealsPayload(t *testing.T) {
	r := New()
	id := types.PayloadID(1)
	if err := r.Begin(id, types.PayloadAttributes{Timestamp: 1}); err != nil {
		t.Fatal(err)
	}
	hash := types.B256{0x01}
	r.Finish(id, hash)

	st, ok := r.Get(id)
	if !ok || st.Status != StatusSealed || st.BlockHash != hash {
		t.Fatalf("expected sealed state with hash, got %+v ok=%v", st, ok)
	}
}

func TestSecondBeginSameIDReturnsAlreadyStarted(t *testing.T) {
	r := New()
	id := types.PayloadID(5)
	if err := r.Begin(id, types.PayloadAttributes{}); err != nil {
		t.Fatal(err)
	}
	err := r.Begin(id, types.PayloadAttributes{})
	if err == nil || !apperror.IsUser(err) {
		t.Fatalf("expected AlreadyStarted user error, got %v", err)
	}
}

func TestDelayThenPromoteOnMatchingParent(t *testing.T) {
	r := New()
	id := types.PayloadID(7)
	parent := types.B256{0xaa}
	r.Delay(id, types.PayloadAttributes{Timestamp: 3}, parent)

	delayed := r.GetDelayed()
	if _, ok := delayed[id]; !ok {
		t.Fatal("expected payload to appear as delayed")
	}

	promoted := r.PromoteOnParent(types.B256{0xbb})
	if len(promoted) != 0 {
		t.Fatal("expected no promotion for an unrelated parent hash")
	}

	promoted = r.PromoteOnParent(parent)
	if len(promoted) != 1 || promoted[0].ID != id {
		t.Fatalf("expected payload %v promoted, got %+v", id, promoted)
	}

	st, _ := r.Get(id)
	if st.Status != StatusInProgress {
		t.Fatalf("expected promoted payload back to in-progress, got %v", st.Status)
	}
}
