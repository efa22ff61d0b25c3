package state

import (
	"testing"

	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/types"
)

func TestHeightIndexRecordAndLookup(t *testing.T) {
	idx := NewHeightIndex(kv.NewMemDB())
	root := types.B256{1, 2, 3}
	if err := idx.Record(10, root); err != nil {
		t.Fatal(err)
	}
	got, ok, err := idx.Root(10)
	if err != nil || !ok || got != root {
		t.Fatalf("got %s ok=%v err=%v", got.Hex(), ok, err)
	}
}

func TestHeightIndexMissingHeight(t *testing.T) {
	idx := NewHeightIndex(kv.NewMemDB())
	_, ok, err := idx.Root(99)
	if err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
}

func TestHeightIndexRecordingSameRootTwiceIsIdempotent(t *testing.T) {
	idx := NewHeightIndex(kv.NewMemDB())
	root := types.B256{9}
	if err := idx.Record(1, root); err != nil {
		t.Fatal(err)
	}
	if err := idx.Record(1, root); err != nil {
		t.Fatal(err)
	}
}

func TestHeightIndexRecordingDifferentRootPanics(t *testing.T) {
	idx := NewHeightIndex(kv.NewMemDB())
	if err := idx.Record(1, types.B256{1}); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on conflicting height record")
		}
	}()
	idx.Record(1, types.B256{2})
}
