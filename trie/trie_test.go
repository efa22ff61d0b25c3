package trie

import (
	"testing"

	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/types"
)

func key(b byte) types.B256 {
	var k types.B256
	k[31] = b
	return k
}

func TestTrieGetMissingReturnsFalse(t *testing.T) {
	tr := New(kv.NewMemDB())
	_, ok, err := tr.Get(key(1))
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestTrieInsertAndGetSingle(t *testing.T) {
	tr := New(kv.NewMemDB())
	if err := tr.Insert(key(1), []byte("hello")); err != nil {
		t.Fatal(err)
	}
	v, ok, err := tr.Get(key(1))
	if err != nil || !ok || string(v) != "hello" {
		t.Fatalf("got %q %v %v", v, ok, err)
	}
}

func TestTrieInsertManyAndRootPersists(t *testing.T) {
	store := kv.NewMemDB()
	tr := New(store)
	for i := byte(0); i < 64; i++ {
		if err := tr.Insert(key(i), []byte{i}); err != nil {
			t.Fatal(err)
		}
	}
	root, err := tr.Root()
	if err != nil {
		t.Fatal(err)
	}
	if root == types.EmptyRootHash {
		t.Fatal("root should not be empty after inserts")
	}

	reopened, err := Open(store, root)
	if err != nil {
		t.Fatal(err)
	}
	for i := byte(0); i < 64; i++ {
		v, ok, err := reopened.Get(key(i))
		if err != nil || !ok || v[0] != i {
			t.Fatalf("key %d: got %v %v %v", i, v, ok, err)
		}
	}
}

func TestTrieOverwriteReplacesValue(t *testing.T) {
	tr := New(kv.NewMemDB())
	tr.Insert(key(5), []byte("old"))
	tr.Insert(key(5), []byte("new"))
	v, ok, err := tr.Get(key(5))
	if err != nil || !ok || string(v) != "new" {
		t.Fatalf("got %q %v %v", v, ok, err)
	}
}

func TestTrieMissingHistoricalNodePanicsAsError(t *testing.T) {
	store := kv.NewMemDB()
	tr := New(store)
	tr.Insert(key(1), []byte("v"))
	root, err := tr.Root()
	if err != nil {
		t.Fatal(err)
	}
	// Corrupt the store by deleting the root node directly.
	store.WriteBatch([]kv.WriteOp{{CF: kv.CFTrie, Key: root[:], Value: nil}})
	if _, err := Open(store, root); err == nil {
		t.Fatal("expected ErrMissingNode")
	}
}

func TestTrieCurrentRootRoundTrip(t *testing.T) {
	store := kv.NewMemDB()
	tr := New(store)
	tr.Insert(key(9), []byte("v9"))
	root, err := tr.Root()
	if err != nil {
		t.Fatal(err)
	}
	reopened, err := CurrentRoot(store)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := reopened.RootHash()
	if got != root {
		t.Fatalf("expected %s, got %s", root.Hex(), got.Hex())
	}
}

func TestTrieProofFindsValueAndIsNonEmpty(t *testing.T) {
	tr := New(kv.NewMemDB())
	for i := byte(0); i < 8; i++ {
		if err := tr.Insert(key(i), []byte{i}); err != nil {
			t.Fatal(err)
		}
	}
	nodes, found, err := tr.Proof(key(3))
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected proof to report the key as found")
	}
	if len(nodes) == 0 {
		t.Fatal("expected at least one node in the proof")
	}
}

func TestTrieProofMissingKeyReportsNotFound(t *testing.T) {
	tr := New(kv.NewMemDB())
	tr.Insert(key(1), []byte("v1"))
	_, found, err := tr.Proof(key(2))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected key(2) to be reported as not found")
	}
}
