package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/types"
)

func extBlock(number uint64, hash byte) *types.ExtendedBlock {
	b := &types.ExtendedBlock{Block: types.Block{Header: types.Header{Number: number}}}
	b.Hash[0] = hash
	return b
}

func TestChainStoreHeadEmptyBeforeAnyAppend(t *testing.T) {
	cs := NewChainStore(kv.NewMemDB())
	_, ok, err := cs.Head()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestChainStoreHeadTracksLatestAppend(t *testing.T) {
	cs := NewChainStore(kv.NewMemDB())
	require.NoError(t, cs.Append(extBlock(0, 0x01)))
	require.NoError(t, cs.Append(extBlock(1, 0x02)))

	head, ok, err := cs.Head()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), head.Block.Header.Number)
	require.Equal(t, byte(0x02), head.Hash[0])
}

func TestChainStoreHeadSnapshotSeededFromExistingStore(t *testing.T) {
	store := kv.NewMemDB()
	seed := NewChainStore(store)
	require.NoError(t, seed.Append(extBlock(0, 0x03)))

	reopened := NewChainStore(store)
	head, ok, err := reopened.Head()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, byte(0x03), head.Hash[0])
}
