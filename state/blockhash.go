package state

import (
	"sync/atomic"

	"github.com/luxfi/hybridvm/types"
)

const blockHashWindow = 256

type blockHashEntry struct {
	valid  bool
	height uint64
	hash   types.B256
}

type blockHashRing [blockHashWindow]blockHashEntry

// BlockHashCache is a write-through ring of the last 256 (height, hash)
// pairs backing the BLOCKHASH opcode (§4.5). Readers load an immutable
// snapshot of the ring and never block on a concurrent Push.
type BlockHashCache struct {
	ptr atomic.Pointer[blockHashRing]
}

// NewBlockHashCache returns an empty cache.
func NewBlockHashCache() *BlockHashCache {
	c := &BlockHashCache{}
	c.ptr.Store(&blockHashRing{})
	return c
}

// Push records hash for height, evicting whatever previously occupied that
// ring slot (always height-256's entry, if present, since the ring index is
// height mod 256).
func (c *BlockHashCache) Push(height uint64, hash types.B256) {
	next := *c.ptr.Load()
	next[height%blockHashWindow] = blockHashEntry{valid: true, height: height, hash: hash}
	c.ptr.Store(&next)
}

// BlockHash returns hash(block_h) iff current-256 <= h < current, else the
// zero hash, matching the EVM BLOCKHASH opcode's semantics (§4.5).
func (c *BlockHashCache) BlockHash(current, h uint64) types.B256 {
	if h >= current {
		return types.B256{}
	}
	if current-h > blockHashWindow {
		return types.B256{}
	}
	ring := c.ptr.Load()
	e := ring[h%blockHashWindow]
	if !e.valid || e.height != h {
		return types.B256{}
	}
	return e.hash
}
