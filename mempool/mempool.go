// Package mempool implements the pending-transaction pool (§4.6): a
// per-signer, nonce-ordered set of pending transactions with no
// gas-price-based reordering, eviction policy, or size limit — those are
// deliberately out of scope (§4.6 Non-goals); the production query surface
// is the application reader, not this pool.
package mempool

import (
	"bytes"
	"sort"

	"github.com/google/btree"

	"github.com/luxfi/hybridvm/types"
)

// nonceEntry is one (nonce, transaction) pair ordered within a signer's
// btree by nonce ascending. hash is precomputed at Insert time so
// RemoveByHash never needs to re-encode the transaction.
type nonceEntry struct {
	nonce uint64
	hash  types.B256
	tx    *types.NormalizedTxEnvelope
}

func (e nonceEntry) Less(other btree.Item) bool {
	return e.nonce < other.(nonceEntry).nonce
}

// Mempool holds pending transactions grouped by signer, each group ordered
// by nonce (§4.6).
type Mempool struct {
	bySigner map[types.Address]*btree.BTree
}

// New returns an empty mempool.
func New() *Mempool {
	return &Mempool{bySigner: make(map[types.Address]*btree.BTree)}
}

// Insert adds tx (whose hash is txHash), keyed by (signer, nonce). If an
// entry already occupies that slot it is replaced and returned (§4.6, §8).
func (m *Mempool) Insert(signer types.Address, nonce uint64, txHash types.B256, tx *types.NormalizedTxEnvelope) *types.NormalizedTxEnvelope {
	account, ok := m.bySigner[signer]
	if !ok {
		account = btree.New(32)
		m.bySigner[signer] = account
	}
	old := account.ReplaceOrInsert(nonceEntry{nonce: nonce, hash: txHash, tx: tx})
	if old == nil {
		return nil
	}
	return old.(nonceEntry).tx
}

// Iter returns every pending transaction ordered lexicographically by
// (signer, nonce) (§4.6, §8).
func (m *Mempool) Iter() []*types.NormalizedTxEnvelope {
	signers := make([]types.Address, 0, len(m.bySigner))
	for s := range m.bySigner {
		signers = append(signers, s)
	}
	sort.Slice(signers, func(i, j int) bool {
		return bytes.Compare(signers[i].Bytes(), signers[j].Bytes()) < 0
	})

	var out []*types.NormalizedTxEnvelope
	for _, s := range signers {
		m.bySigner[s].Ascend(func(item btree.Item) bool {
			out = append(out, item.(nonceEntry).tx)
			return true
		})
	}
	return out
}

// RemoveByHash removes signer's transaction whose hash equals txHash, if
// present. Returns the removed transaction, or nil.
func (m *Mempool) RemoveByHash(signer types.Address, txHash types.B256) *types.NormalizedTxEnvelope {
	account, ok := m.bySigner[signer]
	if !ok {
		return nil
	}
	var foundNonce uint64
	var found *types.NormalizedTxEnvelope
	account.Ascend(func(item btree.Item) bool {
		e := item.(nonceEntry)
		if e.hash == txHash {
			foundNonce = e.nonce
			found = e.tx
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	account.Delete(nonceEntry{nonce: foundNonce})
	if account.Len() == 0 {
		delete(m.bySigner, signer)
	}
	return found
}

// IncludedEntry names one (signer, hash) pair that was included in a
// sealed block, the shape RemoveIncluded consumes.
type IncludedEntry struct {
	Signer types.Address
	Hash   types.B256
}

// RemoveIncluded removes every transaction in list from the pool, dropping
// empty signer buckets entirely (§4.6).
func (m *Mempool) RemoveIncluded(list []IncludedEntry) {
	for _, e := range list {
		m.RemoveByHash(e.Signer, e.Hash)
	}
}

// Len returns the total number of pending transactions across all signers.
func (m *Mempool) Len() int {
	n := 0
	for _, account := range m.bySigner {
		n += account.Len()
	}
	return n
}
