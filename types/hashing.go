package types

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// rlpHash RLP-encodes val and returns its Keccak256 hash. Used for block,
// transaction, and trie-node hashing throughout the engine.
func rlpHash(val interface{}) (h B256) {
	b, err := rlp.EncodeToBytes(val)
	if err != nil {
		panic("types: rlp encode failed: " + err.Error())
	}
	return crypto.Keccak256Hash(b)
}

// Keccak256 hashes arbitrary bytes with Keccak256, the hash function used to
// derive every trie key and node hash in this engine (§4.2, §4.3).
func Keccak256(data ...[]byte) B256 {
	return crypto.Keccak256Hash(data...)
}
