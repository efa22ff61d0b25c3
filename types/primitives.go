// Package types defines the wire and in-memory data model shared by every
// other package in the engine: blocks, headers, transaction envelopes,
// receipts, and the small set of primitive aliases used throughout.
package types

import (
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// B256 is a 32-byte hash: state roots, block hashes, transaction hashes,
// trie node hashes, and trie keys are all expressed in this type.
type B256 = common.Hash

// Address is a 20-byte EVM/Move account address.
type Address = common.Address

// Bloom is the 2048-bit (256-byte) logs bloom filter carried in a block
// header.
type Bloom = gethtypes.Bloom

// KeccakEmptyList is SHA3-256 of the RLP-encoded empty list, the fixed
// value every header's sha3_uncles field carries since this chain never has
// uncles.
var KeccakEmptyList = gethtypes.EmptyUncleHash

// EmptyCodeHash is Keccak256 of the empty byte string, the code hash of an
// externally owned account.
var EmptyCodeHash = gethtypes.EmptyCodeHash

// EmptyRootHash is the root hash of an empty Merkle-Patricia trie.
var EmptyRootHash = gethtypes.EmptyRootHash
