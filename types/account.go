package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// AccountInfo is the outer state trie's value for an EVM address (§4.4):
// balance and nonce plus pointers into the code and per-account storage
// tries.
type AccountInfo struct {
	Balance     *big.Int
	Nonce       uint64
	CodeHash    B256
	StorageRoot B256
}

// EmptyAccount is the implicit value for an address never touched.
func EmptyAccount() AccountInfo {
	return AccountInfo{Balance: new(big.Int), CodeHash: EmptyCodeHash, StorageRoot: EmptyRootHash}
}

type rlpAccountInfo struct {
	Balance     *big.Int
	Nonce       uint64
	CodeHash    []byte
	StorageRoot []byte
}

// MarshalBinary RLP-encodes the account for storage in the outer trie.
func (a AccountInfo) MarshalBinary() ([]byte, error) {
	bal := a.Balance
	if bal == nil {
		bal = new(big.Int)
	}
	return rlp.EncodeToBytes(&rlpAccountInfo{
		Balance:     bal,
		Nonce:       a.Nonce,
		CodeHash:    a.CodeHash[:],
		StorageRoot: a.StorageRoot[:],
	})
}

// UnmarshalBinary decodes an account previously written by MarshalBinary.
func (a *AccountInfo) UnmarshalBinary(b []byte) error {
	var raw rlpAccountInfo
	if err := rlp.DecodeBytes(b, &raw); err != nil {
		return err
	}
	a.Balance = raw.Balance
	a.Nonce = raw.Nonce
	copy(a.CodeHash[:], raw.CodeHash)
	copy(a.StorageRoot[:], raw.StorageRoot)
	return nil
}

// StateValue is the canonical envelope wrapping Move resource and module
// values in the state trie (§4.3): a small metadata header plus the inner
// serialized bytes. EVM account/storage values bypass this envelope and are
// stored raw.
type StateValue struct {
	// Metadata carries the Move type layout tag / version the inner bytes
	// were serialized under, opaque to this engine beyond round-tripping it.
	Metadata []byte
	Inner    []byte
}

type rlpStateValue struct {
	Metadata []byte
	Inner    []byte
}

// MarshalBinary RLP-encodes the envelope for storage.
func (v StateValue) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(&rlpStateValue{Metadata: v.Metadata, Inner: v.Inner})
}

// UnmarshalBinary decodes a StateValue envelope.
func (v *StateValue) UnmarshalBinary(b []byte) error {
	var raw rlpStateValue
	if err := rlp.DecodeBytes(b, &raw); err != nil {
		return err
	}
	v.Metadata = raw.Metadata
	v.Inner = raw.Inner
	return nil
}
