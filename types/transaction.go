package types

import (
	"errors"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// DepositedTypeByte is the EIP-2718 transaction type byte prefixing the RLP
// encoding of a deposited transaction (§3, §6).
const DepositedTypeByte = 0x7e

// CanonicalKind distinguishes the three canonical (Ethereum-signed)
// transaction shapes this engine accepts.
type CanonicalKind uint8

const (
	KindLegacy CanonicalKind = iota
	KindEip2930
	KindEip1559
)

// AccessTuple is one entry of an EIP-2930 access list.
type AccessTuple struct {
	Address     Address  `json:"address"`
	StorageKeys []B256   `json:"storageKeys"`
}

// CanonicalTx is an Ethereum-signed transaction: legacy, EIP-2930, or
// EIP-1559, distinguished by Kind. Signature-dependent fields are zero for
// kinds that don't carry them (legacy has no access list, etc.) but every
// field needed across all three kinds is represented so one struct suffices.
type CanonicalTx struct {
	Kind                 CanonicalKind
	ChainID              uint64
	Nonce                uint64
	GasTipCap            *big.Int // max_priority_fee_per_gas; legacy/2930 reuse GasPrice
	GasFeeCap            *big.Int // max_fee_per_gas; legacy/2930 reuse GasPrice
	GasPrice             *big.Int // legacy/2930 only
	Gas                  uint64
	To                   *Address // nil for contract creation
	Value                *big.Int
	Data                 []byte
	AccessList           []AccessTuple
	V, R, S              *big.Int
}

// IsDynamicFee reports whether this transaction carries EIP-1559 fee fields.
func (tx *CanonicalTx) IsDynamicFee() bool { return tx.Kind == KindEip1559 }

// EffectiveGasTipCap returns the max priority fee, normalizing legacy/2930
// transactions (which only carry a flat gas price) to the 1559 shape.
func (tx *CanonicalTx) EffectiveGasTipCap() *big.Int {
	if tx.IsDynamicFee() {
		return tx.GasTipCap
	}
	return tx.GasPrice
}

// EffectiveGasFeeCap returns the max fee per gas, normalizing legacy/2930
// transactions the same way as EffectiveGasTipCap.
func (tx *CanonicalTx) EffectiveGasFeeCap() *big.Int {
	if tx.IsDynamicFee() {
		return tx.GasFeeCap
	}
	return tx.GasPrice
}

// DepositedTx is an OP-stack L1->L2 system transaction: unsigned, from is
// trusted, and it may mint native tokens before execution (§3).
type DepositedTx struct {
	SourceHash  B256
	From        Address
	To          Address
	Mint        *uint256.Int
	Value       *uint256.Int
	Gas         uint64
	IsSystemTx  bool
	Data        []byte
}

// TxEnvelope is a tagged union over the two transaction shapes this chain
// accepts for inclusion in a block.
type TxEnvelope struct {
	Canonical *CanonicalTx
	Deposited *DepositedTx
}

// IsDeposited reports whether the envelope wraps a deposited transaction.
func (e *TxEnvelope) IsDeposited() bool { return e.Deposited != nil }

type rlpLegacy struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
	V, R, S  *big.Int
}

type rlpAccessList struct {
	Address     Address
	StorageKeys []B256
}

type rlp2930 struct {
	ChainID    uint64
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         *Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList []rlpAccessList
	V, R, S    *big.Int
}

type rlp1559 struct {
	ChainID    uint64
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         *Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList []rlpAccessList
	V, R, S    *big.Int
}

type rlpDeposited struct {
	SourceHash B256
	From       Address
	To         Address
	Mint       *big.Int
	Value      *big.Int
	Gas        uint64
	IsSystemTx bool
	Data       []byte
}

func toRLPAccessList(list []AccessTuple) []rlpAccessList {
	out := make([]rlpAccessList, len(list))
	for i, t := range list {
		out[i] = rlpAccessList{Address: t.Address, StorageKeys: t.StorageKeys}
	}
	return out
}

func fromRLPAccessList(list []rlpAccessList) []AccessTuple {
	out := make([]AccessTuple, len(list))
	for i, t := range list {
		out[i] = AccessTuple{Address: t.Address, StorageKeys: t.StorageKeys}
	}
	return out
}

// EncodeRLP encodes the envelope following the rule used throughout the
// OP-stack wire format: canonical transactions are encoded exactly as their
// standard EIP-2718 typed (or untyped, for legacy) RLP; deposited
// transactions are prefixed with the single DepositedTypeByte.
func (e *TxEnvelope) EncodeRLP(w io.Writer) error {
	buf, err := e.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// MarshalBinary returns the canonical binary (typed-transaction) encoding.
func (e *TxEnvelope) MarshalBinary() ([]byte, error) {
	if e.Deposited != nil {
		tx := e.Deposited
		body, err := rlp.EncodeToBytes(&rlpDeposited{
			SourceHash: tx.SourceHash,
			From:       tx.From,
			To:         tx.To,
			Mint:       tx.Mint.ToBig(),
			Value:      tx.Value.ToBig(),
			Gas:        tx.Gas,
			IsSystemTx: tx.IsSystemTx,
			Data:       tx.Data,
		})
		if err != nil {
			return nil, err
		}
		return append([]byte{DepositedTypeByte}, body...), nil
	}

	tx := e.Canonical
	switch tx.Kind {
	case KindLegacy:
		return rlp.EncodeToBytes(&rlpLegacy{
			Nonce: tx.Nonce, GasPrice: tx.GasPrice, Gas: tx.Gas, To: tx.To,
			Value: tx.Value, Data: tx.Data, V: tx.V, R: tx.R, S: tx.S,
		})
	case KindEip2930:
		body, err := rlp.EncodeToBytes(&rlp2930{
			ChainID: tx.ChainID, Nonce: tx.Nonce, GasPrice: tx.GasPrice, Gas: tx.Gas,
			To: tx.To, Value: tx.Value, Data: tx.Data,
			AccessList: toRLPAccessList(tx.AccessList), V: tx.V, R: tx.R, S: tx.S,
		})
		if err != nil {
			return nil, err
		}
		return append([]byte{0x01}, body...), nil
	case KindEip1559:
		body, err := rlp.EncodeToBytes(&rlp1559{
			ChainID: tx.ChainID, Nonce: tx.Nonce, GasTipCap: tx.GasTipCap, GasFeeCap: tx.GasFeeCap,
			Gas: tx.Gas, To: tx.To, Value: tx.Value, Data: tx.Data,
			AccessList: toRLPAccessList(tx.AccessList), V: tx.V, R: tx.R, S: tx.S,
		})
		if err != nil {
			return nil, err
		}
		return append([]byte{0x02}, body...), nil
	default:
		return nil, errors.New("types: unknown canonical transaction kind")
	}
}

// UnmarshalBinary decodes an envelope from its canonical binary encoding,
// the inverse of MarshalBinary (round-trip invariant, §8).
func (e *TxEnvelope) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return errors.New("types: empty transaction bytes")
	}
	switch data[0] {
	case DepositedTypeByte:
		var body rlpDeposited
		if err := rlp.DecodeBytes(data[1:], &body); err != nil {
			return err
		}
		e.Deposited = &DepositedTx{
			SourceHash: body.SourceHash, From: body.From, To: body.To,
			Mint:  uint256.MustFromBig(body.Mint),
			Value: uint256.MustFromBig(body.Value),
			Gas:   body.Gas, IsSystemTx: body.IsSystemTx, Data: body.Data,
		}
		return nil
	case 0x01:
		var body rlp2930
		if err := rlp.DecodeBytes(data[1:], &body); err != nil {
			return err
		}
		e.Canonical = &CanonicalTx{
			Kind: KindEip2930, ChainID: body.ChainID, Nonce: body.Nonce,
			GasPrice: body.GasPrice, Gas: body.Gas, To: body.To, Value: body.Value,
			Data: body.Data, AccessList: fromRLPAccessList(body.AccessList),
			V: body.V, R: body.R, S: body.S,
		}
		return nil
	case 0x02:
		var body rlp1559
		if err := rlp.DecodeBytes(data[1:], &body); err != nil {
			return err
		}
		e.Canonical = &CanonicalTx{
			Kind: KindEip1559, ChainID: body.ChainID, Nonce: body.Nonce,
			GasTipCap: body.GasTipCap, GasFeeCap: body.GasFeeCap, Gas: body.Gas,
			To: body.To, Value: body.Value, Data: body.Data,
			AccessList: fromRLPAccessList(body.AccessList), V: body.V, R: body.R, S: body.S,
		}
		return nil
	default:
		if data[0] < 0xc0 {
			return errors.New("types: unsupported transaction type byte")
		}
		var body rlpLegacy
		if err := rlp.DecodeBytes(data, &body); err != nil {
			return err
		}
		e.Canonical = &CanonicalTx{
			Kind: KindLegacy, GasPrice: body.GasPrice, Nonce: body.Nonce,
			Gas: body.Gas, To: body.To, Value: body.Value, Data: body.Data,
			V: body.V, R: body.R, S: body.S,
		}
		return nil
	}
}

// Hash is Keccak256 of the canonical binary encoding (§3, §8).
func (e *TxEnvelope) Hash() (B256, error) {
	b, err := e.MarshalBinary()
	if err != nil {
		return B256{}, err
	}
	return Keccak256(b), nil
}

// NormalizedCanonicalTx additionally carries the recovered signer address
// (§3).
type NormalizedCanonicalTx struct {
	CanonicalTx
	Signer Address
}

// NormalizedTxEnvelope is a TxEnvelope with the canonical-transaction signer
// already recovered, as produced by signature verification in the executor
// and carried through the mempool, block builder, and transaction
// repository.
type NormalizedTxEnvelope struct {
	Canonical *NormalizedCanonicalTx
	Deposited *DepositedTx
}

// IsDeposited reports whether this envelope wraps a deposited transaction.
func (e *NormalizedTxEnvelope) IsDeposited() bool { return e.Deposited != nil }

// Signer returns the effective sender: the recovered signer for canonical
// transactions, or the trusted `from` field for deposited ones.
func (e *NormalizedTxEnvelope) Signer() Address {
	if e.Deposited != nil {
		return e.Deposited.From
	}
	return e.Canonical.Signer
}

// Nonce returns the transaction's nonce, or zero for deposited transactions
// (which are not subject to nonce checks).
func (e *NormalizedTxEnvelope) Nonce() uint64 {
	if e.Deposited != nil {
		return 0
	}
	return e.Canonical.Nonce
}

// ToEnvelope strips the recovered-signer annotation, returning the plain
// wire envelope (used for hashing and RLP round-trips).
func (e *NormalizedTxEnvelope) ToEnvelope() *TxEnvelope {
	if e.Deposited != nil {
		return &TxEnvelope{Deposited: e.Deposited}
	}
	return &TxEnvelope{Canonical: &e.Canonical.CanonicalTx}
}

// Hash is Keccak256 of the canonical binary encoding.
func (e *NormalizedTxEnvelope) Hash() (B256, error) {
	return e.ToEnvelope().Hash()
}

// relayMessageSelector is the 4-byte function selector for
// CrossDomainMessenger.relayMessage, used to extract a versioned nonce from
// deposited transactions carrying OP-stack cross-chain messages (§4.7, §8).
var relayMessageSelector = [4]byte{0xd7, 0x64, 0xad, 0x0b}

// VersionedNonce is the (version, nonce) pair packed into the first
// argument of a relayMessage call: the top 16 bits hold the version and the
// remaining 240 bits hold the nonce.
type VersionedNonce struct {
	Version uint64
	Nonce   uint64
}

// ExtractVersionedNonce inspects a deposited transaction's input and, if it
// is a valid relayMessage call, returns the encoded (version, nonce) pair
// from its first argument.
func ExtractVersionedNonce(tx *DepositedTx) (VersionedNonce, bool) {
	if len(tx.Data) < 4+32 || [4]byte(tx.Data[:4]) != relayMessageSelector {
		return VersionedNonce{}, false
	}
	arg := new(big.Int).SetBytes(tx.Data[4:36])
	version := new(big.Int).Rsh(arg, 240)
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 240), big.NewInt(1))
	nonce := new(big.Int).And(arg, mask)
	if !version.IsUint64() || !nonce.IsUint64() {
		return VersionedNonce{}, false
	}
	return VersionedNonce{Version: version.Uint64(), Nonce: nonce.Uint64()}, true
}
