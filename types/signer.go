package types

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrInvalidSignature is returned when a canonical transaction's signature
// fails to recover a public key.
var ErrInvalidSignature = errors.New("types: invalid transaction signature")

type rlpLegacyUnsignedPre155 struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
}

type rlpLegacyUnsignedEIP155 struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
	ChainID  *big.Int
	Zero1    *big.Int
	Zero2    *big.Int
}

type rlpUnsigned2930 struct {
	ChainID    uint64
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         *Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList []rlpAccessList
}

type rlpUnsigned1559 struct {
	ChainID    uint64
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         *Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList []rlpAccessList
}

// SigningHash returns the hash signed to produce (V, R, S), following the
// standard Ethereum signing scheme: legacy transactions sign the RLP of
// their fields, optionally extended with (chainId, 0, 0) per EIP-155;
// EIP-2930/EIP-1559 transactions sign Keccak256(type_byte || RLP(fields))
// directly, per EIP-2718.
func (tx *CanonicalTx) SigningHash() B256 {
	switch tx.Kind {
	case KindEip2930:
		body, err := rlp.EncodeToBytes(&rlpUnsigned2930{
			ChainID: tx.ChainID, Nonce: tx.Nonce, GasPrice: tx.GasPrice, Gas: tx.Gas,
			To: tx.To, Value: tx.Value, Data: tx.Data, AccessList: toRLPAccessList(tx.AccessList),
		})
		if err != nil {
			panic("types: rlp encode failed: " + err.Error())
		}
		return crypto.Keccak256Hash(append([]byte{0x01}, body...))
	case KindEip1559:
		body, err := rlp.EncodeToBytes(&rlpUnsigned1559{
			ChainID: tx.ChainID, Nonce: tx.Nonce, GasTipCap: tx.GasTipCap, GasFeeCap: tx.GasFeeCap,
			Gas: tx.Gas, To: tx.To, Value: tx.Value, Data: tx.Data, AccessList: toRLPAccessList(tx.AccessList),
		})
		if err != nil {
			panic("types: rlp encode failed: " + err.Error())
		}
		return crypto.Keccak256Hash(append([]byte{0x02}, body...))
	default:
		if tx.ChainID != 0 {
			return rlpHash(&rlpLegacyUnsignedEIP155{
				Nonce: tx.Nonce, GasPrice: tx.GasPrice, Gas: tx.Gas, To: tx.To, Value: tx.Value, Data: tx.Data,
				ChainID: new(big.Int).SetUint64(tx.ChainID), Zero1: new(big.Int), Zero2: new(big.Int),
			})
		}
		return rlpHash(&rlpLegacyUnsignedPre155{
			Nonce: tx.Nonce, GasPrice: tx.GasPrice, Gas: tx.Gas, To: tx.To, Value: tx.Value, Data: tx.Data,
		})
	}
}

// Recover recovers the signing address from (V, R, S) over SigningHash
// (§3: "verify signature; recover signer").
func (tx *CanonicalTx) Recover() (Address, error) {
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return Address{}, ErrInvalidSignature
	}
	recoveryID, err := tx.recoveryID()
	if err != nil {
		return Address{}, err
	}
	sig := make([]byte, 65)
	tx.R.FillBytes(sig[0:32])
	tx.S.FillBytes(sig[32:64])
	sig[64] = recoveryID

	hash := tx.SigningHash()
	pub, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func (tx *CanonicalTx) recoveryID() (byte, error) {
	v := tx.V.Uint64()
	if tx.IsDynamicFee() || tx.Kind == KindEip2930 {
		if v != 0 && v != 1 {
			return 0, ErrInvalidSignature
		}
		return byte(v), nil
	}
	if tx.ChainID != 0 {
		offset := tx.ChainID*2 + 35
		if v < offset {
			return 0, ErrInvalidSignature
		}
		return byte((v - offset) % 2), nil
	}
	if v != 27 && v != 28 {
		return 0, ErrInvalidSignature
	}
	return byte(v - 27), nil
}
