package types

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// Header is the block header. Every field is fixed or computed by the block
// builder (§4.8); none are free-form except extra_data, which this chain
// always leaves empty.
type Header struct {
	ParentHash            B256     `json:"parentHash"`
	Number                uint64   `json:"number"`
	Timestamp             uint64   `json:"timestamp"`
	StateRoot             B256     `json:"stateRoot"`
	ReceiptsRoot          B256     `json:"receiptsRoot"`
	TransactionsRoot      B256     `json:"transactionsRoot"`
	LogsBloom             Bloom    `json:"logsBloom"`
	GasUsed               uint64   `json:"gasUsed"`
	GasLimit              uint64   `json:"gasLimit"`
	Beneficiary           Address  `json:"miner"`
	MixHash               B256     `json:"mixHash"`
	ParentBeaconBlockRoot *B256    `json:"parentBeaconBlockRoot,omitempty"`
	BaseFeePerGas         *big.Int `json:"baseFeePerGas"`
	ExtraData             []byte   `json:"extraData"`
}

// rlpHeader is the RLP encoding shape, following the Ethereum header RLP list
// order. Fixed fields (difficulty, nonce, sha3Uncles) are not stored on
// Header since they never vary; they're injected here for hashing/wire
// compatibility.
type rlpHeader struct {
	ParentHash            B256
	UncleHash             B256
	Coinbase              Address
	Root                  B256
	TxHash                B256
	ReceiptHash           B256
	Bloom                 Bloom
	Difficulty            *big.Int
	Number                *big.Int
	GasLimit              uint64
	GasUsed               uint64
	Time                  uint64
	Extra                 []byte
	MixDigest             B256
	Nonce                 [8]byte
	BaseFee               *big.Int
	ParentBeaconBlockRoot *B256 `rlp:"optional"`
}

func (h *Header) toRLP() *rlpHeader {
	baseFee := h.BaseFeePerGas
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	return &rlpHeader{
		ParentHash:            h.ParentHash,
		UncleHash:             KeccakEmptyList,
		Coinbase:              h.Beneficiary,
		Root:                  h.StateRoot,
		TxHash:                h.TransactionsRoot,
		ReceiptHash:           h.ReceiptsRoot,
		Bloom:                 h.LogsBloom,
		Difficulty:            new(big.Int),
		Number:                new(big.Int).SetUint64(h.Number),
		GasLimit:              h.GasLimit,
		GasUsed:               h.GasUsed,
		Time:                  h.Timestamp,
		Extra:                 h.ExtraData,
		MixDigest:             h.MixHash,
		Nonce:                 [8]byte{},
		BaseFee:               baseFee,
		ParentBeaconBlockRoot: h.ParentBeaconBlockRoot,
	}
}

// EncodeRLP implements rlp.Encoder so a Header can be hashed and persisted
// the same way the rest of the Ethereum-compatible wire format is.
func (h *Header) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, h.toRLP())
}

// Hash computes the block hash: Keccak256 of the RLP-encoded header.
func (h *Header) Hash() B256 {
	return rlpHash(h.toRLP())
}
