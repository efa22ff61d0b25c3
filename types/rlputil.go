package types

import "github.com/ethereum/go-ethereum/rlp"

func rlpEncode(v interface{}) ([]byte, error) { return rlp.EncodeToBytes(v) }
