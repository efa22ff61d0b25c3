package types

// bloom9 implements the Ethereum logs-bloom algorithm: for each input byte
// slice, hash it with Keccak256 and set three bits in the 2048-bit filter,
// each chosen from a different 16-bit window of the hash, masked to 11 bits.
//
// This is ambient wire-format plumbing (the header's logs_bloom field), not
// EVM-interpreter logic, so it is implemented directly here rather than via
// `github.com/holiman/bloomfilter/v2` — that library is a generic
// probabilistic filter with configurable hash/size parameters, not this
// fixed 2048-bit/3-bit-per-item Ethereum construction (see DESIGN.md).
func bloom9(b *Bloom, data []byte) {
	hash := Keccak256(data)
	for i := 0; i < 3; i++ {
		bit := (uint(hash[2*i])<<8 + uint(hash[2*i+1])) & 2047
		byteIdx := len(b) - 1 - int(bit/8)
		b[byteIdx] |= 1 << (bit % 8)
	}
}

// AddLogToBloom ORs one log's address and topics into the running bloom.
func AddLogToBloom(b *Bloom, log Log) {
	bloom9(b, log.Address.Bytes())
	for _, topic := range log.Topics {
		bloom9(b, topic.Bytes())
	}
}

// CreateBloom computes the logs bloom for an ordered set of logs, used by
// the block builder to merge per-transaction blooms into the header's
// logs_bloom field (§4.8).
func CreateBloom(logs []Log) Bloom {
	var b Bloom
	for _, l := range logs {
		AddLogToBloom(&b, l)
	}
	return b
}
