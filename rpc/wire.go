package rpc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/luxfi/hybridvm/types"
)

// typeByte returns the EIP-2718 transaction type byte for tx (§6: "type
// (0x0|0x2|0x7e for deposited)"). EIP-2930 transactions use 0x1, the one
// standard value §6's illustrative list omits.
func typeByte(tx *types.NormalizedTxEnvelope) byte {
	if tx.Deposited != nil {
		return types.DepositedTypeByte
	}
	switch tx.Canonical.Kind {
	case types.KindEip2930:
		return 0x01
	case types.KindEip1559:
		return 0x02
	default:
		return 0x00
	}
}

// transactionFields renders one block-included transaction as the
// Ethereum-compatible JSON object §6 describes, annotated with its
// inclusion metadata.
func transactionFields(tx *types.NormalizedTxEnvelope, blockHash types.B256, blockNumber, txIndex uint64) map[string]interface{} {
	hash, _ := tx.Hash()
	out := map[string]interface{}{
		"type":             hexutil.Uint64(typeByte(tx)),
		"hash":              hash,
		"nonce":             hexutil.Uint64(tx.Nonce()),
		"blockHash":         blockHash,
		"blockNumber":       hexutil.Uint64(blockNumber),
		"transactionIndex":  hexutil.Uint64(txIndex),
		"from":              tx.Signer(),
	}

	if tx.Deposited != nil {
		d := tx.Deposited
		out["to"] = d.To
		out["value"] = (*hexutil.Big)(d.Value.ToBig())
		out["gas"] = hexutil.Uint64(d.Gas)
		out["input"] = hexutil.Bytes(d.Data)
		out["sourceHash"] = d.SourceHash
		out["mint"] = (*hexutil.Big)(d.Mint.ToBig())
		out["isSystemTx"] = d.IsSystemTx
		return out
	}

	c := &tx.Canonical.CanonicalTx
	out["chainId"] = hexutil.Uint64(c.ChainID)
	out["gas"] = hexutil.Uint64(c.Gas)
	out["to"] = c.To
	out["value"] = (*hexutil.Big)(valueOrZero(c.Value))
	out["input"] = hexutil.Bytes(c.Data)
	out["v"] = (*hexutil.Big)(valueOrZero(c.V))
	out["r"] = (*hexutil.Big)(valueOrZero(c.R))
	out["s"] = (*hexutil.Big)(valueOrZero(c.S))
	if c.Kind == types.KindEip1559 {
		out["maxFeePerGas"] = (*hexutil.Big)(valueOrZero(c.GasFeeCap))
		out["maxPriorityFeePerGas"] = (*hexutil.Big)(valueOrZero(c.GasTipCap))
	} else {
		out["gasPrice"] = (*hexutil.Big)(valueOrZero(c.GasPrice))
	}
	if c.Kind != types.KindLegacy {
		accessList := make([]map[string]interface{}, len(c.AccessList))
		for i, t := range c.AccessList {
			accessList[i] = map[string]interface{}{"address": t.Address, "storageKeys": t.StorageKeys}
		}
		out["accessList"] = accessList
		if c.V != nil {
			out["yParity"] = hexutil.Uint64(c.V.Uint64() & 1)
		}
	}
	return out
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// blockToRPC renders block as eth_getBlockBy{Hash,Number}'s response
// object (§6). fullTx selects between transaction hashes and full objects.
func blockToRPC(block *types.ExtendedBlock, fullTx bool) map[string]interface{} {
	h := block.Block.Header
	out := map[string]interface{}{
		"hash":             block.Hash,
		"parentHash":       h.ParentHash,
		"number":           hexutil.Uint64(h.Number),
		"timestamp":        hexutil.Uint64(h.Timestamp),
		"stateRoot":        h.StateRoot,
		"receiptsRoot":     h.ReceiptsRoot,
		"transactionsRoot": h.TransactionsRoot,
		"logsBloom":        h.LogsBloom,
		"gasUsed":          hexutil.Uint64(h.GasUsed),
		"gasLimit":         hexutil.Uint64(h.GasLimit),
		"miner":            h.Beneficiary,
		"mixHash":          h.MixHash,
		"baseFeePerGas":    (*hexutil.Big)(valueOrZero(h.BaseFeePerGas)),
		"extraData":        hexutil.Bytes(h.ExtraData),
		"withdrawals":      block.Block.Body.Withdrawals,
	}
	if h.ParentBeaconBlockRoot != nil {
		out["parentBeaconBlockRoot"] = *h.ParentBeaconBlockRoot
	}

	if fullTx {
		txs := make([]map[string]interface{}, len(block.Block.Body.Transactions))
		for i, tx := range block.Block.Body.Transactions {
			txs[i] = transactionFields(tx, block.Hash, h.Number, uint64(i))
		}
		out["transactions"] = txs
	} else {
		hashes := make([]common.Hash, 0, len(block.Block.Body.Transactions))
		for _, hash := range block.TransactionHashes() {
			hashes = append(hashes, common.Hash(hash))
		}
		out["transactions"] = hashes
	}
	return out
}

// transactionToRPC renders a stored ExtendedTransaction the way
// eth_getTransactionByHash responds (§6).
func transactionToRPC(tx *types.ExtendedTransaction) map[string]interface{} {
	out := transactionFields(tx.Inner, tx.BlockHash, tx.BlockNumber, tx.TransactionIndex)
	out["gasPrice"] = (*hexutil.Big)(new(big.Int).SetUint64(tx.EffectiveGasPrice))
	return out
}

// receiptToRPC renders an ExtendedReceipt the way
// eth_getTransactionReceipt responds (§6).
func receiptToRPC(r *types.ExtendedReceipt) map[string]interface{} {
	logs := make([]map[string]interface{}, len(r.Logs))
	for i, log := range r.Logs {
		logs[i] = map[string]interface{}{
			"address": log.Address,
			"topics":  log.Topics,
			"data":    hexutil.Bytes(log.Data),
		}
	}
	out := map[string]interface{}{
		"transactionHash":  r.TransactionHash,
		"transactionIndex": hexutil.Uint64(r.TransactionIndex),
		"from":             r.From,
		"to":               r.To,
		"gasUsed":          hexutil.Uint64(r.GasUsed),
		"logs":             logs,
		"blockHash":        r.BlockHash,
		"blockNumber":      hexutil.Uint64(r.BlockNumber),
		"status":           hexutil.Uint64(r.Status),
	}
	if r.ContractAddress != nil {
		out["contractAddress"] = *r.ContractAddress
	}
	return out
}
