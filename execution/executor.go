package execution

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/luxfi/hybridvm/apperror"
	"github.com/luxfi/hybridvm/execution/evmvm"
	"github.com/luxfi/hybridvm/execution/gas"
	"github.com/luxfi/hybridvm/execution/move"
	"github.com/luxfi/hybridvm/state"
	"github.com/luxfi/hybridvm/types"
)

// VMOutcome is the per-transaction disposition the block builder and
// receipt writer observe (§4.7: "vm_outcome: Ok|Revert|Error").
type VMOutcome uint8

const (
	OutcomeOk VMOutcome = iota
	OutcomeRevert
	OutcomeError
)

// TxResult is what the executor produces for one transaction: a change set
// recorded as side effects already applied to the resolver/storage
// repository when Outcome is Ok, plus the logs, gas usage, and outcome the
// receipt is built from (§4.7).
type TxResult struct {
	Outcome        VMOutcome
	GasUsed        uint64
	Logs           []types.Log
	CreatedAddress *types.Address
	VersionedNonce *types.VersionedNonce
	Err            error // non-nil detail for Revert/Error, nil for Ok
}

// Executor dispatches normalized transactions to the Move VM or the EVM
// against one resolver/storage-trie pair, per the classification rules in
// classify.go (§4.7).
type Executor struct {
	Resolver *state.Resolver
	Storage  *state.StorageTrieRepository
	MoveVM   move.VM
	EvmVM    evmvm.VM
	ChainID  uint64
	GasConfig gas.Config

	storageAccess *evmStorageAdapter
}

// NewExecutor wires the narrow VM interfaces and state surfaces an executor
// needs.
func NewExecutor(resolver *state.Resolver, storage *state.StorageTrieRepository, moveVM move.VM, evmVM evmvm.VM, chainID uint64, gasConfig gas.Config) *Executor {
	return &Executor{
		Resolver: resolver, Storage: storage, MoveVM: moveVM, EvmVM: evmVM, ChainID: chainID, GasConfig: gasConfig,
		storageAccess: &evmStorageAdapter{resolver: resolver, repo: storage},
	}
}

// Execute dispatches one normalized transaction, canonical or deposited
// (§4.7).
func (ex *Executor) Execute(envelope *types.NormalizedTxEnvelope, block evmvm.BlockContext) (TxResult, error) {
	if envelope.IsDeposited() {
		return ex.executeDeposited(envelope.Deposited, block)
	}
	return ex.executeCanonical(envelope.Canonical, block)
}

// executeCanonical implements the canonical-transaction validation and
// dispatch path (§4.7): chain ID, nonce, and fee-cap checks happen before
// dispatch and return a hard error (the transaction never enters the
// block); VM-level failures during dispatch instead produce an Error/Revert
// TxResult with the nonce increment retained, since the signer paid gas to
// get this far.
func (ex *Executor) executeCanonical(tx *types.NormalizedCanonicalTx, block evmvm.BlockContext) (TxResult, error) {
	if tx.ChainID != 0 && tx.ChainID != ex.ChainID {
		return TxResult{}, apperror.InvalidChainID("transaction chain id does not match this chain")
	}

	account, _, err := ex.Resolver.GetAccount(tx.Signer)
	if err != nil {
		return TxResult{}, err
	}
	if tx.Nonce < account.Nonce {
		return TxResult{}, apperror.NonceTooLow("transaction nonce below account nonce")
	}
	if tx.Nonce > account.Nonce {
		return TxResult{}, apperror.NonceTooHigh("transaction nonce above account nonce")
	}

	feeCap := tx.EffectiveGasFeeCap()
	if block.BaseFee != nil && feeCap != nil && feeCap.Cmp(block.BaseFee.ToBig()) < 0 {
		return TxResult{}, apperror.InvalidTransactionData("max fee per gas below base fee")
	}

	// Gas is charged once validation passes regardless of dispatch outcome,
	// so the nonce increment is retained even if the VM call itself errors.
	account.Nonce++
	if err := ex.Resolver.PutAccount(tx.Signer, account); err != nil {
		return TxResult{}, err
	}

	overlay := newMoveOverlay(ex.Resolver)
	kind, err := Classify(tx.To, tx.Data)
	if err != nil {
		return TxResult{Outcome: OutcomeError, Err: err}, nil
	}

	result := ex.dispatch(kind, tx.Signer, tx.To, tx.Data, tx.Value, tx.Gas, overlay, block)
	if result.Outcome == OutcomeOk {
		if err := overlay.commit(); err != nil {
			return TxResult{}, err
		}
	} else {
		overlay.discard()
		ex.Storage.DiscardStaging(tx.Signer)
	}
	return result, nil
}

// executeDeposited implements the deposited-transaction path (§4.7): no
// signature or nonce check, the sender is trusted, an optional mint
// happens unconditionally before dispatch, and dispatch failures never
// abort the block — they only downgrade this transaction's own outcome.
func (ex *Executor) executeDeposited(tx *types.DepositedTx, block evmvm.BlockContext) (TxResult, error) {
	overlay := newMoveOverlay(ex.Resolver)

	if tx.Mint != nil && !tx.Mint.IsZero() {
		if err := ex.MoveVM.MintEth(ex.Resolver, tx.From, tx.Mint.Uint64()); err != nil {
			apperror.Invariant("mint failed for trusted deposited transaction: %v", err)
		}
	}

	var versionedNonce *types.VersionedNonce
	if vn, ok := types.ExtractVersionedNonce(tx); ok {
		versionedNonce = &vn
	}

	to := &tx.To
	value := new(big.Int)
	if tx.Value != nil {
		value = tx.Value.ToBig()
	}
	kind, err := Classify(to, tx.Data)
	var result TxResult
	if err != nil {
		result = TxResult{Outcome: OutcomeError, Err: err}
	} else {
		result = ex.dispatch(kind, tx.From, to, tx.Data, value, tx.Gas, overlay, block)
	}
	result.VersionedNonce = versionedNonce

	if result.Outcome == OutcomeOk {
		if err := overlay.commit(); err != nil {
			return TxResult{}, err
		}
	} else {
		overlay.discard()
		ex.Storage.DiscardStaging(tx.From)
	}
	// Deposited transactions never fail the block (§4.7): any dispatch
	// error surfaces only through the per-transaction Outcome, never as a
	// function error the block builder would have to abort on.
	return result, nil
}

// dispatch routes a classified payload to the Move VM or the EVM.
func (ex *Executor) dispatch(kind InputKind, sender types.Address, to *types.Address, data []byte, value *big.Int, gasLimit uint64, overlay *moveOverlay, block evmvm.BlockContext) TxResult {
	switch kind {
	case KindMoveEntryFunction:
		call, err := decodeEntryCall(data)
		if err != nil {
			return TxResult{Outcome: OutcomeError, Err: err}
		}
		res, err := ex.MoveVM.ExecuteEntryFunction(overlay, sender, call)
		if err != nil {
			return TxResult{Outcome: OutcomeError, Err: err}
		}
		return TxResult{Outcome: OutcomeOk, GasUsed: gas.EstimateGas(res.GasUsed), Logs: res.Events}

	case KindMoveScript:
		res, err := ex.MoveVM.ExecuteScript(overlay, sender, data[1:], nil)
		if err != nil {
			return TxResult{Outcome: OutcomeError, Err: err}
		}
		return TxResult{Outcome: OutcomeOk, GasUsed: gas.EstimateGas(res.GasUsed), Logs: res.Events}

	case KindL2FrameworkCall:
		call, err := decodeEntryCall(data)
		if err != nil {
			return TxResult{Outcome: OutcomeError, Err: err}
		}
		res, err := ex.MoveVM.ExecuteEntryFunction(overlay, sender, call)
		if err != nil {
			return TxResult{Outcome: OutcomeError, Err: err}
		}
		return TxResult{Outcome: OutcomeOk, GasUsed: gas.EstimateGas(res.GasUsed), Logs: res.Events}

	case KindEvmCreate:
		return ex.dispatchEvmCreate(sender, data[1:], value, gasLimit, block)

	case KindEvmCall:
		return ex.dispatchEvmCall(sender, *to, data, value, gasLimit, block)

	default:
		apperror.Invariant("unreachable input kind %d", kind)
		return TxResult{}
	}
}

func (ex *Executor) dispatchEvmCreate(sender types.Address, initCode []byte, value *big.Int, gasLimit uint64, block evmvm.BlockContext) TxResult {
	val, overflow := uint256.FromBig(value)
	if overflow {
		return TxResult{Outcome: OutcomeError, Err: apperror.InvalidTransactionData("value overflows uint256")}
	}
	res, err := ex.EvmVM.Create(block, ex.storageAccess, initCode, evmvm.CallParams{From: sender, Value: val, Input: nil, Gas: gasLimit})
	if err != nil {
		return TxResult{Outcome: OutcomeError, Err: err}
	}
	if res.Reverted {
		return TxResult{Outcome: OutcomeRevert, GasUsed: res.GasUsed, Logs: res.Logs}
	}
	if res.CreatedAddress != nil {
		codeHash, err := ex.Resolver.PutCode(res.ReturnData)
		if err != nil {
			return TxResult{Outcome: OutcomeError, Err: err}
		}
		info, _, err := ex.Resolver.GetAccount(*res.CreatedAddress)
		if err != nil {
			return TxResult{Outcome: OutcomeError, Err: err}
		}
		info.CodeHash = codeHash
		if err := ex.Resolver.PutAccount(*res.CreatedAddress, info); err != nil {
			return TxResult{Outcome: OutcomeError, Err: err}
		}
	}
	return TxResult{Outcome: OutcomeOk, GasUsed: res.GasUsed, Logs: res.Logs, CreatedAddress: res.CreatedAddress}
}

func (ex *Executor) dispatchEvmCall(sender, to types.Address, input []byte, value *big.Int, gasLimit uint64, block evmvm.BlockContext) TxResult {
	val, overflow := uint256.FromBig(value)
	if overflow {
		return TxResult{Outcome: OutcomeError, Err: apperror.InvalidTransactionData("value overflows uint256")}
	}
	info, _, err := ex.Resolver.GetAccount(to)
	if err != nil {
		return TxResult{Outcome: OutcomeError, Err: err}
	}
	code, err := ex.Resolver.GetCode(info.CodeHash)
	if err != nil {
		return TxResult{Outcome: OutcomeError, Err: err}
	}
	res, err := ex.EvmVM.Call(block, ex.storageAccess, code, evmvm.CallParams{From: sender, To: &to, Value: val, Input: input, Gas: gasLimit})
	if err != nil {
		return TxResult{Outcome: OutcomeError, Err: err}
	}
	if res.Reverted {
		return TxResult{Outcome: OutcomeRevert, GasUsed: res.GasUsed, Logs: res.Logs}
	}
	return TxResult{Outcome: OutcomeOk, GasUsed: res.GasUsed, Logs: res.Logs}
}
