package execution

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"github.com/luxfi/hybridvm/execution/evmvm"
	"github.com/luxfi/hybridvm/execution/gas"
	"github.com/luxfi/hybridvm/execution/move"
	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/state"
	"github.com/luxfi/hybridvm/types"
)

// stubEvmVM lets tests control the EVM dispatch outcome without a real
// interpreter.
type stubEvmVM struct {
	callResult   evmvm.Result
	callErr      error
	createResult evmvm.Result
	createErr    error
}

func (s *stubEvmVM) Call(evmvm.BlockContext, evmvm.StorageAccess, []byte, evmvm.CallParams) (evmvm.Result, error) {
	return s.callResult, s.callErr
}

func (s *stubEvmVM) Create(evmvm.BlockContext, evmvm.StorageAccess, []byte, evmvm.CallParams) (evmvm.Result, error) {
	return s.createResult, s.createErr
}

func newTestExecutor(t *testing.T, evm evmvm.VM) (*Executor, *state.Resolver) {
	t.Helper()
	store := kv.NewMemDB()
	resolver, err := state.NewResolver(store)
	if err != nil {
		t.Fatal(err)
	}
	storage := state.NewStorageTrieRepository(store)
	return NewExecutor(resolver, storage, move.NewInMemoryVM(), evm, 404, gas.DefaultConfig()), resolver
}

func testBlock() evmvm.BlockContext {
	return evmvm.BlockContext{Number: 1, Timestamp: 1, ChainID: 404, BaseFee: uint256.NewInt(0)}
}

func encodeEntryCallForTest(module, function string, args [][]byte) []byte {
	buf := []byte{byte(len(module))}
	buf = append(buf, module...)
	buf = append(buf, byte(len(function)))
	buf = append(buf, function...)
	buf = append(buf, byte(len(args)))
	for _, a := range args {
		buf = append(buf, byte(len(a)>>8), byte(len(a)))
		buf = append(buf, a...)
	}
	return buf
}

func TestExecuteCanonicalMoveMintThenBalance(t *testing.T) {
	ex, _ := newTestExecutor(t, &stubEvmVM{})
	signer := types.Address{0x01}
	to := types.Address{0x02}

	mintArgs := [][]byte{to.Bytes(), encodeU64ForTest(100)}
	tx := &types.NormalizedCanonicalTx{
		CanonicalTx: types.CanonicalTx{
			Kind: types.KindEip1559, ChainID: 404, Nonce: 0,
			GasFeeCap: big.NewInt(1000), GasTipCap: big.NewInt(1),
			Gas: 100000, Data: encodeEntryCallForTest("eth_token", "mint", mintArgs),
		},
		Signer: signer,
	}
	envelope := &types.NormalizedTxEnvelope{Canonical: tx}

	result, err := ex.Execute(envelope, testBlock())
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeOk {
		t.Fatalf("expected Ok, got %v (%v)", result.Outcome, result.Err)
	}

	account, _, err := ex.Resolver.GetAccount(signer)
	if err != nil {
		t.Fatal(err)
	}
	if account.Nonce != 1 {
		t.Fatalf("expected nonce incremented to 1, got %d", account.Nonce)
	}

	balance, err := ex.MoveVM.GetEthBalance(ex.Resolver, to)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 100 {
		t.Fatalf("expected minted balance 100, got %d", balance)
	}
}

func TestExecuteCanonicalNonceTooLowRejected(t *testing.T) {
	ex, resolver := newTestExecutor(t, &stubEvmVM{})
	signer := types.Address{0x03}
	info, _, _ := resolver.GetAccount(signer)
	info.Nonce = 5
	if err := resolver.PutAccount(signer, info); err != nil {
		t.Fatal(err)
	}

	tx := &types.NormalizedCanonicalTx{
		CanonicalTx: types.CanonicalTx{
			Kind: types.KindEip1559, ChainID: 404, Nonce: 2,
			GasFeeCap: big.NewInt(1000), GasTipCap: big.NewInt(1), Gas: 21000,
			Data: encodeEntryCallForTest("eth_token", "get_balance", [][]byte{signer.Bytes()}),
		},
		Signer: signer,
	}
	_, err := ex.Execute(&types.NormalizedTxEnvelope{Canonical: tx}, testBlock())
	if err == nil {
		t.Fatal("expected nonce-too-low error")
	}
}

func TestExecuteCanonicalErrorDiscardsMoveWritesButKeepsNonce(t *testing.T) {
	ex, _ := newTestExecutor(t, &stubEvmVM{})
	signer := types.Address{0x04}

	tx := &types.NormalizedCanonicalTx{
		CanonicalTx: types.CanonicalTx{
			Kind: types.KindEip1559, ChainID: 404, Nonce: 0,
			GasFeeCap: big.NewInt(1000), GasTipCap: big.NewInt(1), Gas: 21000,
			Data: encodeEntryCallForTest("nonexistent", "nope", nil),
		},
		Signer: signer,
	}
	result, err := ex.Execute(&types.NormalizedTxEnvelope{Canonical: tx}, testBlock())
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeError {
		t.Fatalf("expected Error outcome, got %v", result.Outcome)
	}

	account, _, err := ex.Resolver.GetAccount(signer)
	if err != nil {
		t.Fatal(err)
	}
	if account.Nonce != 1 {
		t.Fatalf("expected nonce still incremented despite VM error, got %d", account.Nonce)
	}
}

func TestExecuteDepositedMintsAndNeverErrors(t *testing.T) {
	ex, _ := newTestExecutor(t, &stubEvmVM{})
	from := types.Address{0x05}

	tx := &types.DepositedTx{
		From: from, To: L2LowestAddress,
		Mint: uint256.NewInt(42), Value: uint256.NewInt(0),
		Gas: 100000, Data: encodeEntryCallForTest("nonexistent", "nope", nil),
	}
	result, err := ex.Execute(&types.NormalizedTxEnvelope{Deposited: tx}, testBlock())
	if err != nil {
		t.Fatalf("deposited transactions must never fail the block: %v", err)
	}
	if result.Outcome != OutcomeError {
		t.Fatalf("expected the bad dispatch to still downgrade to Error, got %v", result.Outcome)
	}

	balance, err := ex.MoveVM.GetEthBalance(ex.Resolver, from)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 42 {
		t.Fatalf("expected mint to apply even though dispatch failed, got %d", balance)
	}
}

func TestExecuteDepositedExtractsVersionedNonce(t *testing.T) {
	ex, _ := newTestExecutor(t, &stubEvmVM{})
	from := types.Address{0x06}

	arg := new(big.Int).Lsh(big.NewInt(7), 240)
	arg.Or(arg, big.NewInt(99))
	argBytes := make([]byte, 32)
	arg.FillBytes(argBytes)

	data := append([]byte{0xd7, 0x64, 0xad, 0x0b}, argBytes...)
	tx := &types.DepositedTx{
		From: from, To: from,
		Mint: uint256.NewInt(0), Value: uint256.NewInt(0),
		Gas: 21000, Data: data,
	}
	result, err := ex.Execute(&types.NormalizedTxEnvelope{Deposited: tx}, testBlock())
	if err != nil {
		t.Fatal(err)
	}
	if result.VersionedNonce == nil || result.VersionedNonce.Version != 7 || result.VersionedNonce.Nonce != 99 {
		t.Fatalf("expected versioned nonce (7, 99), got %+v", result.VersionedNonce)
	}
}

func encodeU64ForTest(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
