package rpc

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/luxfi/hybridvm/app"
	"github.com/luxfi/hybridvm/execution/move"
	"github.com/luxfi/hybridvm/types"
)

// MoveService implements the mv_* Move query extensions (§6).
type MoveService struct {
	reader *app.Reader
}

// NewMoveService returns the mv_* receiver RegisterName expects.
func NewMoveService(reader *app.Reader) *MoveService { return &MoveService{reader: reader} }

// MoveValue is the wire shape for a resource or table-item lookup: the raw
// serialized bytes plus the type-layout metadata they were stored under
// (types.StateValue, §3).
type MoveValue struct {
	Metadata hexutil.Bytes `json:"metadata"`
	Data     hexutil.Bytes `json:"data"`
}

// GetResource implements mv_getResource.
func (s *MoveService) GetResource(address common.Address, typeTag string, blockNrOrHash gethrpc.BlockNumberOrHash) (*MoveValue, error) {
	value, ok, err := s.reader.MoveResourceByHeight(types.Address(address), typeTag, toBlockSpec(blockNrOrHash))
	if err != nil || !ok {
		return nil, err
	}
	return &MoveValue{Metadata: value.Metadata, Data: value.Inner}, nil
}

// ListModules implements mv_listModules, paginated by an opaque cursor
// (the last module name seen) and an optional limit (0 means unbounded).
func (s *MoveService) ListModules(address common.Address, after string, limit hexutil.Uint64, blockNrOrHash gethrpc.BlockNumberOrHash) ([]string, error) {
	return s.reader.MoveListModules(types.Address(address), toBlockSpec(blockNrOrHash), after, int(limit))
}

// ListResources implements mv_listResources. The reference Move VM only
// materializes the eth_token Balance resource per account, so this lists at
// most that one entry when present.
func (s *MoveService) ListResources(address common.Address, blockNrOrHash gethrpc.BlockNumberOrHash) ([]string, error) {
	spec := toBlockSpec(blockNrOrHash)
	_, ok, err := s.reader.MoveResourceByHeight(types.Address(address), move.BalanceTypeTag, spec)
	if err != nil || !ok {
		return nil, err
	}
	return []string{move.BalanceTypeTag}, nil
}

// GetTableItem implements mv_getTableItem.
func (s *MoveService) GetTableItem(handle common.Hash, key hexutil.Bytes, blockNrOrHash gethrpc.BlockNumberOrHash) (*MoveValue, error) {
	value, ok, err := s.reader.MoveTableItemByHeight(types.B256(handle), key, toBlockSpec(blockNrOrHash))
	if err != nil || !ok {
		return nil, err
	}
	return &MoveValue{Metadata: value.Metadata, Data: value.Inner}, nil
}
