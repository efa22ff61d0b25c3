// Package actor implements the single-writer command actor (§4.10): a loop
// that receives one Command at a time from a bounded queue and applies it
// to the block builder, mempool, and height index, the sole mutator of
// chain state. Readers never go through the actor; they hold snapshot
// handles published after each command.
package actor

import (
	"go.uber.org/zap"

	"github.com/luxfi/hybridvm/apperror"
	"github.com/luxfi/hybridvm/block"
	"github.com/luxfi/hybridvm/mempool"
	"github.com/luxfi/hybridvm/payload"
	"github.com/luxfi/hybridvm/types"
)

// Command is the sealed set of operations the actor accepts (§4.10).
type Command interface{ isCommand() }

// StartBlockBuild runs the block-building algorithm for one payload.
type StartBlockBuild struct {
	Attributes types.PayloadAttributes
	PayloadID  types.PayloadID
	ParentHash types.B256
	Done       chan<- BuildResult // optional: receives the outcome, if non-nil
}

// BuildResult is delivered on StartBlockBuild.Done once the command has
// been processed.
type BuildResult struct {
	Block *types.ExtendedBlock
	Err   error
}

// AddTransaction validates and inserts one raw canonical transaction into
// the mempool.
type AddTransaction struct {
	Raw  []byte
	Done chan<- error // optional
}

// GenesisUpdate installs the genesis block, permitted only once.
type GenesisUpdate struct {
	Block *types.ExtendedBlock
	Done  chan<- error // optional
}

func (StartBlockBuild) isCommand() {}
func (AddTransaction) isCommand()  {}
func (GenesisUpdate) isCommand()   {}

// Status is the actor's run state (§4.10: "States: Running -> Stopped").
type Status uint8

const (
	StatusRunning Status = iota
	StatusStopped
)

// Actor owns every piece of mutable chain state and applies commands to it
// one at a time, never concurrently with itself (§5: "single-threaded
// cooperative inside the actor loop").
type Actor struct {
	Queue    <-chan Command
	Builder  *block.Builder
	Registry *payload.Registry
	Mempool  *mempool.Mempool
	ChainID  uint64
	Logger   *zap.Logger

	status Status
}

// Status reports whether the actor is still processing commands.
func (a *Actor) Status() Status { return a.status }

// Run drains the queue until it is closed or an unrecoverable error stops
// the actor (§4.10: "On any unrecoverable error... the actor logs and
// exits; no further commands are processed. The queue dropping also stops
// the actor.").
func (a *Actor) Run() {
	a.status = StatusRunning
	for cmd := range a.Queue {
		if !a.apply(cmd) {
			a.status = StatusStopped
			return
		}
	}
	a.status = StatusStopped
}

// apply processes one command, returning false if the actor must stop.
func (a *Actor) apply(cmd Command) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if ae, isApp := r.(*apperror.AppError); isApp && ae.Kind == apperror.KindInvariant {
				a.logger().Error("actor stopping on invariant violation", zap.String("error", ae.Error()))
				ok = false
				return
			}
			panic(r)
		}
	}()

	switch c := cmd.(type) {
	case StartBlockBuild:
		a.handleStartBlockBuild(c)
	case AddTransaction:
		a.handleAddTransaction(c)
	case GenesisUpdate:
		a.handleGenesisUpdate(c)
	default:
		apperror.Invariant("actor: unknown command type %T", cmd)
	}
	return true
}

func (a *Actor) handleStartBlockBuild(c StartBlockBuild) {
	if err := a.Registry.Begin(c.PayloadID, c.Attributes); err != nil {
		a.reply(c.Done, BuildResult{Err: err})
		return
	}

	head, hasHead, err := a.Builder.Blocks.Head()
	if err != nil {
		a.logger().Error("head lookup failed", zap.Error(err))
		a.reply(c.Done, BuildResult{Err: err})
		return
	}
	if hasHead && head.Hash != c.ParentHash {
		a.Registry.Delay(c.PayloadID, c.Attributes, c.ParentHash)
		a.reply(c.Done, BuildResult{})
		return
	}

	sealed, err := a.Builder.Build(c.Attributes, c.PayloadID)
	if err != nil {
		a.reply(c.Done, BuildResult{Err: err})
		return
	}
	a.Registry.Finish(c.PayloadID, sealed.Hash)
	a.reply(c.Done, BuildResult{Block: sealed})

	for _, p := range a.Registry.PromoteOnParent(sealed.Hash) {
		if promoted, err := a.Builder.Build(p.Attributes, p.ID); err != nil {
			a.logger().Error("delayed payload failed to build", zap.Uint64("payloadId", uint64(p.ID)), zap.Error(err))
		} else {
			a.Registry.Finish(p.ID, promoted.Hash)
		}
	}
}

func (a *Actor) handleAddTransaction(c AddTransaction) {
	var env types.TxEnvelope
	if err := env.UnmarshalBinary(c.Raw); err != nil {
		a.reply(c.Done, apperror.InvalidTransactionData("transaction decode failed: "+err.Error()))
		return
	}
	if env.Canonical == nil {
		a.reply(c.Done, apperror.InvalidTransactionData("only canonical transactions may be submitted to the mempool"))
		return
	}
	tx := env.Canonical
	if tx.ChainID != 0 && tx.ChainID != a.ChainID {
		a.reply(c.Done, apperror.InvalidChainID("transaction chain id does not match this chain"))
		return
	}
	signer, err := tx.Recover()
	if err != nil {
		a.reply(c.Done, apperror.InvalidSignature(err.Error()))
		return
	}
	account, _, err := a.Builder.Resolver.GetAccount(signer)
	if err != nil {
		a.reply(c.Done, err)
		return
	}
	if tx.Nonce < account.Nonce {
		a.reply(c.Done, apperror.NonceTooLow("transaction nonce below account nonce"))
		return
	}

	normalized := &types.NormalizedCanonicalTx{CanonicalTx: *tx, Signer: signer}
	envelope := &types.NormalizedTxEnvelope{Canonical: normalized}
	txHash, err := envelope.Hash()
	if err != nil {
		a.reply(c.Done, err)
		return
	}
	a.Mempool.Insert(signer, tx.Nonce, txHash, envelope)
	a.reply(c.Done, nil)
}

func (a *Actor) handleGenesisUpdate(c GenesisUpdate) {
	if _, ok, err := a.Builder.HeightIndex.Root(0); err != nil {
		a.reply(c.Done, err)
		return
	} else if ok {
		a.reply(c.Done, apperror.InvalidBlockHeight("genesis already installed"))
		return
	}
	if err := a.Builder.Blocks.Append(c.Block); err != nil {
		a.reply(c.Done, err)
		return
	}
	if err := a.Builder.HeightIndex.Record(0, c.Block.Block.Header.StateRoot); err != nil {
		a.reply(c.Done, err)
		return
	}
	a.Builder.BlockHashCache.Push(0, c.Block.Hash)
	a.reply(c.Done, nil)
}

func (a *Actor) reply(ch interface{}, value interface{}) {
	switch c := ch.(type) {
	case chan<- error:
		if c != nil {
			c <- value.(error)
		}
	case chan<- BuildResult:
		if c != nil {
			c <- value.(BuildResult)
		}
	}
}

func (a *Actor) logger() *zap.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return zap.NewNop()
}
