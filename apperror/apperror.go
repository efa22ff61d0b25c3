// Package apperror defines the error kinds used across the engine (§7):
// user errors surface as RPC errors, invariant errors panic, execution
// errors are captured in receipts rather than returned.
package apperror

import "fmt"

// Kind classifies an error for propagation purposes (§7).
type Kind uint8

const (
	// KindUser errors surface as RPC errors to the caller.
	KindUser Kind = iota
	// KindInvariant errors indicate corruption; the actor aborts.
	KindInvariant
)

// AppError is a classified error carrying a stable code string.
type AppError struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *AppError) Error() string {
	if e.Msg == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func newUser(code, msg string) *AppError {
	return &AppError{Kind: KindUser, Code: code, Msg: msg}
}

// User error constructors, one per kind named in §7.
func InvalidBlockHash(msg string) *AppError       { return newUser("InvalidBlockHash", msg) }
func InvalidBlockHeight(msg string) *AppError     { return newUser("InvalidBlockHeight", msg) }
func InvalidTransactionData(msg string) *AppError { return newUser("InvalidTransactionData", msg) }
func InvalidChainID(msg string) *AppError         { return newUser("InvalidChainId", msg) }
func InvalidSignature(msg string) *AppError       { return newUser("InvalidSignature", msg) }
func NonceTooLow(msg string) *AppError            { return newUser("NonceTooLow", msg) }
func NonceTooHigh(msg string) *AppError           { return newUser("NonceTooHigh", msg) }
func AddressOutsideRange(msg string) *AppError    { return newUser("AddressOutsideRange", msg) }

// InvalidPayload is a user error: a payload's deposit transactions failed to
// decode (§4.8), or an engine request names a payload id that is malformed,
// unknown, not yet sealed, or whose sealed block is missing.
func InvalidPayload(msg string) *AppError { return newUser("InvalidPayload", msg) }

// AlreadyStarted is a user error: a second begin() with a PayloadID already
// in progress (§4.9).
func AlreadyStarted(id uint64) *AppError {
	return newUser("AlreadyStarted", fmt.Sprintf("payload %d already started", id))
}

// BlockNotFound is a user error mapped to JSON-RPC code -32000 (§6).
func BlockNotFound(msg string) *AppError { return newUser("BlockNotFound", msg) }

// MissingCode is a user error: code-by-hash lookup for a non-empty hash
// found no node (§4.3).
func MissingCode(hash string) *AppError {
	return newUser("MissingCode", "no code for hash "+hash)
}

// IsUser reports whether err is a classified user error.
func IsUser(err error) bool {
	ae, ok := err.(*AppError)
	return ok && ae.Kind == KindUser
}

// Invariant panics with a descriptive message (§7): genesis missing, trie
// node missing, height index gap. These always indicate corruption and are
// never recovered by the actor.
func Invariant(format string, args ...interface{}) {
	panic(&AppError{Kind: KindInvariant, Code: "Invariant", Msg: fmt.Sprintf(format, args...)})
}
