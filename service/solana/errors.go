package solana

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// ValidationError reports a malformed request. It is raised before any
// network call is made and is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// InsufficientBalanceError reports that the sender's balance does not
// cover the requested amount. Raised before any transaction is built.
type InsufficientBalanceError struct {
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, requested %s", e.Balance, e.Requested)
}

// DerivationError reports that no valid program-derived address could be
// found for the given seeds. This is a pure-computation failure; retrying
// with the same inputs cannot succeed.
type DerivationError struct {
	Owner solana.PublicKey
	Mint  solana.PublicKey
	Err   error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("failed to derive associated token address for owner %s mint %s: %v", e.Owner, e.Mint, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }

// NetworkError wraps a failed RPC call. Inside the submit/confirm loop it
// counts as an attempt failure and is retried; everywhere else it
// propagates to the caller.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("rpc %s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfirmationTimeoutError reports that a signature did not reach finality
// within one attempt's confirmation window. The transaction may still
// finalize on chain afterwards; the submitter counts this as an attempt
// failure and resubmits.
type ConfirmationTimeoutError struct {
	Signature solana.Signature
	Window    time.Duration
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not finalized within %s", e.Signature, e.Window)
}

// TransactionRejectedError reports that the ledger executed the
// transaction and rejected it. Unlike a confirmation timeout, the
// outcome is known; the attempt fails immediately instead of polling
// out the confirmation window.
type TransactionRejectedError struct {
	Signature solana.Signature
	Cause     interface{}
}

func (e *TransactionRejectedError) Error() string {
	return fmt.Sprintf("transaction %s rejected: %v", e.Signature, e.Cause)
}

// RetryExhaustedError is the terminal failure of a submit/confirm cycle:
// every attempt failed. It carries only the last attempt's error.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("transaction not confirmed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error { return e.LastErr }
