package store

import (
	"context"
	"errors"

	"streampay-relayer-go/internal/models"
	"streampay-relayer-go/internal/signing"
)

// Sentinel errors shared across all ledger implementations.
var (
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrAccountNotFound        = errors.New("account not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidAmount          = errors.New("amount must be positive")
)

// AccountLedger is the narrow boundary the relayer depends on. It holds
// balances, per-account nonces, and the settled-session registry, and is
// the only holder of mutable shared state in the system.
//
// Settle is the single atomicity-bearing operation: it re-runs the full
// intent validation and commits the balance debit, nonce increment, and
// session registration as one indivisible unit. No intermediate state is
// observable by any concurrent call. Validation failures surface as
// *protocol.Rejection; anything else is an environment fault.
type AccountLedger interface {
	// Deposit credits an account's escrow, creating the account on first
	// use. Withdraw debits it and fails with ErrInsufficientFunds rather
	// than driving the balance negative. Each is independently atomic.
	Deposit(ctx context.Context, account string, amount int64) (*models.AccountState, error)
	Withdraw(ctx context.Context, account string, amount int64) (*models.AccountState, error)

	GetBalance(ctx context.Context, account string) (int64, error)
	GetNonce(ctx context.Context, account string) (uint64, error)
	IsSettled(ctx context.Context, sessionId string) (bool, error)

	Settle(ctx context.Context, intent models.PaymentIntent) (*models.SettlementReceipt, error)

	// SettlementHistory returns an account's audit trail, newest first.
	SettlementHistory(ctx context.Context, account string, limit, offset int) ([]models.LedgerEntry, error)

	// ReconcileBalance recomputes an account's balance from the audit
	// trail. It must always equal the hot balance.
	ReconcileBalance(ctx context.Context, account string) (int64, error)

	// SigningContext returns the domain separator context this ledger
	// instance validates intents under.
	SigningContext() *signing.Context

	Close()
}
