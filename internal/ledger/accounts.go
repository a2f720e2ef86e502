package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"streampay-relayer-go/internal/models"
	"streampay-relayer-go/internal/signing"
	"streampay-relayer-go/internal/store"
)

// accountSnapshot is the row-level view of an account inside a transaction.
type accountSnapshot struct {
	exists  bool
	balance int64
	nonce   uint64
	version int64
}

func readAccount(ctx context.Context, tx *sql.Tx, address string) (accountSnapshot, error) {
	var snap accountSnapshot
	err := tx.QueryRowContext(ctx, queryGetAccount, address).Scan(&snap.balance, &snap.nonce, &snap.version)
	if err == sql.ErrNoRows {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("failed to read account %s: %w", address, err)
	}
	snap.exists = true
	return snap, nil
}

// Deposit credits an account's escrow balance, implicitly creating the
// account on first use.
func (s *Service) Deposit(ctx context.Context, account string, amount int64) (*models.AccountState, error) {
	return s.adjustBalance(ctx, account, amount, "deposit")
}

// Withdraw debits an account's escrow balance. The balance never goes
// negative; an overdraft fails with store.ErrInsufficientFunds.
func (s *Service) Withdraw(ctx context.Context, account string, amount int64) (*models.AccountState, error) {
	return s.adjustBalance(ctx, account, -amount, "withdrawal")
}

func (s *Service) adjustBalance(ctx context.Context, account string, delta int64, entryType string) (*models.AccountState, error) {
	if delta == 0 || (entryType == "deposit" && delta <= 0) || (entryType == "withdrawal" && delta >= 0) {
		return nil, store.ErrInvalidAmount
	}
	if _, err := signing.ParseAccount(account); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrAccountNotFound, err)
	}
	address := signing.NormalizeAccount(account)

	var state *models.AccountState
	var err error
	for attempt := 0; attempt < settleAttempts; attempt++ {
		state, err = s.tryAdjustBalance(ctx, address, delta, entryType)
		if !errors.Is(err, store.ErrConcurrentModification) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	zap.L().Info("Balance adjusted",
		zap.String("account", address),
		zap.String("entry_type", entryType),
		zap.Int64("amount", delta),
		zap.Int64("new_balance", state.Balance))
	return state, nil
}

func (s *Service) tryAdjustBalance(ctx context.Context, address string, delta int64, entryType string) (*models.AccountState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	snap, err := readAccount(ctx, tx, address)
	if err != nil {
		return nil, err
	}
	if !snap.exists {
		if delta < 0 {
			return nil, fmt.Errorf("%w: required %d, available 0", store.ErrInsufficientFunds, -delta)
		}
		if _, err := tx.ExecContext(ctx, queryInsertAccount, address); err != nil {
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
		snap = accountSnapshot{exists: true, version: 1}
	}

	newBalance := snap.balance + delta
	if newBalance < 0 {
		return nil, fmt.Errorf("%w: required %d, available %d", store.ErrInsufficientFunds, -delta, snap.balance)
	}

	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, newBalance, address, snap.version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, queryInsertLedgerEntry,
		uuid.New().String(), address, entryType, delta, snap.balance, newBalance, "", now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.AccountState{Address: address, Balance: newBalance, Nonce: snap.nonce}, nil
}

// GetBalance returns an account's escrow balance. Unknown accounts are
// zero-balance, not an error: accounts exist implicitly before funding.
func (s *Service) GetBalance(ctx context.Context, account string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, queryGetBalance, signing.NormalizeAccount(account)).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// GetNonce returns an account's next expected intent nonce.
func (s *Service) GetNonce(ctx context.Context, account string) (uint64, error) {
	var nonce uint64
	err := s.db.QueryRowContext(ctx, queryGetNonce, signing.NormalizeAccount(account)).Scan(&nonce)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return nonce, nil
}

// IsSettled reports whether a session id has already been settled.
func (s *Service) IsSettled(ctx context.Context, sessionId string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, queryIsSettled, sessionId).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check settled session: %w", err)
	}
	return true, nil
}

// SettlementHistory returns an account's audit trail, newest first.
func (s *Service) SettlementHistory(ctx context.Context, account string, limit, offset int) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryGetLedgerEntries, signing.NormalizeAccount(account), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		err := rows.Scan(&entry.Id, &entry.Account, &entry.EntryType, &entry.Amount,
			&entry.BalanceBefore, &entry.BalanceAfter, &entry.SessionId, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

// ReconcileBalance recomputes the balance from the audit trail. The result
// must always equal the hot balance in accounts.
func (s *Service) ReconcileBalance(ctx context.Context, account string) (int64, error) {
	var calculated int64
	err := s.db.QueryRowContext(ctx, queryReconcileBalance, signing.NormalizeAccount(account)).Scan(&calculated)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile balance: %w", err)
	}
	return calculated, nil
}
