/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

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
	"streampay-relayer-go/internal/protocol"
	"streampay-relayer-go/internal/signing"
	"streampay-relayer-go/internal/store"
)

// Settle atomically validates and commits a payment intent: signature,
// nonce, deadline, session, and balance are checked against a single
// consistent snapshot, then the balance debit, nonce increment, and
// session-registry insert commit as one unit. Checks always precede
// effects; no caller ever observes a half-updated account.
//
// Validation failures return a *protocol.Rejection. An optimistic-lock
// conflict retries against a fresh snapshot, so of two intents racing on
// the same nonce exactly one commits and the other observes NonceMismatch.
func (s *Service) Settle(ctx context.Context, intent models.PaymentIntent) (*models.SettlementReceipt, error) {
	var receipt *models.SettlementReceipt
	var err error
	for attempt := 0; attempt < settleAttempts; attempt++ {
		receipt, err = s.trySettle(ctx, intent)
		if !errors.Is(err, store.ErrConcurrentModification) {
			break
		}
		zap.L().Debug("Settle retry after concurrent modification",
			zap.String("session_id", intent.SessionId),
			zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return nil, err
	}

	zap.L().Info("Settlement committed",
		zap.String("receipt_id", receipt.ReceiptId),
		zap.String("payer", receipt.Payer),
		zap.String("session_id", receipt.SessionId),
		zap.Int64("amount", receipt.Amount),
		zap.Uint64("nonce", receipt.Nonce),
		zap.Int64("balance_after", receipt.BalanceAfter))
	return receipt, nil
}

func (s *Service) trySettle(ctx context.Context, intent models.PaymentIntent) (*models.SettlementReceipt, error) {
	payer := signing.NormalizeAccount(intent.Payer)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	snap, err := readAccount(ctx, tx, payer)
	if err != nil {
		return nil, err
	}

	var one int
	settled := true
	err = tx.QueryRowContext(ctx, queryIsSettled, intent.SessionId).Scan(&one)
	if err == sql.ErrNoRows {
		settled = false
	} else if err != nil {
		return nil, fmt.Errorf("failed to check settled session: %w", err)
	}

	// The authoritative check: the same validator the relayer ran
	// optimistically, now against the in-transaction snapshot.
	state := models.AccountState{Address: payer, Balance: snap.balance, Nonce: snap.nonce}
	if err := protocol.ValidateIntent(s.signingCtx, intent, state, settled, time.Now().UTC()); err != nil {
		return nil, err
	}

	// Checks passed; effects follow.
	newBalance := snap.balance - intent.Amount
	result, err := tx.ExecContext(ctx, queryUpdateAccountSettle, newBalance, payer, snap.version, snap.nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("settlement update failed - %w", store.ErrConcurrentModification)
	}

	now := time.Now().UTC()
	receiptId := uuid.New().String()
	_, err = tx.ExecContext(ctx, queryInsertSettledSession,
		intent.SessionId, receiptId, payer, s.payee, intent.Amount, intent.Nonce, now)
	if err != nil {
		return nil, fmt.Errorf("failed to register settled session: %w", err)
	}

	_, err = tx.ExecContext(ctx, queryInsertLedgerEntry,
		uuid.New().String(), payer, "settlement", -intent.Amount, snap.balance, newBalance, intent.SessionId, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	return &models.SettlementReceipt{
		ReceiptId:    receiptId,
		Payer:        payer,
		Payee:        s.payee,
		SessionId:    intent.SessionId,
		Amount:       intent.Amount,
		Nonce:        intent.Nonce,
		BalanceAfter: newBalance,
		SettledAt:    now,
	}, nil
}
