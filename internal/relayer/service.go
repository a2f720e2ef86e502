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

// Package relayer turns client-submitted payment intents into settlement
// receipts or precise rejections. The relayer is a distinct principal from
// the payer: it pays the submission cost itself and accounts for it on its
// own cost ledger, never against payer escrow.
package relayer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"streampay-relayer-go/internal/metrics"
	"streampay-relayer-go/internal/models"
	"streampay-relayer-go/internal/protocol"
	"streampay-relayer-go/internal/records"
	"streampay-relayer-go/internal/signing"
	"streampay-relayer-go/internal/store"
)

const (
	stagePrecheck = "precheck"
	stageCommit   = "commit"
)

type Service struct {
	ledger         store.AccountLedger
	recorder       records.Recorder
	submissionCost int64
	recordTimeout  time.Duration
	costTotal      atomic.Int64
}

func NewService(ledger store.AccountLedger, recorder records.Recorder, cfg models.RelayerConfig) *Service {
	if recorder == nil {
		recorder = records.NopRecorder{}
	}
	recordTimeout := cfg.RecordTimeout
	if recordTimeout <= 0 {
		recordTimeout = 5 * time.Second
	}
	return &Service{
		ledger:         ledger,
		recorder:       recorder,
		submissionCost: cfg.SubmissionCost,
		recordTimeout:  recordTimeout,
	}
}

// CumulativeCost returns the total submission cost the relayer has paid,
// in minor units.
func (s *Service) CumulativeCost() int64 {
	return s.costTotal.Load()
}

// Execute processes one charge request end to end: structural check,
// optimistic pre-check against current ledger state, atomic submission,
// and outcome classification. The only suspension points are the two
// ledger round trips; the wait on Settle is unbounded by design and is
// cut short only by ctx, in which case the intent's fate must be resolved
// later via IsSettled, never assumed failed.
//
// Rejections are final: no automatic retry. Only SubmissionFailed is a
// candidate for caller-driven retry, and only after re-confirming the
// session is still unsettled.
func (s *Service) Execute(ctx context.Context, req models.ChargeRequest) *Result {
	start := time.Now()

	if rej := validateStructure(req); rej != nil {
		return s.reject(req, rej, stagePrecheck, start)
	}
	intent := req.Intent

	// Optimistic pre-check against last-known state: fail fast without
	// paying submission cost. Same validator the ledger re-runs at commit.
	balance, err := s.ledger.GetBalance(ctx, intent.Payer)
	if err != nil {
		return s.submissionFailed(req, "failed to read payer balance", err, start)
	}
	nonce, err := s.ledger.GetNonce(ctx, intent.Payer)
	if err != nil {
		return s.submissionFailed(req, "failed to read payer nonce", err, start)
	}
	settled, err := s.ledger.IsSettled(ctx, intent.SessionId)
	if err != nil {
		return s.submissionFailed(req, "failed to read settlement status", err, start)
	}

	state := models.AccountState{
		Address: signing.NormalizeAccount(intent.Payer),
		Balance: balance,
		Nonce:   nonce,
	}
	if err := protocol.ValidateIntent(s.ledger.SigningContext(), intent, state, settled, time.Now().UTC()); err != nil {
		rej, _ := protocol.AsRejection(err)
		return s.reject(req, rej, stagePrecheck, start)
	}

	// Submit for atomic execution. Settle returns only once the ledger has
	// durably committed or rejected; "sent" is never enough.
	receipt, err := s.ledger.Settle(ctx, intent)
	if err != nil {
		if rej, ok := protocol.AsRejection(err); ok {
			// The pre-check passed, so this is a genuine race (another
			// intent for the same account committed in between). Surface
			// the authoritative rejection as such, not as a fault.
			zap.L().Info("Optimistic accept rejected at commit",
				zap.String("session_id", intent.SessionId),
				zap.String("payer", state.Address),
				zap.String("reason", string(rej.Reason)))
			return s.reject(req, rej, stageCommit, start)
		}
		return s.submissionFailed(req, "ledger submission failed", err, start)
	}

	cost := s.submissionCost
	s.costTotal.Add(cost)
	elapsed := time.Since(start)

	metrics.SettlementsTotal.Inc()
	metrics.SettlementDuration.Observe(elapsed.Seconds())
	metrics.SubmissionCostTotal.Add(float64(cost))

	s.recordSettlement(receipt, req.ServiceLabel)

	zap.L().Info("Charge executed",
		zap.String("receipt_id", receipt.ReceiptId),
		zap.String("payer", receipt.Payer),
		zap.String("session_id", receipt.SessionId),
		zap.String("service_label", req.ServiceLabel),
		zap.Int64("amount", receipt.Amount),
		zap.Int64("cost", cost),
		zap.Duration("elapsed", elapsed))

	return &Result{
		Settled:      true,
		ReceiptId:    receipt.ReceiptId,
		Amount:       receipt.Amount,
		ServiceLabel: req.ServiceLabel,
		Metadata:     req.Metadata,
		Cost:         cost,
		Elapsed:      elapsed,
	}
}

// recordSettlement hands the settlement to the record-keeping collaborator.
// Fire-and-forget: runs on its own goroutine with its own deadline, and a
// failure is logged, never propagated.
func (s *Service) recordSettlement(receipt *models.SettlementReceipt, serviceLabel string) {
	record := records.SettlementRecord{
		Payer:        receipt.Payer,
		SessionId:    receipt.SessionId,
		Amount:       receipt.Amount,
		ReceiptId:    receipt.ReceiptId,
		ServiceLabel: serviceLabel,
		Timestamp:    receipt.SettledAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.recordTimeout)
		defer cancel()
		if err := s.recorder.Record(ctx, record); err != nil {
			zap.L().Warn("Failed to write settlement record",
				zap.String("receipt_id", record.ReceiptId),
				zap.String("session_id", record.SessionId),
				zap.Error(err))
		}
	}()
}

func validateStructure(req models.ChargeRequest) *protocol.Rejection {
	intent := req.Intent
	if _, err := signing.ParseAccount(intent.Payer); err != nil {
		return &protocol.Rejection{Reason: protocol.ReasonMalformedRequest, Detail: "invalid payer account", Err: err}
	}
	if intent.SessionId == "" {
		return protocol.NewRejection(protocol.ReasonMalformedRequest, "sessionId must not be empty")
	}
	if intent.Amount <= 0 {
		return protocol.NewRejection(protocol.ReasonMalformedRequest, "amount must be a positive integer in minor units")
	}
	if intent.Deadline <= 0 {
		return protocol.NewRejection(protocol.ReasonMalformedRequest, "deadline must be a Unix timestamp in seconds")
	}
	if intent.Signature == "" {
		return protocol.NewRejection(protocol.ReasonMalformedRequest, "signature must not be empty")
	}
	if req.ServiceLabel == "" {
		return protocol.NewRejection(protocol.ReasonMalformedRequest, "serviceLabel must not be empty")
	}
	return nil
}

func (s *Service) reject(req models.ChargeRequest, rej *protocol.Rejection, stage string, start time.Time) *Result {
	metrics.RejectionsTotal.WithLabelValues(string(rej.Reason), stage).Inc()
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())

	zap.L().Info("Charge rejected",
		zap.String("session_id", req.Intent.SessionId),
		zap.String("payer", req.Intent.Payer),
		zap.String("stage", stage),
		zap.String("reason", string(rej.Reason)),
		zap.String("detail", rej.Detail))

	return &Result{
		Settled: false,
		Reason:  rej.Reason,
		Detail:  rej.Detail,
	}
}

func (s *Service) submissionFailed(req models.ChargeRequest, detail string, err error, start time.Time) *Result {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zap.L().Warn("Charge aborted by caller; settlement fate unknown until IsSettled is re-queried",
			zap.String("session_id", req.Intent.SessionId),
			zap.Error(err))
	}
	rej := &protocol.Rejection{Reason: protocol.ReasonSubmissionFailed, Detail: detail, Err: err}
	zap.L().Error("Charge submission failed",
		zap.String("session_id", req.Intent.SessionId),
		zap.String("payer", req.Intent.Payer),
		zap.Error(err))
	metrics.RejectionsTotal.WithLabelValues(string(rej.Reason), stageCommit).Inc()
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	return &Result{
		Settled: false,
		Reason:  rej.Reason,
		Detail:  detail + ": " + err.Error(),
	}
}
