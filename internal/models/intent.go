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

package models

import "time"

// PaymentIntent is a client-signed authorization for a single payment.
// It is an ephemeral message: it lives only for the duration of one
// relayer execution and is never persisted as-is.
type PaymentIntent struct {
	// Payer is the account identity, a lower-case 0x-prefixed address.
	Payer string `json:"payer"`
	// SessionId is an opaque idempotency key chosen by the initiator,
	// unique per logical payment event.
	SessionId string `json:"sessionId"`
	// Amount is a positive integer in minor currency units.
	Amount int64 `json:"amount"`
	// Deadline is the absolute expiry time as a Unix timestamp in seconds.
	Deadline int64 `json:"deadline"`
	// Nonce must equal the payer account's next expected sequence number.
	Nonce uint64 `json:"nonce"`
	// Signature is the 65-byte [R || S || V] secp256k1 signature over the
	// domain-separated intent digest, hex encoded with 0x prefix.
	Signature string `json:"signature"`
}

// AccountState is a point-in-time snapshot of a payer account as held by
// the ledger: the escrow balance and the next expected intent nonce.
type AccountState struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// SettlementReceipt is the ledger's confirmation of a committed settlement.
type SettlementReceipt struct {
	ReceiptId    string    `json:"receipt_id"`
	Payer        string    `json:"payer"`
	Payee        string    `json:"payee"`
	SessionId    string    `json:"session_id"`
	Amount       int64     `json:"amount"`
	Nonce        uint64    `json:"nonce"`
	BalanceAfter int64     `json:"balance_after"`
	SettledAt    time.Time `json:"settled_at"`
}

// LedgerEntry is an immutable row in the ledger's audit trail. Deposits
// carry a positive amount, withdrawals and settlements a negative one, so
// an account balance is always the sum of its entries.
type LedgerEntry struct {
	Id            string    `json:"id"`
	Account       string    `json:"account"`
	EntryType     string    `json:"entry_type"` // "deposit", "withdrawal", "settlement"
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	SessionId     string    `json:"session_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
