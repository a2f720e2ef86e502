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

const (
	// Account queries
	queryGetAccount = `
		SELECT balance, nonce, version
		FROM accounts
		WHERE address = ?`

	queryInsertAccount = `
		INSERT INTO accounts (address, balance, nonce, version)
		VALUES (?, 0, 0, 1)`

	queryGetBalance = `
		SELECT balance FROM accounts WHERE address = ?`

	queryGetNonce = `
		SELECT nonce FROM accounts WHERE address = ?`

	queryUpdateAccountBalance = `
		UPDATE accounts
		SET balance = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE address = ? AND version = ?`

	queryUpdateAccountSettle = `
		UPDATE accounts
		SET balance = ?, nonce = nonce + 1, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE address = ? AND version = ? AND nonce = ?`

	// Settled-session registry queries
	queryIsSettled = `
		SELECT 1 FROM settled_sessions WHERE session_id = ? LIMIT 1`

	queryInsertSettledSession = `
		INSERT INTO settled_sessions (session_id, receipt_id, payer, payee, amount, nonce, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	// Audit trail queries
	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (id, account, entry_type, amount, balance_before, balance_after, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetLedgerEntries = `
		SELECT id, account, entry_type, amount, balance_before, balance_after, COALESCE(session_id, ''), created_at
		FROM ledger_entries
		WHERE account = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	queryReconcileBalance = `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account = ?`
)
