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

// Package ledger is the SQLite-backed authoritative account ledger. One
// instance owns one account namespace; there is no replication.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"streampay-relayer-go/internal/models"
	"streampay-relayer-go/internal/signing"
	"streampay-relayer-go/internal/store"
)

// Compile-time check: *Service must satisfy store.AccountLedger.
var _ store.AccountLedger = (*Service)(nil)

// settleAttempts bounds the optimistic-locking retry loop. A retry re-reads
// a fresh snapshot, so a same-nonce race loser resolves to NonceMismatch
// rather than spinning.
const settleAttempts = 3

type Service struct {
	db         *sql.DB
	signingCtx *signing.Context
	payee      string
}

// NewService opens the ledger database and prepares the schema. The payee
// is the fixed beneficiary every settlement credits; the signing context is
// the domain this ledger instance validates intents under.
func NewService(ctx context.Context, cfg models.DatabaseConfig, sc *signing.Context, payee string) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	if sc == nil {
		return nil, fmt.Errorf("signing context is required")
	}
	if _, err := signing.ParseAccount(payee); err != nil {
		return nil, fmt.Errorf("invalid payee: %w", err)
	}

	zap.L().Info("Opening SQLite ledger database", zap.String("file", cfg.Path))
	// _txlock=immediate takes the write lock at BEGIN so concurrent settle
	// calls serialize at the transaction boundary instead of failing on
	// lock upgrade mid-transaction.
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db, signingCtx: sc, payee: signing.NormalizeAccount(payee)}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Ledger service initialized successfully",
		zap.String("signing_context", sc.String()),
		zap.String("payee", service.payee))
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close ledger database connection", zap.Error(err))
	}
}

// SigningContext returns the domain separator context for this instance.
func (s *Service) SigningContext() *signing.Context {
	return s.signingCtx
}

// Payee returns the fixed settlement beneficiary.
func (s *Service) Payee() string {
	return s.payee
}

func (s *Service) initSchema() error {
	schema := `
	-- Account state (hot data): escrow balance and next expected nonce.
	CREATE TABLE IF NOT EXISTS accounts (
		address TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		nonce INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Settled-session registry. Existence of a row is a permanent fact;
	-- the PRIMARY KEY enforces exactly-once settlement per session id.
	CREATE TABLE IF NOT EXISTS settled_sessions (
		session_id TEXT PRIMARY KEY,
		receipt_id TEXT NOT NULL UNIQUE,
		payer TEXT NOT NULL,
		payee TEXT NOT NULL,
		amount INTEGER NOT NULL,
		nonce INTEGER NOT NULL,
		settled_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_settled_sessions_payer ON settled_sessions(payer);
	CREATE INDEX IF NOT EXISTS idx_settled_sessions_settled_at ON settled_sessions(settled_at);

	-- Immutable audit trail (cold data). An account balance always equals
	-- the sum of its entries.
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		account TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		balance_before INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		session_id TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries(account);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_created_at ON ledger_entries(created_at);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_session_id ON ledger_entries(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
