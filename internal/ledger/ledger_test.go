package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"streampay-relayer-go/internal/models"
	"streampay-relayer-go/internal/signing"
	"streampay-relayer-go/internal/store"
)

const (
	testKeyHex   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testPayee    = "0x90f79bf6eb2c4f870365e785982e1f101e93b906"
	testValidity = 5 * time.Minute
)

func setupLedgerTest(t *testing.T) (*Service, *ecdsa.PrivateKey, func()) {
	t.Helper()

	sc, err := signing.NewContext("streampay", "1", "ledger-test")
	if err != nil {
		t.Fatalf("Failed to create signing context: %v", err)
	}

	cfg := models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		PingTimeout:  5 * time.Second,
	}

	service, err := NewService(context.Background(), cfg, sc, testPayee)
	if err != nil {
		t.Fatalf("Failed to create ledger service: %v", err)
	}

	key, err := signing.ParsePrivateKey(testKeyHex)
	if err != nil {
		t.Fatalf("Failed to parse test key: %v", err)
	}

	cleanup := func() {
		service.Close()
	}
	return service, key, cleanup
}

func signedIntent(t *testing.T, service *Service, key *ecdsa.PrivateKey, sessionId string, amount int64, nonce uint64) models.PaymentIntent {
	t.Helper()

	intent := models.PaymentIntent{
		Payer:     signing.AccountOf(key),
		SessionId: sessionId,
		Amount:    amount,
		Deadline:  time.Now().Add(testValidity).Unix(),
		Nonce:     nonce,
	}
	signature, err := signing.SignIntent(service.SigningContext(), intent, key)
	if err != nil {
		t.Fatalf("Failed to sign intent: %v", err)
	}
	intent.Signature = signature
	return intent
}

func TestDeposit_CreatesAccount(t *testing.T) {
	service, key, cleanup := setupLedgerTest(t)
	defer cleanup()

	ctx := context.Background()
	account := signing.AccountOf(key)

	state, err := service.Deposit(ctx, account, 1000)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if state.Balance != 1000 {
		t.Errorf("Expected balance 1000, got %d", state.Balance)
	}
	if state.Nonce != 0 {
		t.Errorf("Expected nonce 0, got %d", state.Nonce)
	}

	balance, err := service.GetBalance(ctx, account)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 1000 {
		t.Errorf("Expected balance 1000, got %d", balance)
	}
}

func TestDeposit_Accumulates(t *testing.T) {
	service, key, cleanup := setupLedgerTest(t)
	defer cleanup()

	ctx := context.Background()
	account := signing.AccountOf(key)

	if _, err := service.Deposit(ctx, account, 300); err != nil {
		t.Fatalf("First deposit failed: %v", err)
	}
	state, err := service.Deposit(ctx, account, 200)
	if err != nil {
		t.Fatalf("Second deposit failed: %v", err)
	}
	if state.Balance != 500 {
		t.Errorf("Expected balance 500, got %d", state.Balance)
	}
}

func TestDeposit_RejectsNonPositiveAmount(t *testing.T) {
	service, key, cleanup := setupLedgerTest(t)
	defer cleanup()

	ctx := context.Background()
	account := signing.AccountOf(key)

	for _, amount := range []int64{0, -100} {
		if _, err := service.Deposit(ctx, account, amount); !errors.Is(err, store.ErrInvalidAmount) {
			t.Errorf("Expected ErrInvalidAmount for %d, got %v", amount, err)
		}
	}
}

func TestDeposit_RejectsInvalidAccount(t *testing.T) {
	service, _, cleanup := setupLedgerTest(t)
	defer cleanup()

	if _, err := service.Deposit(context.Background(), "not-an-account", 100); !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	service, key, cleanup := setupLedgerTest(t)
	defer cleanup()

	ctx := context.Background()
	account := signing.AccountOf(key)

	if _, err := service.Deposit(ctx, account, 1000); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	state, err := service.Withdraw(ctx, account, 400)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if state.Balance != 600 {
		t.Errorf("Expected balance 600, got %d", state.Balance)
	}
}

func TestWithdraw_Overdraft(t *testing.T) {
	service, key, cleanup := setupLedgerTest(t)
	defer cleanup()

	ctx := context.Background()
	account := signing.AccountOf(key)

	if _, err := service.Deposit(ctx, account, 100); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	if _, err := service.Withdraw(ctx, account, 101); !errors.Is(err, store.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}

	// Balance unchanged after the failed withdrawal.
	balance, err := service.GetBalance(ctx, account)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 100 {
		t.Errorf("Expected balance 100, got %d", balance)
	}
}

func TestWithdraw_UnknownAccount(t *testing.T) {
	service, key, cleanup := setupLedgerTest(t)
	defer cleanup()

	if _, err := service.Withdraw(context.Background(), signing.AccountOf(key), 1); !errors.Is(err, store.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
}

func TestGetBalance_UnknownAccountIsZero(t *testing.T) {
	service, key, cleanup := setupLedgerTest(t)
	defer cleanup()

	ctx := context.Background()
	account := signing.AccountOf(key)

	balance, err := service.GetBalance(ctx, account)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("Expected balance 0, got %d", balance)
	}

	nonce, err := service.GetNonce(ctx, account)
	if err != nil {
		t.Fatalf("GetNonce failed: %v", err)
	}
	if nonce != 0 {
		t.Errorf("Expected nonce 0, got %d", nonce)
	}
}

func TestSettlementHistory(t *testing.T) {
	service, key, cleanup := setupLedgerTest(t)
	defer cleanup()

	ctx := context.Background()
	account := signing.AccountOf(key)

	if _, err := service.Deposit(ctx, account, 1000); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if _, err := service.Withdraw(ctx, account, 250); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}

	entries, err := service.SettlementHistory(ctx, account, 50, 0)
	if err != nil {
		t.Fatalf("SettlementHistory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	// Newest first.
	if entries[0].EntryType != "withdrawal" || entries[0].Amount != -250 {
		t.Errorf("Unexpected first entry: %s %d", entries[0].EntryType, entries[0].Amount)
	}
	if entries[1].EntryType != "deposit" || entries[1].Amount != 1000 {
		t.Errorf("Unexpected second entry: %s %d", entries[1].EntryType, entries[1].Amount)
	}
	if entries[0].BalanceBefore != 1000 || entries[0].BalanceAfter != 750 {
		t.Errorf("Unexpected balance transition: %d -> %d", entries[0].BalanceBefore, entries[0].BalanceAfter)
	}
}

func TestReconcileBalance_MatchesAccountBalance(t *testing.T) {
	service, key, cleanup := setupLedgerTest(t)
	defer cleanup()

	ctx := context.Background()
	account := signing.AccountOf(key)

	if _, err := service.Deposit(ctx, account, 1000); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if _, err := service.Withdraw(ctx, account, 300); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if _, err := service.Deposit(ctx, account, 50); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	balance, err := service.GetBalance(ctx, account)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	calculated, err := service.ReconcileBalance(ctx, account)
	if err != nil {
		t.Fatalf("ReconcileBalance failed: %v", err)
	}
	if balance != calculated {
		t.Errorf("Account balance %d disagrees with audit trail %d", balance, calculated)
	}
	if balance != 750 {
		t.Errorf("Expected balance 750, got %d", balance)
	}
}

func TestNewService_Validation(t *testing.T) {
	sc, err := signing.NewContext("streampay", "1", "ledger-test")
	if err != nil {
		t.Fatalf("Failed to create signing context: %v", err)
	}

	valid := models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		PingTimeout:  5 * time.Second,
	}

	cases := []struct {
		name  string
		cfg   models.DatabaseConfig
		sc    *signing.Context
		payee string
	}{
		{"empty path", models.DatabaseConfig{MaxOpenConns: 5, PingTimeout: time.Second}, sc, testPayee},
		{"zero max open conns", models.DatabaseConfig{Path: "x.db", PingTimeout: time.Second}, sc, testPayee},
		{"nil signing context", valid, nil, testPayee},
		{"invalid payee", valid, sc, "not-an-account"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewService(context.Background(), tc.cfg, tc.sc, tc.payee); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
