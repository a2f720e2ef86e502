package api

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"streampay-relayer-go/internal/ledger"
	"streampay-relayer-go/internal/models"
	"streampay-relayer-go/internal/records"
	"streampay-relayer-go/internal/relayer"
	"streampay-relayer-go/internal/signing"
)

const (
	testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testPayee  = "0x90f79bf6eb2c4f870365e785982e1f101e93b906"
)

func setupAPITest(t *testing.T) (http.Handler, *ledger.Service, *ecdsa.PrivateKey, func()) {
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
	ledgerService, err := ledger.NewService(context.Background(), cfg, sc, testPayee)
	if err != nil {
		t.Fatalf("Failed to create ledger service: %v", err)
	}

	relayerService := relayer.NewService(ledgerService, records.NopRecorder{}, models.RelayerConfig{
		SubmissionCost: 1,
	})

	key, err := signing.ParsePrivateKey(testKeyHex)
	if err != nil {
		t.Fatalf("Failed to parse test key: %v", err)
	}

	router := NewRouter(NewHandler(relayerService, ledgerService))
	cleanup := func() {
		ledgerService.Close()
	}
	return router, ledgerService, key, cleanup
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func signedCharge(t *testing.T, l *ledger.Service, key *ecdsa.PrivateKey, sessionId string, amount int64, nonce uint64) models.ChargeRequest {
	t.Helper()

	intent := models.PaymentIntent{
		Payer:     signing.AccountOf(key),
		SessionId: sessionId,
		Amount:    amount,
		Deadline:  time.Now().Add(5 * time.Minute).Unix(),
		Nonce:     nonce,
	}
	signature, err := signing.SignIntent(l.SigningContext(), intent, key)
	if err != nil {
		t.Fatalf("Failed to sign intent: %v", err)
	}
	intent.Signature = signature
	return models.ChargeRequest{Intent: intent, ServiceLabel: "inference"}
}

func TestHealthCheck(t *testing.T) {
	router, _, _, cleanup := setupAPITest(t)
	defer cleanup()

	recorder := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if recorder.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", recorder.Code)
	}
}

func TestDepositAndAccount(t *testing.T) {
	router, _, key, cleanup := setupAPITest(t)
	defer cleanup()

	account := signing.AccountOf(key)

	recorder := doJSON(t, router, http.MethodPost, "/v1/accounts/"+account+"/deposit", models.MutationRequest{Amount: 1000})
	if recorder.Code != http.StatusOK {
		t.Fatalf("Deposit: expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, router, http.MethodGet, "/v1/accounts/"+account, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("Account: expected 200, got %d", recorder.Code)
	}

	var state models.AccountState
	if err := json.Unmarshal(recorder.Body.Bytes(), &state); err != nil {
		t.Fatalf("Failed to decode account state: %v", err)
	}
	if state.Balance != 1000 || state.Nonce != 0 {
		t.Errorf("Unexpected account state: %+v", state)
	}
}

func TestDeposit_BadAmount(t *testing.T) {
	router, _, key, cleanup := setupAPITest(t)
	defer cleanup()

	account := signing.AccountOf(key)
	recorder := doJSON(t, router, http.MethodPost, "/v1/accounts/"+account+"/deposit", models.MutationRequest{Amount: -5})
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", recorder.Code)
	}
}

func TestWithdraw_Overdraft(t *testing.T) {
	router, _, key, cleanup := setupAPITest(t)
	defer cleanup()

	account := signing.AccountOf(key)
	recorder := doJSON(t, router, http.MethodPost, "/v1/accounts/"+account+"/withdraw", models.MutationRequest{Amount: 10})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestCharge(t *testing.T) {
	router, ledgerService, key, cleanup := setupAPITest(t)
	defer cleanup()

	account := signing.AccountOf(key)
	if _, err := ledgerService.Deposit(context.Background(), account, 1000); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	recorder := doJSON(t, router, http.MethodPost, "/v1/charges", signedCharge(t, ledgerService, key, "session-1", 100, 0))
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response models.ChargeResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode charge response: %v", err)
	}
	if !response.Settled || response.ReceiptId == "" || response.Amount != 100 {
		t.Errorf("Unexpected charge response: %+v", response)
	}
}

func TestCharge_StatusMapping(t *testing.T) {
	router, ledgerService, key, cleanup := setupAPITest(t)
	defer cleanup()

	ctx := context.Background()
	account := signing.AccountOf(key)
	if _, err := ledgerService.Deposit(ctx, account, 1000); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	// Settle session-1 so the duplicate below conflicts.
	first := signedCharge(t, ledgerService, key, "session-1", 100, 0)
	if recorder := doJSON(t, router, http.MethodPost, "/v1/charges", first); recorder.Code != http.StatusOK {
		t.Fatalf("Seed charge failed: %d: %s", recorder.Code, recorder.Body.String())
	}

	expired := signedCharge(t, ledgerService, key, "session-expired", 100, 1)
	expired.Intent.Deadline = time.Now().Add(-time.Minute).Unix()
	expiredSig, err := signing.SignIntent(ledgerService.SigningContext(), expired.Intent, key)
	if err != nil {
		t.Fatalf("Failed to re-sign expired intent: %v", err)
	}
	expired.Intent.Signature = expiredSig

	tampered := signedCharge(t, ledgerService, key, "session-tampered", 100, 1)
	tampered.Intent.Amount = 500

	overdraft := signedCharge(t, ledgerService, key, "session-overdraft", 5000, 1)

	wrongNonce := signedCharge(t, ledgerService, key, "session-nonce", 100, 7)

	malformed := signedCharge(t, ledgerService, key, "session-malformed", 100, 1)
	malformed.ServiceLabel = ""

	cases := []struct {
		name   string
		req    models.ChargeRequest
		status int
		reason string
	}{
		{"duplicate session", first, http.StatusConflict, "ALREADY_SETTLED"},
		{"expired", expired, http.StatusUnprocessableEntity, "EXPIRED"},
		{"tampered amount", tampered, http.StatusUnauthorized, "INVALID_SIGNATURE"},
		{"insufficient balance", overdraft, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE"},
		{"wrong nonce", wrongNonce, http.StatusConflict, "NONCE_MISMATCH"},
		{"malformed", malformed, http.StatusBadRequest, "MALFORMED_REQUEST"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := doJSON(t, router, http.MethodPost, "/v1/charges", tc.req)
			if recorder.Code != tc.status {
				t.Errorf("Expected %d, got %d: %s", tc.status, recorder.Code, recorder.Body.String())
			}
			var response models.ChargeResponse
			if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to decode charge response: %v", err)
			}
			if response.Settled {
				t.Error("Expected rejection, got settlement")
			}
			if response.Reason != tc.reason {
				t.Errorf("Expected reason %s, got %s", tc.reason, response.Reason)
			}
		})
	}
}

func TestCharge_MalformedJSON(t *testing.T) {
	router, _, _, cleanup := setupAPITest(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/v1/charges", bytes.NewReader([]byte("{not json")))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", recorder.Code)
	}
}

func TestHistory(t *testing.T) {
	router, ledgerService, key, cleanup := setupAPITest(t)
	defer cleanup()

	ctx := context.Background()
	account := signing.AccountOf(key)
	if _, err := ledgerService.Deposit(ctx, account, 1000); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if _, err := ledgerService.Withdraw(ctx, account, 100); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}

	recorder := doJSON(t, router, http.MethodGet, "/v1/accounts/"+account+"/history", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var entries []models.LedgerEntry
	if err := json.Unmarshal(recorder.Body.Bytes(), &entries); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	recorder = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/accounts/%s/history?limit=%d", account, 9999), nil)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for oversized limit, got %d", recorder.Code)
	}
}
