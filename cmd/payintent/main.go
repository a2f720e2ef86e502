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

// payintent constructs, signs, and submits a payment intent the way a
// paying client would: fetch the account's next nonce from the relayer,
// sign the domain-separated digest locally, and post the charge.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"streampay-relayer-go/internal/common"
	"streampay-relayer-go/internal/config"
	"streampay-relayer-go/internal/models"
	"streampay-relayer-go/internal/signing"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	keyFlag := flag.String("key", "", "Hex-encoded payer private key (required)")
	amountFlag := flag.String("amount", "", "Amount to pay, in major units (required)")
	serviceFlag := flag.String("service", "", "Service label being paid for (required)")
	sessionFlag := flag.String("session", "", "Session id (defaults to a new UUID)")
	exponentFlag := flag.Int("exponent", 2, "Minor unit exponent (e.g. 2 for cents)")
	validityFlag := flag.Duration("validity", 5*time.Minute, "How long the intent stays valid")
	relayerFlag := flag.String("relayer", "http://localhost:8084", "Relayer base URL")
	flag.Parse()

	if *keyFlag == "" || *amountFlag == "" || *serviceFlag == "" {
		zap.L().Fatal("Required flags: --key, --amount, --service")
	}

	key, err := signing.ParsePrivateKey(*keyFlag)
	if err != nil {
		zap.L().Fatal("Invalid private key", zap.Error(err))
	}
	payer := signing.AccountOf(key)

	minor, err := common.ParseAmount(*amountFlag, int32(*exponentFlag))
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.Error(err))
	}

	sessionId := *sessionFlag
	if sessionId == "" {
		sessionId = uuid.New().String()
	}

	// The client signs under the same signing file the relayer validates
	// against; a mismatch is rejected as InvalidSignature.
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}
	signingCtx, _, err := common.LoadSigningConfig(cfg.Relayer.SigningFile)
	if err != nil {
		zap.L().Fatal("Failed to load signing context", zap.Error(err))
	}

	client := &http.Client{Timeout: 30 * time.Second}

	nonce, err := fetchNonce(ctx, client, *relayerFlag, payer)
	if err != nil {
		zap.L().Fatal("Failed to fetch account nonce", zap.Error(err))
	}

	intent := models.PaymentIntent{
		Payer:     payer,
		SessionId: sessionId,
		Amount:    minor,
		Deadline:  time.Now().Add(*validityFlag).Unix(),
		Nonce:     nonce,
	}
	intent.Signature, err = signing.SignIntent(signingCtx, intent, key)
	if err != nil {
		zap.L().Fatal("Failed to sign intent", zap.Error(err))
	}

	zap.L().Info("Submitting payment intent",
		zap.String("payer", payer),
		zap.String("session_id", sessionId),
		zap.Int64("amount", minor),
		zap.Uint64("nonce", nonce),
		zap.String("service", *serviceFlag))

	response, err := submitCharge(ctx, client, *relayerFlag, models.ChargeRequest{
		Intent:       intent,
		ServiceLabel: *serviceFlag,
	})
	if err != nil {
		zap.L().Fatal("Charge submission failed", zap.Error(err))
	}

	if response.Settled {
		common.PrintHeader("PAYMENT SETTLED", common.DefaultWidth)
		fmt.Printf("Receipt:  %s\n", response.ReceiptId)
		fmt.Printf("Amount:   %s (%d minor units)\n", common.FormatAmount(response.Amount, int32(*exponentFlag)), response.Amount)
		fmt.Printf("Service:  %s\n", response.ServiceLabel)
		fmt.Printf("Cost:     %d minor units (paid by relayer)\n", response.Cost)
		fmt.Printf("Elapsed:  %dms\n", response.ElapsedMs)
	} else {
		common.PrintHeader("PAYMENT REJECTED", common.DefaultWidth)
		fmt.Printf("Reason: %s\n", response.Reason)
		fmt.Printf("Detail: %s\n", response.Detail)
	}
	common.PrintSeparator("=", common.DefaultWidth)
}

func fetchNonce(ctx context.Context, client *http.Client, baseURL, account string) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/accounts/"+account, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from relayer", resp.StatusCode)
	}

	var state models.AccountState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return 0, err
	}
	return state.Nonce, nil
}

func submitCharge(ctx context.Context, client *http.Client, baseURL string, charge models.ChargeRequest) (*models.ChargeResponse, error) {
	body, err := json.Marshal(charge)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var response models.ChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode relayer response (status %d): %w", resp.StatusCode, err)
	}
	return &response, nil
}
