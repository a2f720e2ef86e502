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

package main

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"streampay-relayer-go/internal/common"
	"streampay-relayer-go/internal/config"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Payer account address (required)")
	amountFlag := flag.String("amount", "", "Amount to deposit, in major units (required)")
	exponentFlag := flag.Int("exponent", 2, "Minor unit exponent (e.g. 2 for cents)")
	flag.Parse()

	if *accountFlag == "" || *amountFlag == "" {
		zap.L().Fatal("Required flags: --account, --amount")
	}

	minor, err := common.ParseAmount(*amountFlag, int32(*exponentFlag))
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	ledgerService, err := common.InitializeLedgerOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize ledger", zap.Error(err))
	}
	defer ledgerService.Close()

	state, err := ledgerService.Deposit(ctx, *accountFlag, minor)
	if err != nil {
		zap.L().Fatal("Deposit failed", zap.Error(err))
	}

	common.PrintHeader("DEPOSIT COMPLETE", common.DefaultWidth)
	fmt.Printf("Account:     %s\n", state.Address)
	fmt.Printf("Credited:    %s (%d minor units)\n", common.FormatAmount(minor, int32(*exponentFlag)), minor)
	fmt.Printf("New Balance: %s (%d minor units)\n", common.FormatAmount(state.Balance, int32(*exponentFlag)), state.Balance)
	common.PrintSeparator("=", common.DefaultWidth)
}
