package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"streampay-relayer-go/internal/common"
	"streampay-relayer-go/internal/config"
	"streampay-relayer-go/internal/store"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Payer account address (required)")
	amountFlag := flag.String("amount", "", "Amount to withdraw, in major units (required)")
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

	state, err := ledgerService.Withdraw(ctx, *accountFlag, minor)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			common.PrintHeader("WITHDRAWAL FAILED", common.DefaultWidth)
			fmt.Printf("Account: %s\n", *accountFlag)
			fmt.Printf("Error:   %s\n", err)
			common.PrintSeparator("=", common.DefaultWidth)
		}
		zap.L().Fatal("Withdrawal failed", zap.Error(err))
	}

	common.PrintHeader("WITHDRAWAL COMPLETE", common.DefaultWidth)
	fmt.Printf("Account:     %s\n", state.Address)
	fmt.Printf("Debited:     %s (%d minor units)\n", common.FormatAmount(minor, int32(*exponentFlag)), minor)
	fmt.Printf("New Balance: %s (%d minor units)\n", common.FormatAmount(state.Balance, int32(*exponentFlag)), state.Balance)
	common.PrintSeparator("=", common.DefaultWidth)
}
