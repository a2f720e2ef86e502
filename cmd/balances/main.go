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
	exponentFlag := flag.Int("exponent", 2, "Minor unit exponent (e.g. 2 for cents)")
	historyFlag := flag.Int("history", 10, "Number of audit entries to show (0 to skip)")
	flag.Parse()

	if *accountFlag == "" {
		zap.L().Fatal("Required flag: --account")
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

	balance, err := ledgerService.GetBalance(ctx, *accountFlag)
	if err != nil {
		zap.L().Fatal("Failed to get balance", zap.Error(err))
	}
	nonce, err := ledgerService.GetNonce(ctx, *accountFlag)
	if err != nil {
		zap.L().Fatal("Failed to get nonce", zap.Error(err))
	}
	reconciled, err := ledgerService.ReconcileBalance(ctx, *accountFlag)
	if err != nil {
		zap.L().Fatal("Failed to reconcile balance", zap.Error(err))
	}

	common.PrintHeader("ACCOUNT STATE", common.DefaultWidth)
	fmt.Printf("Account:    %s\n", *accountFlag)
	fmt.Printf("Balance:    %s (%d minor units)\n", common.FormatAmount(balance, int32(*exponentFlag)), balance)
	fmt.Printf("Next Nonce: %d\n", nonce)
	if reconciled != balance {
		fmt.Printf("⚠ Audit trail disagrees with hot balance: %d vs %d\n", reconciled, balance)
	}

	if *historyFlag > 0 {
		entries, err := ledgerService.SettlementHistory(ctx, *accountFlag, *historyFlag, 0)
		if err != nil {
			zap.L().Fatal("Failed to get history", zap.Error(err))
		}

		fmt.Printf("\nRecent entries (%d):\n", len(entries))
		for i, entry := range entries {
			prefix := common.BoxPrefix(i == len(entries)-1)
			line := fmt.Sprintf("%-10s %12s  balance %d -> %d", entry.EntryType,
				common.FormatAmount(entry.Amount, int32(*exponentFlag)), entry.BalanceBefore, entry.BalanceAfter)
			if entry.SessionId != "" {
				line += "  session " + entry.SessionId
			}
			fmt.Println(prefix + line)
		}
	}

	common.PrintSeparator("=", common.DefaultWidth)
}
