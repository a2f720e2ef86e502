package common

import (
	"context"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"streampay-relayer-go/internal/ledger"
	"streampay-relayer-go/internal/models"
	"streampay-relayer-go/internal/records"
	"streampay-relayer-go/internal/relayer"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via other means (shell export,
	// docker, etc.), so a missing .env is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	Ledger   *ledger.Service
	Relayer  *relayer.Service
	Recorder records.Recorder
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	zap.L().Info("Loading signing context", zap.String("file", cfg.Relayer.SigningFile))
	signingCtx, payee, err := LoadSigningConfig(cfg.Relayer.SigningFile)
	if err != nil {
		return nil, err
	}

	ledgerService, err := ledger.NewService(ctx, cfg.Database, signingCtx, payee)
	if err != nil {
		return nil, err
	}

	var recorder records.Recorder = records.NopRecorder{}
	if cfg.Records.Enabled {
		zap.L().Info("Settlement record publishing enabled",
			zap.Strings("brokers", cfg.Records.Brokers),
			zap.String("topic", cfg.Records.Topic))
		recorder = records.NewKafkaRecorder(cfg.Records.Brokers, cfg.Records.Topic)
	}

	relayerService := relayer.NewService(ledgerService, recorder, cfg.Relayer)

	return &Services{
		Ledger:   ledgerService,
		Relayer:  relayerService,
		Recorder: recorder,
	}, nil
}

// InitializeLedgerOnly initializes just the ledger service, for read-only
// command-line tools that never relay intents.
func InitializeLedgerOnly(ctx context.Context, cfg *models.Config) (*ledger.Service, error) {
	signingCtx, payee, err := LoadSigningConfig(cfg.Relayer.SigningFile)
	if err != nil {
		return nil, err
	}
	return ledger.NewService(ctx, cfg.Database, signingCtx, payee)
}

func (cs *Services) Close() {
	if cs.Ledger != nil {
		cs.Ledger.Close()
	}
	if kr, ok := cs.Recorder.(*records.KafkaRecorder); ok {
		kr.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
