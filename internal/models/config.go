package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Relayer  RelayerConfig
	Server   ServerConfig
	Records  RecordsConfig
}

// DatabaseConfig holds ledger database settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// RelayerConfig holds relayer orchestration settings
type RelayerConfig struct {
	// SigningFile is the YAML file declaring the signing context and payee.
	SigningFile string
	// SubmissionCost is the relayer's own cost per ledger submission, in
	// minor units. It is accounted on the relayer side and never debited
	// from the payer's escrow balance.
	SubmissionCost int64
	// RecordTimeout bounds the fire-and-forget settlement record write.
	RecordTimeout time.Duration
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// RecordsConfig holds settlement record publishing settings
type RecordsConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}
