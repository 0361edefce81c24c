package config

import (
	"fmt"
	"os"
	"time"
)

// Balance source kinds
const (
	SourceRandom   = "random"
	SourcePostgres = "postgres"
	SourceSOAP     = "soap"
)

// Config holds application configuration
type Config struct {
	Port                 string
	DBConn               string
	LogLevel             string
	JWTSecret            string
	OperatorPasswordHash string
	BalanceSource        string
	LedgerURL            string
	SyncInterval         time.Duration
	SnapshotPath         string
	SnapshotSecret       string
	SMTPHost             string
	SMTPPort             string
	SMTPUsername         string
	SMTPPassword         string
	SenderEmail          string
	AlertEmail           string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		DBConn:               getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=bank sslmode=disable"),
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:            getEnv("JWT_SECRET", "secret"),
		OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
		BalanceSource:        getEnv("BALANCE_SOURCE", SourceRandom),
		LedgerURL:            getEnv("LEDGER_URL", "http://localhost:8081/LedgerService.asmx"),
		SnapshotPath:         getEnv("SNAPSHOT_PATH", "data/accounts.json"),
		SnapshotSecret:       getEnv("SNAPSHOT_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnv("SMTP_PORT", "587"),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", "noreply@bank.local"),
		AlertEmail:           getEnv("ALERT_EMAIL", ""),
	}

	interval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}
	if interval < 0 {
		return nil, fmt.Errorf("SYNC_INTERVAL must not be negative")
	}
	cfg.SyncInterval = interval

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SnapshotSecret == "" {
		return nil, fmt.Errorf("SNAPSHOT_SECRET is required")
	}
	switch cfg.BalanceSource {
	case SourceRandom:
	case SourcePostgres:
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required for the postgres balance source")
		}
	case SourceSOAP:
		if cfg.LedgerURL == "" {
			return nil, fmt.Errorf("LEDGER_URL is required for the soap balance source")
		}
	default:
		return nil, fmt.Errorf("unknown BALANCE_SOURCE %q", cfg.BalanceSource)
	}

	return cfg, nil
}

// AlertsEnabled reports whether synchronization failures should be mailed
func (c *Config) AlertsEnabled() bool {
	return c.SMTPHost != "" && c.AlertEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
