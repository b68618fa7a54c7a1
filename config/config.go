// Package config loads the engine's environment-variable configuration
// (§6 "Environment inputs") and its YAML fee table, following the
// teacher's DatabaseConfig/AssetsConfig split: env-tagged structs for
// small scalars, YAML for the larger per-asset table.
package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// EngineConfig holds the environment inputs named in §6.
type EngineConfig struct {
	// TxTimeoutSeconds is TX_TIMEOUT (§4.4) in seconds, read from the
	// environment, bounding how long a transaction may sit in Processing
	// before the validator re-checks it once.
	TxTimeoutSeconds int64 `env:"CASHIER_TX_TIMEOUT_SECONDS" env-default:"120"`

	FeeTreasuryPrincipal string `env:"CASHIER_FEE_TREASURY_PRINCIPAL" env-required:"true"`
	IcpCanisterPrincipal string `env:"CASHIER_ICP_CANISTER_PRINCIPAL" env-required:"true"`

	DefaultTimeoutBoundedCallSecs int64 `env:"CASHIER_DEFAULT_TIMEOUT_BOUNDED_CALL_SECS" env-default:"30"`

	CashierNftCanisterID string `env:"CASHIER_NFT_CANISTER_ID" env-default:""`

	TrustedOrigins []string `env:"CASHIER_TRUSTED_ORIGINS" env-separator:","`

	// RequestLockTTLSeconds is the "fixed TTL (order of minutes)" of
	// §4.11 after which an unreleased lock is treated as abandoned.
	RequestLockTTLSeconds int64 `env:"CASHIER_REQUEST_LOCK_TTL_SECONDS" env-default:"300"`

	Database DatabaseConfig
}

// DatabaseConfig configures the repository layer's gorm connection.
// Mirrors the teacher's DatabaseConfig shape: empty Driver defaults to
// sqlite for local/dev use, postgres otherwise.
type DatabaseConfig struct {
	URL      string `env:"CASHIER_DATABASE_URL" env-default:""`
	Name     string `env:"CASHIER_DATABASE_NAME" env-default:""`
	Schema   string `env:"CASHIER_DATABASE_SCHEMA" env-default:""`
	Driver   string `env:"CASHIER_DATABASE_DRIVER" env-default:"postgres"`
	Username string `env:"CASHIER_DATABASE_USERNAME" env-default:"postgres"`
	Password string `env:"CASHIER_DATABASE_PASSWORD" env-default:""`
	Host     string `env:"CASHIER_DATABASE_HOST" env-default:"localhost"`
	Port     string `env:"CASHIER_DATABASE_PORT" env-default:"5432"`
	Retries  int    `env:"CASHIER_DATABASE_RETRIES" env-default:"5"`
}

// TxTimeout returns TxTimeoutSeconds as a time.Duration.
func (c EngineConfig) TxTimeout() time.Duration {
	return time.Duration(c.TxTimeoutSeconds) * time.Second
}

// RequestLockTTL returns RequestLockTTLSeconds as a time.Duration.
func (c EngineConfig) RequestLockTTL() time.Duration {
	return time.Duration(c.RequestLockTTLSeconds) * time.Second
}

// Load reads a local .env file (if present, ignored otherwise) then
// parses the environment into an EngineConfig.
func Load() (EngineConfig, error) {
	_ = godotenv.Load()

	var cfg EngineConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}
