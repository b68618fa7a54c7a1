package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("CASHIER_FEE_TREASURY_PRINCIPAL", "treasury-principal")
	t.Setenv("CASHIER_ICP_CANISTER_PRINCIPAL", "icp-principal")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, int64(120), cfg.TxTimeoutSeconds)
	require.Equal(t, int64(300), cfg.RequestLockTTLSeconds)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "localhost", cfg.Database.Host)
}

func TestLoadFailsWithoutRequiredFields(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
}

func TestLoadParsesTrustedOriginsList(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CASHIER_TRUSTED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.TrustedOrigins)
}

func TestDurationHelpers(t *testing.T) {
	cfg := EngineConfig{TxTimeoutSeconds: 45, RequestLockTTLSeconds: 90}
	require.Equal(t, 45*time.Second, cfg.TxTimeout())
	require.Equal(t, 90*time.Second, cfg.RequestLockTTL())
}
