package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const feesFileName = "fees.yaml"

// LedgerFeeConfig is the per-ledger fee entry C10's network_fee
// parameter is ultimately sourced from.
type LedgerFeeConfig struct {
	// Principal identifies the fungible-token ledger canister this fee
	// applies to.
	Principal string `yaml:"principal"`
	// Symbol is a human label only, not used for lookups.
	Symbol string `yaml:"symbol"`
	// Fee is the ledger's fixed per-operation fee, in the ledger's base
	// unit (matching the "ledger fee" referenced throughout §4.10).
	Fee decimal.Decimal `yaml:"fee"`
}

// FeesConfig is the root of fees.yaml.
type FeesConfig struct {
	Ledgers []LedgerFeeConfig `yaml:"ledgers"`
}

// LoadFees loads and validates <configDirPath>/fees.yaml.
func LoadFees(configDirPath string) (FeesConfig, error) {
	path := filepath.Join(configDirPath, feesFileName)
	f, err := os.Open(path)
	if err != nil {
		return FeesConfig{}, err
	}
	defer f.Close()

	var cfg FeesConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return FeesConfig{}, err
	}

	if err := cfg.verify(); err != nil {
		return FeesConfig{}, err
	}
	return cfg, nil
}

func (c FeesConfig) verify() error {
	seen := make(map[string]bool, len(c.Ledgers))
	for i, l := range c.Ledgers {
		if l.Principal == "" {
			return fmt.Errorf("missing principal for ledger[%d]", i)
		}
		if seen[l.Principal] {
			return fmt.Errorf("duplicate ledger fee entry for principal %s", l.Principal)
		}
		seen[l.Principal] = true
		if l.Fee.IsNegative() {
			return fmt.Errorf("negative fee for ledger %s", l.Principal)
		}
	}
	return nil
}

// FeeFor returns the configured ledger fee for principal, or false if no
// entry exists.
func (c FeesConfig) FeeFor(principal string) (decimal.Decimal, bool) {
	for _, l := range c.Ledgers {
		if l.Principal == principal {
			return l.Fee, true
		}
	}
	return decimal.Decimal{}, false
}
