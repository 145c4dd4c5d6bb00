package config

import (
	"errors"
	"time"
)

const defaultRequestMaxSkew = 5 * time.Minute

type LedgerConfig struct {
	// Namespace separates the derived addresses of independent ledger deployments.
	Namespace      string        `mapstructure:"namespace"`
	RequestMaxSkew time.Duration `mapstructure:"request-max-skew"`
}

func (cfg *LedgerConfig) Validate() error {
	if cfg.Namespace == "" {
		return errors.New("namespace must be set")
	}

	if cfg.RequestMaxSkew <= 0 {
		cfg.RequestMaxSkew = defaultRequestMaxSkew
	}

	return nil
}
