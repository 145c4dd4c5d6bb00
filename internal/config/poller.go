package config

import (
	"errors"
	"time"
)

type PollerConfig struct {
	ReconciliationInterval time.Duration `mapstructure:"reconciliation-interval"`
	// Disabled turns the reconciliation poller off, e.g. for one-shot cli commands.
	Disabled bool `mapstructure:"disabled"`
}

func (cfg *PollerConfig) Validate() error {
	if cfg.Disabled {
		return nil
	}

	if cfg.ReconciliationInterval <= 0 {
		return errors.New("reconciliation-interval must be positive")
	}

	return nil
}
