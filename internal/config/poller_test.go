package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerConfig_Validate(t *testing.T) {
	t.Run("interval set", func(t *testing.T) {
		cfg := &PollerConfig{ReconciliationInterval: 30 * time.Second}
		require.NoError(t, cfg.Validate())
	})

	t.Run("interval not set - should error", func(t *testing.T) {
		cfg := &PollerConfig{}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reconciliation-interval must be positive")
	})

	t.Run("disabled poller ignores interval", func(t *testing.T) {
		cfg := &PollerConfig{Disabled: true}
		require.NoError(t, cfg.Validate())
	})
}
