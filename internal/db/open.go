package db

import (
	"context"
	"fmt"

	"github.com/babylonlabs-io/staking-ledger/internal/config"
)

// Open returns the record store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.DbConfig) (DbInterface, error) {
	switch cfg.Backend {
	case config.MongoBackend, "":
		return New(ctx, cfg)
	case config.LevelDBBackend:
		return NewLevelDB(cfg)
	default:
		return nil, fmt.Errorf("unsupported db backend %q", cfg.Backend)
	}
}
