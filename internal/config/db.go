package config

import (
	"fmt"
	"net/url"
)

type DbBackend string

const (
	MongoBackend   DbBackend = "mongo"
	LevelDBBackend DbBackend = "leveldb"
)

type DbConfig struct {
	Backend  DbBackend `mapstructure:"backend"`
	Username string    `mapstructure:"username"`
	Password string    `mapstructure:"password"`
	DbName   string    `mapstructure:"db-name"`
	Address  string    `mapstructure:"address"`
	// LevelDBPath is the data directory of the embedded store, empty keeps it in memory.
	LevelDBPath     string `mapstructure:"leveldb-path"`
	TxRetryAttempts uint   `mapstructure:"tx-retry-attempts"`
}

const defaultTxRetryAttempts = 10

func (cfg *DbConfig) Validate() error {
	if cfg.Backend == "" {
		cfg.Backend = MongoBackend
	}
	if cfg.TxRetryAttempts == 0 {
		cfg.TxRetryAttempts = defaultTxRetryAttempts
	}

	switch cfg.Backend {
	case MongoBackend:
		return cfg.validateMongo()
	case LevelDBBackend:
		return nil
	default:
		return fmt.Errorf("unsupported backend %q, should be one of {%s, %s}", cfg.Backend, MongoBackend, LevelDBBackend)
	}
}

func (cfg *DbConfig) validateMongo() error {
	if cfg.DbName == "" {
		return fmt.Errorf("missing db name")
	}

	if cfg.Address == "" {
		return fmt.Errorf("missing db address")
	}

	u, err := url.Parse(cfg.Address)
	if err != nil {
		return fmt.Errorf("invalid db address: %w", err)
	}

	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return fmt.Errorf("unsupported db address scheme %q", u.Scheme)
	}

	return nil
}
