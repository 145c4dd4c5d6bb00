package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/services"
	"github.com/babylonlabs-io/staking-ledger/internal/tokenledger"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFileName = "config.yml"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:           "staking-ledger",
		Short:         "Token staking ledger with pools, vaults and reward issuance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Setup() error {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	defaultConfigPath := getDefaultConfigFile(homePath, defaultConfigFileName)

	rootCmd.AddCommand(StartServerCmd())
	rootCmd.AddCommand(ShowPoolCmd())
	rootCmd.AddCommand(DeriveAuthorityCmd())
	rootCmd.AddCommand(KeygenCmd())
	rootCmd.AddCommand(SignCmd())
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, fmt.Sprintf("config file (default %s)", defaultConfigPath))

	return rootCmd.Execute()
}

func getDefaultConfigFile(homePath, filename string) string {
	return filepath.Join(homePath, filename)
}

func GetConfigPath() string {
	return cfgPath
}

// openService builds a service without event publishing for one-shot commands.
// The returned store must be closed by the caller.
func openService(ctx context.Context) (*services.Service, db.DbInterface, error) {
	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return nil, nil, err
	}

	store, err := db.Open(ctx, cfg.Db)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}

	return services.NewService(cfg, store, tokenledger.New(), nil), store, nil
}
