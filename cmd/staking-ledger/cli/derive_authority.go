package cli

import (
	"fmt"

	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/babylonlabs-io/staking-ledger/internal/services"
	"github.com/spf13/cobra"
)

func DeriveAuthorityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive-authority",
		Short: "Prints the vault authority of the configured namespace and, given a staked mint, its pool and vault",
		Args:  cobra.ExactArgs(0),
		RunE:  deriveAuthority,
	}

	cmd.Flags().String("staked-mint", "", "Staked token type to derive the pool location for")
	cmd.Flags().String("owner", "", "Owner to derive the stake entry location for, requires --staked-mint")

	return cmd
}

func deriveAuthority(cmd *cobra.Command, args []string) error {
	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}

	// derivation is pure, no store is needed
	service := services.NewService(cfg, nil, nil, nil)

	authority, nonce, err := service.VaultAuthority()
	if err != nil {
		return err
	}
	fmt.Printf("namespace:       %s\n", cfg.Ledger.Namespace)
	fmt.Printf("vault authority: %s (nonce %d)\n", authority, nonce)

	mintFlag, err := cmd.Flags().GetString("staked-mint")
	if err != nil || mintFlag == "" {
		return err
	}
	stakedMint, err := address.Parse(mintFlag)
	if err != nil {
		return fmt.Errorf("invalid staked mint: %w", err)
	}

	pool, poolNonce, err := service.PoolAddress(stakedMint)
	if err != nil {
		return err
	}
	fmt.Printf("pool:            %s (nonce %d)\n", pool, poolNonce)

	ownerFlag, err := cmd.Flags().GetString("owner")
	if err != nil || ownerFlag == "" {
		return err
	}
	owner, err := address.Parse(ownerFlag)
	if err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}

	entry, entryNonce, err := service.StakeEntryAddress(owner, stakedMint)
	if err != nil {
		return err
	}
	fmt.Printf("stake entry:     %s (nonce %d)\n", entry, entryNonce)

	return nil
}
