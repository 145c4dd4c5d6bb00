package cli

import (
	"fmt"

	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

func ShowPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-pool <staked-mint>",
		Short: "Dumps the pool of a staked token type, its vault and last reconciliation",
		Args:  cobra.ExactArgs(1),
		RunE:  showPool,
	}

	cmd.Flags().Bool("reconcile", false, "Reconcile all pools before showing the stats")

	return cmd
}

func showPool(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	stakedMint, err := address.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid staked mint: %w", err)
	}

	service, store, err := openService(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	reconcile, err := cmd.Flags().GetBool("reconcile")
	if err != nil {
		return err
	}
	if reconcile {
		if err := service.ReconcilePools(ctx); err != nil {
			return err
		}
	}

	pool, err := service.GetPoolByMint(ctx, stakedMint)
	if err != nil {
		return err
	}
	spew.Dump(pool)

	vault, err := address.Parse(pool.Vault)
	if err != nil {
		return err
	}
	vaultAccount, err := service.GetTokenAccount(ctx, vault)
	if err != nil {
		return err
	}
	spew.Dump(vaultAccount)

	poolAddr, err := address.Parse(pool.Address)
	if err != nil {
		return err
	}
	stats, err := service.GetPoolStats(ctx, poolAddr)
	switch {
	case types.IsErrorCode(err, types.NotFound):
		fmt.Println("pool has not been reconciled yet")
	case err != nil:
		return err
	default:
		spew.Dump(stats)
	}

	return nil
}
