package api

import (
	"github.com/babylonlabs-io/staking-ledger/internal/auth"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/services"
)

type CreateMintPayload struct {
	auth.Stamp
	Seed string `json:"seed"`
	// Authority defaults to the signer.
	Authority string `json:"authority,omitempty"`
	Decimals  uint8  `json:"decimals"`
}

type IssueTokensPayload struct {
	auth.Stamp
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type CreateAccountPayload struct {
	auth.Stamp
	Mint string `json:"mint"`
}

type InitializePoolPayload struct {
	auth.Stamp
	StakedMint string `json:"staked_mint"`
	RewardMint string `json:"reward_mint"`
}

type InitializeStakeEntryPayload struct {
	auth.Stamp
	RewardDestination string `json:"reward_destination"`
}

type DepositPayload struct {
	auth.Stamp
	StakedMint string `json:"staked_mint"`
	StakeEntry string `json:"stake_entry"`
	Source     string `json:"source"`
	Amount     uint64 `json:"amount"`
}

type WithdrawPayload struct {
	auth.Stamp
	StakedMint        string `json:"staked_mint"`
	StakeEntry        string `json:"stake_entry"`
	Destination       string `json:"destination"`
	RewardMint        string `json:"reward_mint"`
	RewardDestination string `json:"reward_destination"`
}

type AuthorityView struct {
	Address string `json:"address"`
	Nonce   uint8  `json:"nonce"`
}

type MintView struct {
	Address   string `json:"address"`
	Authority string `json:"authority"`
	Decimals  uint8  `json:"decimals"`
	Supply    uint64 `json:"supply"`
}

type TokenAccountView struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  uint64 `json:"amount"`
}

type PoolView struct {
	Address        string `json:"address"`
	StakedMint     string `json:"staked_mint"`
	RewardMint     string `json:"reward_mint"`
	Vault          string `json:"vault"`
	VaultAuthority string `json:"vault_authority"`
	TotalStaked    uint64 `json:"total_staked"`
	CreatedAt      int64  `json:"created_at"`
}

type StakeEntryView struct {
	Address           string `json:"address"`
	Owner             string `json:"owner"`
	Pool              string `json:"pool"`
	StakedMint        string `json:"staked_mint"`
	RewardDestination string `json:"reward_destination"`
	Balance           uint64 `json:"balance"`
	LastActivityTime  int64  `json:"last_activity_time"`
}

type PoolStatsView struct {
	Pool            string `json:"pool"`
	StakedMint      string `json:"staked_mint"`
	EntryCount      uint64 `json:"entry_count"`
	TotalStaked     uint64 `json:"total_staked"`
	EntryBalanceSum string `json:"entry_balance_sum"`
	VaultBalance    uint64 `json:"vault_balance"`
	Consistent      bool   `json:"consistent"`
	LastUpdated     int64  `json:"last_updated"`
}

type OperationView struct {
	Pool   PoolView       `json:"pool"`
	Entry  StakeEntryView `json:"entry"`
	Amount uint64         `json:"amount"`
	Reward uint64         `json:"reward"`
}

func mintView(doc *model.MintDocument) MintView {
	return MintView{
		Address:   doc.Address,
		Authority: doc.Authority,
		Decimals:  doc.Decimals,
		Supply:    doc.Supply.Uint64(),
	}
}

func tokenAccountView(doc *model.TokenAccountDocument) TokenAccountView {
	return TokenAccountView{
		Address: doc.Address,
		Mint:    doc.Mint,
		Owner:   doc.Owner,
		Amount:  doc.Amount.Uint64(),
	}
}

func poolView(doc *model.PoolDocument) PoolView {
	return PoolView{
		Address:        doc.Address,
		StakedMint:     doc.StakedMint,
		RewardMint:     doc.RewardMint,
		Vault:          doc.Vault,
		VaultAuthority: doc.VaultAuthority,
		TotalStaked:    doc.TotalStaked.Uint64(),
		CreatedAt:      doc.CreatedAt,
	}
}

func stakeEntryView(doc *model.StakeEntryDocument) StakeEntryView {
	return StakeEntryView{
		Address:           doc.Address,
		Owner:             doc.Owner,
		Pool:              doc.Pool,
		StakedMint:        doc.StakedMint,
		RewardDestination: doc.RewardDestination,
		Balance:           doc.Balance.Uint64(),
		LastActivityTime:  doc.LastActivityTime,
	}
}

func poolStatsView(doc *model.PoolStatsDocument) PoolStatsView {
	return PoolStatsView{
		Pool:            doc.Pool,
		StakedMint:      doc.StakedMint,
		EntryCount:      doc.EntryCount,
		TotalStaked:     doc.TotalStaked.Uint64(),
		EntryBalanceSum: doc.EntryBalanceSum,
		VaultBalance:    doc.VaultBalance.Uint64(),
		Consistent:      doc.Consistent,
		LastUpdated:     doc.LastUpdated,
	}
}

func operationView(result *services.OperationResult) OperationView {
	return OperationView{
		Pool:   poolView(result.Pool),
		Entry:  stakeEntryView(result.Entry),
		Amount: result.Amount,
		Reward: result.Reward,
	}
}
