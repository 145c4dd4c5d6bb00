package types

type LedgerEventType string

const (
	EventDeposit    LedgerEventType = "DEPOSIT"
	EventWithdrawal LedgerEventType = "WITHDRAWAL"
)

func (e LedgerEventType) String() string {
	return string(e)
}

// LedgerEvent is published after a deposit or withdrawal commits.
type LedgerEvent struct {
	ID           string          `json:"id"`
	EventType    LedgerEventType `json:"event_type"`
	Pool         string          `json:"pool"`
	StakedMint   string          `json:"staked_mint"`
	RewardMint   string          `json:"reward_mint"`
	StakeEntry   string          `json:"stake_entry"`
	Owner        string          `json:"owner"`
	Amount       uint64          `json:"amount"`
	Reward       uint64          `json:"reward"`
	PoolTotal    uint64          `json:"pool_total"`
	EntryBalance uint64          `json:"entry_balance"`
	Timestamp    int64           `json:"timestamp"`
}
