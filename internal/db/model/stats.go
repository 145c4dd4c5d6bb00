package model

const (
	PoolStatsCollection    = "pool_stats"
	OverallStatsCollection = "overall_stats"
	OverallStatsID         = "overall_stats"
)

// PoolStatsDocument is the latest reconciliation result of a pool
type PoolStatsDocument struct {
	Pool            string `bson:"_id"`
	StakedMint      string `bson:"staked_mint"`
	EntryCount      uint64 `bson:"entry_count"`
	TotalStaked     Amount `bson:"total_staked"`
	EntryBalanceSum string `bson:"entry_balance_sum"` // decimal string, may exceed uint64 when inconsistent
	VaultBalance    Amount `bson:"vault_balance"`
	Consistent      bool   `bson:"consistent"`
	LastUpdated     int64  `bson:"last_updated"`
}

// OverallStatsDocument represents the overall staking statistics
type OverallStatsDocument struct {
	ID          string `bson:"_id"`          // Always "overall_stats"
	Tvl         string `bson:"tvl"`          // Sum of total staked across pools, decimal string
	PoolCount   uint64 `bson:"pool_count"`   // Number of initialized pools
	EntryCount  uint64 `bson:"entry_count"`  // Number of stake entries across pools
	LastUpdated int64  `bson:"last_updated"` // Unix timestamp of last update
}
