package model

const StakeEntryCollection = "stake_entries"

// StakeEntryDocument tracks the staked balance of one owner in one pool.
type StakeEntryDocument struct {
	Address           string `bson:"_id"`
	Nonce             uint8  `bson:"nonce"`
	Owner             string `bson:"owner"`
	Pool              string `bson:"pool"`
	StakedMint        string `bson:"staked_mint"`
	RewardDestination string `bson:"reward_destination"`
	Balance           Amount `bson:"balance"`
	LastActivityTime  int64  `bson:"last_activity_time"`
}
