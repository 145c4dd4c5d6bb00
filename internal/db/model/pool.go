package model

const PoolCollection = "pools"

// PoolDocument is the aggregate record of one staked token type.
type PoolDocument struct {
	Address        string `bson:"_id"`
	Nonce          uint8  `bson:"nonce"`
	TotalStaked    Amount `bson:"total_staked"`
	StakedMint     string `bson:"staked_mint"`
	RewardMint     string `bson:"reward_mint"`
	Vault          string `bson:"vault"`
	VaultNonce     uint8  `bson:"vault_nonce"`
	VaultAuthority string `bson:"vault_authority"`
	AuthorityNonce uint8  `bson:"authority_nonce"`
	CreatedAt      int64  `bson:"created_at"`
}
