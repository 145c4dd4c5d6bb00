package model

const (
	MintCollection         = "mints"
	TokenAccountCollection = "token_accounts"
)

type MintDocument struct {
	Address   string `bson:"_id"`
	Authority string `bson:"authority"`
	Decimals  uint8  `bson:"decimals"`
	Supply    Amount `bson:"supply"`
}

type TokenAccountDocument struct {
	Address string `bson:"_id"`
	Mint    string `bson:"mint"`
	Owner   string `bson:"owner"`
	Amount  Amount `bson:"amount"`
}
