package model

import "time"

const RequestReceiptCollection = "request_receipts"

// RequestReceiptDocument marks a signed request as processed. Receipts are
// kept at least as long as the request timestamp is accepted.
type RequestReceiptDocument struct {
	Digest     string    `bson:"_id"`
	Signer     string    `bson:"signer"`
	ReceivedAt time.Time `bson:"received_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}
