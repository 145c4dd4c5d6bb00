package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/base58"
)

var (
	ErrMissingPayload   = errors.New("signed request has no payload")
	ErrInvalidSigner    = errors.New("invalid signer")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrStaleRequest     = errors.New("request timestamp is outside the accepted window")
)

// SignedRequest is the envelope of every state-changing request. Signature is
// a schnorr signature of sha256(Payload) by the x-only key Signer, both base58.
type SignedRequest struct {
	Payload   json.RawMessage `json:"payload"`
	Signer    string          `json:"signer"`
	Signature string          `json:"signature"`
}

// Stamp is embedded in payloads to bind a signature to a point in time.
type Stamp struct {
	Timestamp int64 `json:"timestamp"`
}

// Sign marshals payload and signs it with priv.
func Sign(priv *btcec.PrivateKey, payload any) (*SignedRequest, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	hash := sha256.Sum256(raw)
	sig, err := schnorr.Sign(priv, hash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	return &SignedRequest{
		Payload:   raw,
		Signer:    address.FromPublicKey(priv.PubKey()).String(),
		Signature: base58.Encode(sig.Serialize()),
	}, nil
}

// Verify checks the signature and returns the signer as caller identity.
func (r *SignedRequest) Verify() (address.Address, error) {
	if len(r.Payload) == 0 {
		return address.Address{}, ErrMissingPayload
	}

	signer, err := address.Parse(r.Signer)
	if err != nil {
		return address.Address{}, fmt.Errorf("%w: %w", ErrInvalidSigner, err)
	}
	pubKey, err := schnorr.ParsePubKey(signer.Bytes())
	if err != nil {
		return address.Address{}, fmt.Errorf("%w: %w", ErrInvalidSigner, err)
	}

	sig, err := schnorr.ParseSignature(base58.Decode(r.Signature))
	if err != nil {
		return address.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	hash := sha256.Sum256(r.Payload)
	if !sig.Verify(hash[:], pubKey) {
		return address.Address{}, ErrInvalidSignature
	}
	return signer, nil
}

// Digest identifies the signed content of r. Two envelopes with the same
// signer and payload bytes share a digest.
func (r *SignedRequest) Digest() string {
	h := sha256.New()
	h.Write([]byte(r.Signer))
	h.Write([]byte{0})
	h.Write(r.Payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Open verifies the request, decodes its payload into v and rejects payloads
// whose timestamp is more than maxSkew away from now.
func (r *SignedRequest) Open(v any, now time.Time, maxSkew time.Duration) (address.Address, error) {
	signer, err := r.Verify()
	if err != nil {
		return address.Address{}, err
	}

	var stamp Stamp
	if err := json.Unmarshal(r.Payload, &stamp); err != nil {
		return address.Address{}, fmt.Errorf("invalid payload: %w", err)
	}
	if err := CheckFreshness(stamp.Timestamp, now, maxSkew); err != nil {
		return address.Address{}, err
	}

	if err := json.Unmarshal(r.Payload, v); err != nil {
		return address.Address{}, fmt.Errorf("invalid payload: %w", err)
	}
	return signer, nil
}

func CheckFreshness(timestamp int64, now time.Time, maxSkew time.Duration) error {
	skew := now.Sub(time.Unix(timestamp, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return fmt.Errorf("%w: %s", ErrStaleRequest, skew)
	}
	return nil
}
