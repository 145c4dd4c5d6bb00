package address

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	Size = 32

	MaxSeeds      = 16
	MaxSeedLength = 32
)

var (
	ErrInvalidSeeds   = errors.New("invalid derivation seeds")
	ErrOnCurve        = errors.New("derived address is a valid public key")
	ErrNoViableNonce  = errors.New("unable to find a viable nonce")
	ErrInvalidAddress = errors.New("invalid address")
)

// Address identifies a record, token account, mint or caller.
// Caller addresses are x-only public keys, derived addresses are never on the curve.
type Address [Size]byte

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	var addr Address
	if s == "" {
		return addr, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	decoded := base58.Decode(s)
	if len(decoded) != Size {
		return addr, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, s, len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

// FromPublicKey returns the caller address of a key holder.
func FromPublicKey(pub *btcec.PublicKey) Address {
	var addr Address
	copy(addr[:], schnorr.SerializePubKey(pub))
	return addr
}

// IsOnCurve reports whether b is a valid x-only public key, i.e. an address
// that somebody could hold a private key for.
func IsOnCurve(b []byte) bool {
	_, err := schnorr.ParsePubKey(b)
	return err == nil
}

// CreateWithNonce computes the address for the given seeds and nonce. It fails
// with ErrOnCurve when the result could be controlled by a private key.
func CreateWithNonce(namespace string, nonce uint8, seeds ...[]byte) (Address, error) {
	if err := validateSeeds(seeds); err != nil {
		return Address{}, err
	}

	input := make([][]byte, 0, len(seeds)+1)
	input = append(input, seeds...)
	input = append(input, []byte{nonce})

	hash := chainhash.TaggedHash([]byte(namespace), input...)
	if IsOnCurve(hash[:]) {
		return Address{}, ErrOnCurve
	}

	return Address(*hash), nil
}

// Derive searches nonces from 255 downwards and returns the first keyless
// address for the seeds together with the nonce that produced it.
func Derive(namespace string, seeds ...[]byte) (Address, uint8, error) {
	for nonce := 255; nonce >= 0; nonce-- {
		addr, err := CreateWithNonce(namespace, uint8(nonce), seeds...)
		switch {
		case err == nil:
			return addr, uint8(nonce), nil
		case errors.Is(err, ErrOnCurve):
			continue
		default:
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableNonce
}

// Verify reports whether addr is the address derived from seeds with nonce.
func Verify(namespace string, addr Address, nonce uint8, seeds ...[]byte) bool {
	expected, err := CreateWithNonce(namespace, nonce, seeds...)
	if err != nil {
		return false
	}
	return expected == addr
}

func validateSeeds(seeds [][]byte) error {
	if len(seeds) > MaxSeeds {
		return fmt.Errorf("%w: %d seeds exceed limit of %d", ErrInvalidSeeds, len(seeds), MaxSeeds)
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return fmt.Errorf("%w: seed %d is %d bytes, limit %d", ErrInvalidSeeds, i, len(seed), MaxSeedLength)
		}
	}
	return nil
}
