package model

import (
	"fmt"
	"math/big"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Amount is a token quantity. It is stored as Decimal128 because the bson
// integer types cannot hold the upper half of the uint64 range.
type Amount uint64

func (a Amount) Uint64() uint64 {
	return uint64(a)
}

func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := primitive.ParseDecimal128(strconv.FormatUint(uint64(a), 10))
	if err != nil {
		return 0, nil, err
	}
	return bson.MarshalValue(d)
}

func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bson.TypeDecimal128:
		v, err := DecimalToUint(raw.Decimal128())
		if err != nil {
			return err
		}
		if !v.LTE(sdkmath.NewUint(^uint64(0))) {
			return fmt.Errorf("amount %s overflows uint64", v)
		}
		*a = Amount(v.Uint64())
	case bson.TypeInt64:
		v := raw.Int64()
		if v < 0 {
			return fmt.Errorf("negative amount %d", v)
		}
		*a = Amount(v)
	case bson.TypeInt32:
		v := raw.Int32()
		if v < 0 {
			return fmt.Errorf("negative amount %d", v)
		}
		*a = Amount(v)
	default:
		return fmt.Errorf("cannot decode %s into amount", t)
	}
	return nil
}

// DecimalToUint converts a non-negative integral Decimal128, such as the
// result of a $sum aggregation over amounts, into an unbounded unsigned integer.
func DecimalToUint(d primitive.Decimal128) (sdkmath.Uint, error) {
	coefficient, exp, err := d.BigInt()
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	if coefficient.Sign() < 0 {
		return sdkmath.ZeroUint(), fmt.Errorf("negative decimal %s", d)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(abs(exp))), nil)
	if exp >= 0 {
		coefficient.Mul(coefficient, scale)
	} else {
		quotient, remainder := new(big.Int).QuoRem(coefficient, scale, new(big.Int))
		if remainder.Sign() != 0 {
			return sdkmath.ZeroUint(), fmt.Errorf("decimal %s is not integral", d)
		}
		coefficient = quotient
	}

	return sdkmath.NewUintFromBigInt(coefficient), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
