package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAmountBSON(t *testing.T) {
	t.Run("full uint64 range survives encoding", func(t *testing.T) {
		account := TokenAccountDocument{Address: "a", Amount: Amount(math.MaxUint64)}

		raw, err := bson.Marshal(account)
		require.NoError(t, err)

		var decoded TokenAccountDocument
		require.NoError(t, bson.Unmarshal(raw, &decoded))
		assert.Equal(t, uint64(math.MaxUint64), decoded.Amount.Uint64())
	})

	t.Run("integer encodings are accepted", func(t *testing.T) {
		raw, err := bson.Marshal(bson.M{"_id": "a", "amount": int64(42)})
		require.NoError(t, err)

		var decoded TokenAccountDocument
		require.NoError(t, bson.Unmarshal(raw, &decoded))
		assert.Equal(t, uint64(42), decoded.Amount.Uint64())
	})

	t.Run("negative amounts are rejected", func(t *testing.T) {
		raw, err := bson.Marshal(bson.M{"_id": "a", "amount": int64(-1)})
		require.NoError(t, err)

		var decoded TokenAccountDocument
		require.Error(t, bson.Unmarshal(raw, &decoded))
	})
}

func TestDecimalToUint(t *testing.T) {
	cases := []struct {
		input    string
		expected string
		fail     bool
	}{
		{input: "0", expected: "0"},
		{input: "18446744073709551615", expected: "18446744073709551615"},
		{input: "36893488147419103230", expected: "36893488147419103230"},
		{input: "1.5E+3", expected: "1500"},
		{input: "1500E-2", expected: "15"},
		{input: "1.5", fail: true},
		{input: "-1", fail: true},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			d, err := primitive.ParseDecimal128(tc.input)
			require.NoError(t, err)

			v, err := DecimalToUint(d)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, v.String())
		})
	}
}
