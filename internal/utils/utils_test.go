package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckedArithmetic(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		sum, ok := CheckedAdd(40, 2)
		assert.True(t, ok)
		assert.Equal(t, uint64(42), sum)

		_, ok = CheckedAdd(math.MaxUint64, 0)
		assert.True(t, ok)

		_, ok = CheckedAdd(math.MaxUint64, 1)
		assert.False(t, ok)
	})
	t.Run("sub", func(t *testing.T) {
		diff, ok := CheckedSub(10, 10)
		assert.True(t, ok)
		assert.Zero(t, diff)

		_, ok = CheckedSub(0, 1)
		assert.False(t, ok)
	})
	t.Run("mul", func(t *testing.T) {
		product, ok := CheckedMul(100, 10)
		assert.True(t, ok)
		assert.Equal(t, uint64(1000), product)

		product, ok = CheckedMul(0, math.MaxUint64)
		assert.True(t, ok)
		assert.Zero(t, product)

		_, ok = CheckedMul(math.MaxUint64/10+1, 10)
		assert.False(t, ok)

		product, ok = CheckedMul(math.MaxUint64/10, 10)
		assert.True(t, ok)
		assert.Equal(t, uint64(math.MaxUint64/10*10), product)
	})
}
