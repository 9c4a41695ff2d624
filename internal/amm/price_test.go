// internal/amm/price_test.go
package amm

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPriceToSqrtPriceUnity(t *testing.T) {
	// price 1 with equal decimals is exactly 2^64 in Q64.64.
	sqrt, err := PriceToSqrtPrice(decimal.NewFromInt(1), 9, 9)
	require.NoError(t, err)
	require.Equal(t, uint64(0), sqrt.Lo)
	require.Equal(t, uint64(1), sqrt.Hi)
}

func TestPriceToSqrtPricePerfectSquare(t *testing.T) {
	sqrt, err := PriceToSqrtPrice(decimal.NewFromInt(4), 6, 6)
	require.NoError(t, err)
	require.Equal(t, uint64(2), sqrt.Hi)
	require.Equal(t, uint64(0), sqrt.Lo)
}

func TestPriceToSqrtPriceRejectsNonPositive(t *testing.T) {
	_, err := PriceToSqrtPrice(decimal.Zero, 6, 6)
	require.Error(t, err)

	_, err = PriceToSqrtPrice(decimal.NewFromInt(-2), 6, 6)
	require.Error(t, err)
}

func TestSqrtPriceRoundTrip(t *testing.T) {
	price := decimal.RequireFromString("1.5")
	sqrt, err := PriceToSqrtPrice(price, 6, 6)
	require.NoError(t, err)

	back, err := SqrtPriceToPrice(sqrt, 6, 6)
	require.NoError(t, err)

	diff := back.Sub(price).Abs()
	require.True(t, diff.LessThan(decimal.RequireFromString("0.000001")),
		"round trip drifted by %s", diff)
}

func TestBigIntToUint128Bounds(t *testing.T) {
	_, err := BigIntToUint128(big.NewInt(-1))
	require.Error(t, err)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 129)
	_, err = BigIntToUint128(tooBig)
	require.Error(t, err)

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	v, err := BigIntToUint128(max)
	require.NoError(t, err)
	require.Equal(t, ^uint64(0), v.Lo)
	require.Equal(t, ^uint64(0), v.Hi)
}
