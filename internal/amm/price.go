// internal/amm/price.go
package amm

import (
	"fmt"
	"math/big"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/shopspring/decimal"
)

// Q64.64 scale factor.
var two64 = new(big.Float).SetPrec(256).SetInt(new(big.Int).Lsh(big.NewInt(1), 64))

// BigIntToUint128 converts a non-negative big.Int that fits in 128 bits.
func BigIntToUint128(v *big.Int) (ag_binary.Uint128, error) {
	if v.Sign() < 0 {
		return ag_binary.Uint128{}, fmt.Errorf("value %s is negative", v)
	}
	if v.BitLen() > 128 {
		return ag_binary.Uint128{}, fmt.Errorf("value %s overflows u128", v)
	}
	mask := new(big.Int).SetUint64(^uint64(0))
	lo := new(big.Int).And(v, mask).Uint64()
	hi := new(big.Int).Rsh(v, 64).Uint64()
	return ag_binary.Uint128{Lo: lo, Hi: hi}, nil
}

// PriceToSqrtPrice converts a human price (token B per token A) into the
// pool's Q64.64 sqrt price, adjusting for mint decimals.
func PriceToSqrtPrice(price decimal.Decimal, tokenADecimals, tokenBDecimals uint8) (ag_binary.Uint128, error) {
	if !price.IsPositive() {
		return ag_binary.Uint128{}, fmt.Errorf("price must be positive, got %s", price)
	}
	adjusted := price.Mul(decimal.New(1, int32(tokenBDecimals)-int32(tokenADecimals)))
	f, ok := new(big.Float).SetPrec(256).SetString(adjusted.String())
	if !ok {
		return ag_binary.Uint128{}, fmt.Errorf("failed to parse adjusted price %s", adjusted)
	}
	sqrt := new(big.Float).SetPrec(256).Sqrt(f)
	scaled := new(big.Float).SetPrec(256).Mul(sqrt, two64)
	result, _ := scaled.Int(nil)
	return BigIntToUint128(result)
}

// SqrtPriceToPrice is the inverse conversion, for display and slippage math.
func SqrtPriceToPrice(sqrtPrice ag_binary.Uint128, tokenADecimals, tokenBDecimals uint8) (decimal.Decimal, error) {
	f := new(big.Float).SetPrec(256).SetInt(sqrtPrice.BigInt())
	ratio := new(big.Float).SetPrec(256).Quo(f, two64)
	squared := new(big.Float).SetPrec(256).Mul(ratio, ratio)
	raw, err := decimal.NewFromString(squared.Text('f', 24))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to convert sqrt price: %w", err)
	}
	return raw.Mul(decimal.New(1, int32(tokenADecimals)-int32(tokenBDecimals))), nil
}
