// internal/amm/pda_test.go
package amm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

var testProgramID = solana.MustPublicKeyFromBase58("3zFqfiRPEoshgaZY7qCcSk6mihDhgnGodBDgqP92stci")

func TestDerivationDeterminism(t *testing.T) {
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	require.Equal(t, DerivePoolAuthority(testProgramID), DerivePoolAuthority(testProgramID))
	require.Equal(t, DeriveConfigAddress(testProgramID, 42), DeriveConfigAddress(testProgramID, 42))
	require.Equal(t, DeriveTokenBadgeAddress(testProgramID, mint), DeriveTokenBadgeAddress(testProgramID, mint))
	require.Equal(t, DeriveEventAuthority(testProgramID), DeriveEventAuthority(testProgramID))
	require.Equal(t, DeriveHookRegistryAddress(testProgramID), DeriveHookRegistryAddress(testProgramID))
}

func TestConfigAddressVariesByIndex(t *testing.T) {
	require.NotEqual(t, DeriveConfigAddress(testProgramID, 1), DeriveConfigAddress(testProgramID, 2))
}

func TestSortMintKeysDescending(t *testing.T) {
	a := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	b := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	maxKey, minKey := SortMintKeys(a, b)
	maxKey2, minKey2 := SortMintKeys(b, a)
	require.Equal(t, maxKey, maxKey2)
	require.Equal(t, minKey, minKey2)
	require.NotEqual(t, maxKey, minKey)
}

func TestPoolAddressCanonicalOrdering(t *testing.T) {
	config := DeriveConfigAddress(testProgramID, 0)
	a := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	b := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	require.Equal(t,
		DerivePoolAddress(testProgramID, config, a, b),
		DerivePoolAddress(testProgramID, config, b, a))
}

func TestPositionAddressesFollowNftMint(t *testing.T) {
	nft, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	position := DerivePositionAddress(testProgramID, nft.PublicKey())
	nftAccount := DerivePositionNftAccount(testProgramID, nft.PublicKey())
	require.NotEqual(t, position, nftAccount)
	require.Equal(t, position, DerivePositionAddress(testProgramID, nft.PublicKey()))
}
