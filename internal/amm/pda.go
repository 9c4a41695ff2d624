// internal/amm/pda.go
package amm

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// PDA derivation for the AMM program. Seed orderings reproduce the on-chain
// program byte for byte; all functions are pure.

func DerivePoolAuthority(programID solana.PublicKey) solana.PublicKey {
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte("pool_authority"),
		},
		programID,
	)
	return pda
}

func DeriveConfigAddress(programID solana.PublicKey, index uint64) solana.PublicKey {
	indexBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(indexBytes, index)
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte("config"),
			indexBytes,
		},
		programID,
	)
	return pda
}

// SortMintKeys orders two mint keys by their raw bytes, descending. The pool
// seed uses (max, min) so that one canonical pool exists per (config, pair)
// regardless of argument order.
func SortMintKeys(mintA, mintB solana.PublicKey) (maxKey, minKey solana.PublicKey) {
	if bytes.Compare(mintA.Bytes(), mintB.Bytes()) >= 0 {
		return mintA, mintB
	}
	return mintB, mintA
}

func DerivePoolAddress(programID, config, mintA, mintB solana.PublicKey) solana.PublicKey {
	maxKey, minKey := SortMintKeys(mintA, mintB)
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte("pool"),
			config.Bytes(),
			maxKey.Bytes(),
			minKey.Bytes(),
		},
		programID,
	)
	return pda
}

func DerivePositionAddress(programID, positionNftMint solana.PublicKey) solana.PublicKey {
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte("position"),
			positionNftMint.Bytes(),
		},
		programID,
	)
	return pda
}

func DerivePositionNftAccount(programID, positionNftMint solana.PublicKey) solana.PublicKey {
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte("position_nft_account"),
			positionNftMint.Bytes(),
		},
		programID,
	)
	return pda
}

func DeriveTokenVaultAddress(programID, tokenMint, pool solana.PublicKey) solana.PublicKey {
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte("token_vault"),
			tokenMint.Bytes(),
			pool.Bytes(),
		},
		programID,
	)
	return pda
}

func DeriveTokenBadgeAddress(programID, tokenMint solana.PublicKey) solana.PublicKey {
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte("token_badge"),
			tokenMint.Bytes(),
		},
		programID,
	)
	return pda
}

func DeriveHookRegistryAddress(programID solana.PublicKey) solana.PublicKey {
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte("hook-registry"),
		},
		programID,
	)
	return pda
}

func DeriveEventAuthority(programID solana.PublicKey) solana.PublicKey {
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte("__event_authority"),
		},
		programID,
	)
	return pda
}
