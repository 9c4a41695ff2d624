// internal/hook/pda.go
package hook

import (
	"github.com/gagliardetto/solana-go"
)

// DeriveUserKycAddress returns the compliance record PDA for a wallet.
func DeriveUserKycAddress(programID, wallet solana.PublicKey) solana.PublicKey {
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte("user-kyc"),
			wallet.Bytes(),
		},
		programID,
	)
	return pda
}

// DeriveExtraAccountMetasAddress returns the per-mint record listing the
// additional accounts every hooked transfer of that mint must carry.
func DeriveExtraAccountMetasAddress(programID, mint solana.PublicKey) solana.PublicKey {
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte("extra-account-metas"),
			mint.Bytes(),
		},
		programID,
	)
	return pda
}
