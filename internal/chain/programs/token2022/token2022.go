// internal/chain/programs/token2022/token2022.go
package token2022

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

var (
	// ProgramID is the Token-2022 (token extensions) program.
	ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	// ClassicTokenProgramID is the original SPL token program.
	ClassicTokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	// WSOLMint is the wrapped-SOL mint, referenced by the hook program's
	// ExtraAccountMetaList initializer.
	WSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

// Single-byte instruction tags of the token program; extension instructions
// carry a second sub-tag byte.
const (
	ixMintTo                 uint8 = 7
	ixCloseAccount           uint8 = 9
	ixInitializeMint2        uint8 = 20
	ixTransferFeeExtension   uint8 = 26
	ixInterestBearingMintExt uint8 = 33
	ixTransferHookExtension  uint8 = 36
	ixMetadataPointerExt     uint8 = 39
	ixGroupMemberPointerExt  uint8 = 41
)

// DeriveATA derives the associated token account of owner for mint under the
// given token program. Token-2022 mints derive differently from classic SPL
// mints, so the token program must match the mint's owner.
func DeriveATA(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindProgramAddress(
		[][]byte{owner.Bytes(), tokenProgram.Bytes(), mint.Bytes()},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	return ata, err
}

// CreateATAIdempotentInstruction creates the associated token account if it
// does not already exist; a no-op on-chain when it does.
func CreateATAIdempotentInstruction(payer, owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, solana.Instruction, error) {
	ata, err := DeriveATA(owner, mint, tokenProgram)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	keys := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: tokenProgram, IsSigner: false, IsWritable: false},
	}
	// Tag 1 selects CreateIdempotent on the ATA program.
	return ata, solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, keys, []byte{1}), nil
}

// InitializeMint2Instruction writes the mint's base fields. Must come after
// every extension initialization on the account.
func InitializeMint2Instruction(mint solana.PublicKey, decimals uint8, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.WriteByte(ixInitializeMint2)
	buf.WriteByte(decimals)
	buf.Write(mintAuthority.Bytes())
	writeCOptionKey(buf, freezeAuthority)
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
	}, buf.Bytes())
}

// MintToInstruction mints amount base units to a token account.
func MintToInstruction(mint, destination, authority solana.PublicKey, amount uint64) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.WriteByte(ixMintTo)
	_ = binary.Write(buf, binary.LittleEndian, amount)
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: authority, IsSigner: true, IsWritable: false},
	}, buf.Bytes())
}

// CloseAccountInstruction closes a token account, sending its lamports to
// destination. Mint accounts cannot be closed; only (empty) token accounts.
func CloseAccountInstruction(account, destination, owner solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{
		{PublicKey: account, IsSigner: false, IsWritable: true},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}, []byte{ixCloseAccount})
}

// InitializeMetadataPointerInstruction points the mint's metadata at an
// address (conventionally the mint itself). Must precede InitializeMint2.
func InitializeMetadataPointerInstruction(mint, authority, metadataAddress solana.PublicKey) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.WriteByte(ixMetadataPointerExt)
	buf.WriteByte(0) // Initialize
	buf.Write(authority.Bytes())
	buf.Write(metadataAddress.Bytes())
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
	}, buf.Bytes())
}

// InitializeTransferHookInstruction registers the transfer-hook program on
// the mint. Must precede InitializeMint2.
func InitializeTransferHookInstruction(mint, authority, hookProgramID solana.PublicKey) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.WriteByte(ixTransferHookExtension)
	buf.WriteByte(0) // Initialize
	buf.Write(authority.Bytes())
	buf.Write(hookProgramID.Bytes())
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
	}, buf.Bytes())
}

// InitializeGroupMemberPointerInstruction points the mint at its group
// membership record. Must precede InitializeMint2.
func InitializeGroupMemberPointerInstruction(mint, authority, memberAddress solana.PublicKey) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.WriteByte(ixGroupMemberPointerExt)
	buf.WriteByte(0) // Initialize
	buf.Write(authority.Bytes())
	buf.Write(memberAddress.Bytes())
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
	}, buf.Bytes())
}

// InitializeTransferFeeConfigInstruction writes the transfer fee schedule.
func InitializeTransferFeeConfigInstruction(
	mint solana.PublicKey,
	configAuthority, withdrawAuthority *solana.PublicKey,
	basisPoints uint16,
	maximumFee uint64,
) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.WriteByte(ixTransferFeeExtension)
	buf.WriteByte(0) // InitializeTransferFeeConfig
	writeCOptionKey(buf, configAuthority)
	writeCOptionKey(buf, withdrawAuthority)
	_ = binary.Write(buf, binary.LittleEndian, basisPoints)
	_ = binary.Write(buf, binary.LittleEndian, maximumFee)
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
	}, buf.Bytes())
}

// InitializeInterestBearingMintInstruction writes the interest rate config.
// Rate is in basis points and may be negative.
func InitializeInterestBearingMintInstruction(mint, rateAuthority solana.PublicKey, rate int16) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.WriteByte(ixInterestBearingMintExt)
	buf.WriteByte(0) // Initialize
	buf.Write(rateAuthority.Bytes())
	_ = binary.Write(buf, binary.LittleEndian, rate)
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
	}, buf.Bytes())
}

// writeCOptionKey encodes a COption<Pubkey> the way the token program packs
// it: a single tag byte followed by the key when present.
func writeCOptionKey(buf *bytes.Buffer, key *solana.PublicKey) {
	if key == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	buf.Write(key.Bytes())
}
