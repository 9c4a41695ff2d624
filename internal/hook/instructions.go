// internal/hook/instructions.go
package hook

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rwadex/dexclient/internal/chain/programs/token2022"
)

// Program builds instructions against the transfer-hook program.
type Program struct {
	ID solana.PublicKey
}

func anchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

func encodeInstruction(name string, args interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(anchorDiscriminator(name))
	if args != nil {
		if err := ag_binary.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, fmt.Errorf("failed to encode %s args: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// InitializeExtraAccountMetaListInstruction creates the per-mint record that
// tells the token program which extra accounts hooked transfers need.
func (p *Program) InitializeExtraAccountMetaListInstruction(payer, mint solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeInstruction("initialize_extra_account_meta_list", nil)
	if err != nil {
		return nil, err
	}
	metaList := DeriveExtraAccountMetasAddress(p.ID, mint)
	return solana.NewInstruction(p.ID, []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: metaList, IsSigner: false, IsWritable: true},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: token2022.WSOLMint, IsSigner: false, IsWritable: false},
		{PublicKey: token2022.ProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}, data), nil
}

type initializeUserKycArgs struct {
	KycLevel uint8
	Country  string
	State    string
	City     string
}

// InitializeUserKycInstruction creates a compliance record for a wallet at
// the given tier.
func (p *Program) InitializeUserKycInstruction(payer, user solana.PublicKey, level uint8, country, state, city string) (solana.Instruction, error) {
	data, err := encodeInstruction("initialize_user_kyc", initializeUserKycArgs{
		KycLevel: level,
		Country:  country,
		State:    state,
		City:     city,
	})
	if err != nil {
		return nil, err
	}
	userKyc := DeriveUserKycAddress(p.ID, user)
	return solana.NewInstruction(p.ID, []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: user, IsSigner: false, IsWritable: false},
		{PublicKey: userKyc, IsSigner: false, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}, data), nil
}

// UpdateUserKycParams carries the partial update; nil fields are untouched.
type UpdateUserKycParams struct {
	NewKycLevel  *uint8  `bin:"optional"`
	NewRiskScore *uint8  `bin:"optional"`
	FlagsToSet   *uint8  `bin:"optional"`
	FlagsToClear *uint8  `bin:"optional"`
	NewCountry   *string `bin:"optional"`
	NewState     *string `bin:"optional"`
	NewCity      *string `bin:"optional"`
}

// UpdateUserKycInstruction mutates an existing compliance record.
func (p *Program) UpdateUserKycInstruction(authority, user solana.PublicKey, params UpdateUserKycParams) (solana.Instruction, error) {
	data, err := encodeInstruction("update_user_kyc", params)
	if err != nil {
		return nil, err
	}
	userKyc := DeriveUserKycAddress(p.ID, user)
	return solana.NewInstruction(p.ID, []*solana.AccountMeta{
		{PublicKey: authority, IsSigner: true, IsWritable: false},
		{PublicKey: user, IsSigner: false, IsWritable: false},
		{PublicKey: userKyc, IsSigner: false, IsWritable: true},
	}, data), nil
}
