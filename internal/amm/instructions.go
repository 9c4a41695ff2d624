// internal/amm/instructions.go
package amm

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rwadex/dexclient/internal/chain/programs/token2022"
)

// anchorDiscriminator returns the 8-byte instruction selector for a global
// anchor method.
func anchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

func encodeAnchorInstruction(name string, args interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(anchorDiscriminator(name))
	if args != nil {
		if err := ag_binary.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, fmt.Errorf("failed to encode %s args: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// PoolFeeParameters mirrors the program's fee config argument.
type PoolFeeParameters struct {
	TradeFeeNumerator  uint64
	ProtocolFeePercent uint8
	PartnerFeePercent  uint8
	ReferralFeePercent uint8
}

type createConfigArgs struct {
	Index          uint64
	PoolFees       PoolFeeParameters
	SqrtMinPrice   ag_binary.Uint128
	SqrtMaxPrice   ag_binary.Uint128
	ActivationType uint8
	CollectFeeMode uint8
}

type initializePoolArgs struct {
	Liquidity       ag_binary.Uint128
	SqrtPrice       ag_binary.Uint128
	ActivationPoint *uint64 `bin:"optional"`
}

type liquidityArgs struct {
	LiquidityDelta        ag_binary.Uint128
	TokenAAmountThreshold uint64
	TokenBAmountThreshold uint64
}

type swapArgs struct {
	AmountIn         uint64
	MinimumAmountOut uint64
}

// CreateConfigInstruction builds the admin call that creates a fee config at
// the given index.
func (s *Service) CreateConfigInstruction(index uint64, fees PoolFeeParameters, sqrtMinPrice, sqrtMaxPrice ag_binary.Uint128, admin solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeAnchorInstruction("create_config", createConfigArgs{
		Index:        index,
		PoolFees:     fees,
		SqrtMinPrice: sqrtMinPrice,
		SqrtMaxPrice: sqrtMaxPrice,
	})
	if err != nil {
		return nil, err
	}
	config := DeriveConfigAddress(s.programID, index)
	return solana.NewInstruction(s.programID, []*solana.AccountMeta{
		{PublicKey: config, IsSigner: false, IsWritable: true},
		{PublicKey: admin, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: s.eventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: s.programID, IsSigner: false, IsWritable: false},
	}, data), nil
}

// CreateTokenBadgeInstruction acknowledges a Token-2022 mint with the AMM.
func (s *Service) CreateTokenBadgeInstruction(tokenMint, admin solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeAnchorInstruction("create_token_badge", nil)
	if err != nil {
		return nil, err
	}
	badge := DeriveTokenBadgeAddress(s.programID, tokenMint)
	return solana.NewInstruction(s.programID, []*solana.AccountMeta{
		{PublicKey: badge, IsSigner: false, IsWritable: true},
		{PublicKey: tokenMint, IsSigner: false, IsWritable: false},
		{PublicKey: admin, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: s.eventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: s.programID, IsSigner: false, IsWritable: false},
	}, data), nil
}

type initializePoolAccounts struct {
	Creator            solana.PublicKey
	PositionNftMint    solana.PublicKey
	PositionNftAccount solana.PublicKey
	Payer              solana.PublicKey
	Config             solana.PublicKey
	Pool               solana.PublicKey
	Position           solana.PublicKey
	TokenAMint         solana.PublicKey
	TokenBMint         solana.PublicKey
	TokenAVault        solana.PublicKey
	TokenBVault        solana.PublicKey
	PayerTokenA        solana.PublicKey
	PayerTokenB        solana.PublicKey
	TokenAProgram      solana.PublicKey
	TokenBProgram      solana.PublicKey
}

// initializePoolInstruction builds initialize_pool. Remaining accounts carry
// the token badge PDAs followed by whatever the hook resolver produced; the
// program resolves them positionally after the fixed list.
func (s *Service) initializePoolInstruction(
	accounts initializePoolAccounts,
	liquidity, sqrtPrice ag_binary.Uint128,
	activationPoint *uint64,
	remainingAccounts []*solana.AccountMeta,
) (solana.Instruction, error) {
	data, err := encodeAnchorInstruction("initialize_pool", initializePoolArgs{
		Liquidity:       liquidity,
		SqrtPrice:       sqrtPrice,
		ActivationPoint: activationPoint,
	})
	if err != nil {
		return nil, err
	}
	metas := []*solana.AccountMeta{
		{PublicKey: accounts.Creator, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.PositionNftMint, IsSigner: true, IsWritable: true},
		{PublicKey: accounts.PositionNftAccount, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Payer, IsSigner: true, IsWritable: true},
		{PublicKey: accounts.Config, IsSigner: false, IsWritable: false},
		{PublicKey: s.poolAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Pool, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Position, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenAMint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.TokenBMint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.TokenAVault, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenBVault, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.PayerTokenA, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.PayerTokenB, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenAProgram, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.TokenBProgram, IsSigner: false, IsWritable: false},
		{PublicKey: token2022.ProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: s.eventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: s.programID, IsSigner: false, IsWritable: false},
	}
	metas = append(metas, remainingAccounts...)
	return solana.NewInstruction(s.programID, metas, data), nil
}

// createPositionInstruction opens a position keyed by a fresh NFT mint.
func (s *Service) createPositionInstruction(owner, payer, pool, positionNftMint solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeAnchorInstruction("create_position", nil)
	if err != nil {
		return nil, err
	}
	position := DerivePositionAddress(s.programID, positionNftMint)
	positionNftAccount := DerivePositionNftAccount(s.programID, positionNftMint)
	return solana.NewInstruction(s.programID, []*solana.AccountMeta{
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: positionNftMint, IsSigner: true, IsWritable: true},
		{PublicKey: positionNftAccount, IsSigner: false, IsWritable: true},
		{PublicKey: pool, IsSigner: false, IsWritable: true},
		{PublicKey: position, IsSigner: false, IsWritable: true},
		{PublicKey: s.poolAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: token2022.ProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: s.eventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: s.programID, IsSigner: false, IsWritable: false},
	}, data), nil
}

type liquidityAccounts struct {
	Pool               solana.PublicKey
	Position           solana.PublicKey
	TokenAAccount      solana.PublicKey
	TokenBAccount      solana.PublicKey
	TokenAVault        solana.PublicKey
	TokenBVault        solana.PublicKey
	TokenAMint         solana.PublicKey
	TokenBMint         solana.PublicKey
	PositionNftAccount solana.PublicKey
	Owner              solana.PublicKey
	TokenAProgram      solana.PublicKey
	TokenBProgram      solana.PublicKey
}

func (s *Service) liquidityInstruction(name string, accounts liquidityAccounts, args liquidityArgs, remainingAccounts []*solana.AccountMeta) (solana.Instruction, error) {
	data, err := encodeAnchorInstruction(name, args)
	if err != nil {
		return nil, err
	}
	metas := []*solana.AccountMeta{
		{PublicKey: accounts.Pool, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Position, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenAAccount, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenBAccount, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenAVault, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenBVault, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenAMint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.TokenBMint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.PositionNftAccount, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Owner, IsSigner: true, IsWritable: false},
		{PublicKey: accounts.TokenAProgram, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.TokenBProgram, IsSigner: false, IsWritable: false},
		{PublicKey: s.eventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: s.programID, IsSigner: false, IsWritable: false},
	}
	metas = append(metas, remainingAccounts...)
	return solana.NewInstruction(s.programID, metas, data), nil
}

type swapAccounts struct {
	Pool               solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	TokenAVault        solana.PublicKey
	TokenBVault        solana.PublicKey
	TokenAMint         solana.PublicKey
	TokenBMint         solana.PublicKey
	Payer              solana.PublicKey

	TokenAProgram solana.PublicKey
	TokenBProgram solana.PublicKey

	// Optional accounts. Nil follows the anchor convention of passing the
	// program id in the slot.
	ReferralTokenAccount *solana.PublicKey
	HookRegistry         *solana.PublicKey
}

func (s *Service) swapInstruction(accounts swapAccounts, amountIn, minimumAmountOut uint64, remainingAccounts []*solana.AccountMeta) (solana.Instruction, error) {
	data, err := encodeAnchorInstruction("swap", swapArgs{
		AmountIn:         amountIn,
		MinimumAmountOut: minimumAmountOut,
	})
	if err != nil {
		return nil, err
	}
	metas := []*solana.AccountMeta{
		{PublicKey: s.poolAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Pool, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.InputTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.OutputTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenAVault, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenBVault, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.TokenAMint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.TokenBMint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Payer, IsSigner: true, IsWritable: false},
		{PublicKey: accounts.TokenAProgram, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.TokenBProgram, IsSigner: false, IsWritable: false},
		{PublicKey: s.optionalAccount(accounts.ReferralTokenAccount), IsSigner: false, IsWritable: accounts.ReferralTokenAccount != nil},
		{PublicKey: s.optionalAccount(accounts.HookRegistry), IsSigner: false, IsWritable: false},
		{PublicKey: s.eventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: s.programID, IsSigner: false, IsWritable: false},
	}
	metas = append(metas, remainingAccounts...)
	return solana.NewInstruction(s.programID, metas, data), nil
}

func (s *Service) optionalAccount(key *solana.PublicKey) solana.PublicKey {
	if key == nil {
		return s.programID
	}
	return *key
}
