// internal/amm/state.go
package amm

import (
	"context"
	"crypto/sha256"
	"fmt"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rwadex/dexclient/internal/chain"
	"github.com/rwadex/dexclient/internal/chain/programs/token2022"
)

// Token flag values stored on the pool, selecting the owning token program
// per side.
const (
	TokenFlagClassic   uint8 = 0
	TokenFlagToken2022 uint8 = 1
)

// PoolFeesState is the on-chain fee block of a pool account.
type PoolFeesState struct {
	TradeFeeNumerator  uint64
	ProtocolFeePercent uint8
	PartnerFeePercent  uint8
	ReferralFeePercent uint8
	Padding            [5]uint8
}

// Pool is the decoded pool account. Only the head of the account is modeled;
// trailing reward and padding regions are ignored by the decoder.
type Pool struct {
	PoolFees        PoolFeesState
	TokenAMint      solana.PublicKey
	TokenBMint      solana.PublicKey
	TokenAVault     solana.PublicKey
	TokenBVault     solana.PublicKey
	Partner         solana.PublicKey
	Liquidity       ag_binary.Uint128
	ProtocolAFee    uint64
	ProtocolBFee    uint64
	PartnerAFee     uint64
	PartnerBFee     uint64
	SqrtMinPrice    ag_binary.Uint128
	SqrtMaxPrice    ag_binary.Uint128
	SqrtPrice       ag_binary.Uint128
	ActivationPoint uint64
	ActivationType  uint8
	PoolStatus      uint8
	TokenAFlag      uint8
	TokenBFlag      uint8
	CollectFeeMode  uint8
}

// TokenAProgram returns the token program owning the A-side mint and vault.
func (p *Pool) TokenAProgram() solana.PublicKey {
	return tokenProgramForFlag(p.TokenAFlag)
}

// TokenBProgram returns the token program owning the B-side mint and vault.
func (p *Pool) TokenBProgram() solana.PublicKey {
	return tokenProgramForFlag(p.TokenBFlag)
}

func tokenProgramForFlag(flag uint8) solana.PublicKey {
	if flag == TokenFlagToken2022 {
		return token2022.ProgramID
	}
	return token2022.ClassicTokenProgramID
}

// Position is the decoded position account head.
type Position struct {
	Pool                     solana.PublicKey
	NftMint                  solana.PublicKey
	FeeAPerTokenCheckpoint   ag_binary.Uint128
	FeeBPerTokenCheckpoint   ag_binary.Uint128
	FeeAPending              uint64
	FeeBPending              uint64
	UnlockedLiquidity        ag_binary.Uint128
	VestedLiquidity          ag_binary.Uint128
	PermanentLockedLiquidity ag_binary.Uint128
}

// TotalLiquidity sums the three liquidity buckets.
func (p *Position) TotalLiquidity() ag_binary.Uint128 {
	total := p.UnlockedLiquidity.BigInt()
	total.Add(total, p.VestedLiquidity.BigInt())
	total.Add(total, p.PermanentLockedLiquidity.BigInt())
	out, _ := BigIntToUint128(total)
	return out
}

func accountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:8]
}

func decodeAnchorAccount(name string, data []byte, out interface{}) error {
	disc := accountDiscriminator(name)
	if len(data) < len(disc) {
		return fmt.Errorf("account data too short for %s: %d bytes", name, len(data))
	}
	for i := range disc {
		if data[i] != disc[i] {
			return fmt.Errorf("account discriminator mismatch, expected %s", name)
		}
	}
	if err := ag_binary.NewBorshDecoder(data[len(disc):]).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s account: %w", name, err)
	}
	return nil
}

// AccountFetcher is the read surface state decoding needs from the chain
// client.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, address solana.PublicKey) (*chain.AccountInfo, error)
}

// FetchPool loads and decodes a pool account.
func FetchPool(ctx context.Context, fetcher AccountFetcher, address solana.PublicKey) (*Pool, error) {
	info, err := fetcher.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pool %s: %w", address, err)
	}
	pool := new(Pool)
	if err := decodeAnchorAccount("Pool", info.Data, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// FetchPosition loads and decodes a position account.
func FetchPosition(ctx context.Context, fetcher AccountFetcher, address solana.PublicKey) (*Position, error) {
	info, err := fetcher.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch position %s: %w", address, err)
	}
	position := new(Position)
	if err := decodeAnchorAccount("Position", info.Data, position); err != nil {
		return nil, err
	}
	return position, nil
}

// TokenBadge is the decoded token badge account. The badge acknowledges a
// Token-2022 mint with the AMM and records its hook policy.
type TokenBadge struct {
	TokenMint        solana.PublicKey
	HookProgramID    solana.PublicKey
	HookConfigFlags  uint8
	MaxDailyVolume   uint64
	MaxMonthlyVolume uint64
	MinKycLevel      uint8
}

// Badge hook config flags.
const (
	BadgeFlagRequiresKyc     uint8 = 0x01
	BadgeFlagGeoRestrictions uint8 = 0x02
	BadgeFlagVolumeLimits    uint8 = 0x04
)

// HasHookProgram reports whether the badge pins a transfer hook program. A
// zero program id means none.
func (b *TokenBadge) HasHookProgram() bool {
	return !b.HookProgramID.IsZero()
}

func (b *TokenBadge) RequiresKyc() bool {
	return b.HookConfigFlags&BadgeFlagRequiresKyc != 0
}

// FetchTokenBadge loads and decodes a token badge account.
func FetchTokenBadge(ctx context.Context, fetcher AccountFetcher, address solana.PublicKey) (*TokenBadge, error) {
	info, err := fetcher.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token badge %s: %w", address, err)
	}
	badge := new(TokenBadge)
	if err := decodeAnchorAccount("TokenBadge", info.Data, badge); err != nil {
		return nil, err
	}
	return badge, nil
}
