// internal/amm/service.go
package amm

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rwadex/dexclient/internal/chain"
	"github.com/rwadex/dexclient/internal/chain/programs/computebudget"
	"github.com/rwadex/dexclient/internal/chain/programs/token2022"
	"github.com/rwadex/dexclient/internal/chain/transaction"
	"github.com/rwadex/dexclient/internal/errs"
	"github.com/rwadex/dexclient/internal/hook"
	"github.com/rwadex/dexclient/internal/wallet"
)

// Compute budgets. Pool and liquidity operations get a flat generous budget
// because hook compute is unpredictable; swaps are sized per hook count.
const (
	poolOperationUnits uint32 = 800_000
	swapBaseUnits      uint32 = 300_000
	swapHookUnits      uint32 = 150_000
	swapBothHooksExtra uint32 = 100_000
)

// SwapComputeUnits sizes the swap budget by how many transfer legs run hook
// programs, capped at the per-transaction ceiling.
func SwapComputeUnits(inputHook, outputHook bool) uint32 {
	units := swapBaseUnits
	if inputHook {
		units += swapHookUnits
	}
	if outputHook {
		units += swapHookUnits
	}
	if inputHook && outputHook {
		units += swapBothHooksExtra
	}
	if units > computebudget.MaxUnits {
		units = computebudget.MaxUnits
	}
	return units
}

// ChainReader is the read surface the service needs.
type ChainReader interface {
	AccountFetcher
	AccountExists(ctx context.Context, address solana.PublicKey) (bool, error)
}

// Service builds and submits AMM transactions, merging in whatever
// remaining accounts the hook resolver and compliance gate produce.
type Service struct {
	client   ChainReader
	sender   transaction.Sender
	resolver *hook.Resolver
	gate     *hook.Gate
	wallet   *wallet.Wallet

	programID      solana.PublicKey
	poolAuthority  solana.PublicKey
	eventAuthority solana.PublicKey
	hookRegistry   solana.PublicKey

	log *zap.Logger
}

func NewService(
	client ChainReader,
	sender transaction.Sender,
	resolver *hook.Resolver,
	gate *hook.Gate,
	w *wallet.Wallet,
	programID solana.PublicKey,
	log *zap.Logger,
) *Service {
	return &Service{
		client:         client,
		sender:         sender,
		resolver:       resolver,
		gate:           gate,
		wallet:         w,
		programID:      programID,
		poolAuthority:  DerivePoolAuthority(programID),
		eventAuthority: DeriveEventAuthority(programID),
		hookRegistry:   DeriveHookRegistryAddress(programID),
		log:            log,
	}
}

// PoolAuthority exposes the vault-side transfer authority.
func (s *Service) PoolAuthority() solana.PublicKey {
	return s.poolAuthority
}

// CreateConfigResult reports a created fee config.
type CreateConfigResult struct {
	Config    solana.PublicKey
	Index     uint64
	Signature solana.Signature
}

// CreateConfig creates a fee config under a freshly randomized index.
func (s *Service) CreateConfig(ctx context.Context, fees PoolFeeParameters, sqrtMinPrice, sqrtMaxPrice ag_binary.Uint128) (*CreateConfigResult, error) {
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("failed to randomize config index: %w", err)
	}
	index := binary.LittleEndian.Uint64(seed[:])

	ix, err := s.CreateConfigInstruction(index, fees, sqrtMinPrice, sqrtMaxPrice, s.wallet.PublicKey)
	if err != nil {
		return nil, err
	}
	status, err := s.sender.SendAndConfirm(ctx, []solana.Instruction{ix}, []solana.PrivateKey{s.wallet.PrivateKey}, 0)
	if err != nil {
		return nil, errs.Translate(fmt.Errorf("failed to create config: %w", err))
	}
	return &CreateConfigResult{
		Config:    DeriveConfigAddress(s.programID, index),
		Index:     index,
		Signature: status.Signature,
	}, nil
}

// EnsureTokenBadge creates the badge PDA for a mint if absent. Racing
// another creator counts as success.
func (s *Service) EnsureTokenBadge(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	badge := DeriveTokenBadgeAddress(s.programID, mint)
	exists, err := s.client.AccountExists(ctx, badge)
	if err != nil {
		return badge, fmt.Errorf("failed to check token badge for %s: %w", mint, err)
	}
	if exists {
		return badge, nil
	}

	s.log.Info("creating token badge", zap.String("mint", mint.String()))
	ix, err := s.CreateTokenBadgeInstruction(mint, s.wallet.PublicKey)
	if err != nil {
		return badge, err
	}
	if _, err := s.sender.SendAndConfirm(ctx, []solana.Instruction{ix}, []solana.PrivateKey{s.wallet.PrivateKey}, 0); err != nil {
		if isAlreadyExists(err) {
			return badge, nil
		}
		return badge, errs.Translate(fmt.Errorf("failed to create token badge for %s: %w", mint, err))
	}
	return badge, nil
}

// CreatePoolParams configures pool creation. SqrtPrice and Liquidity are
// Q64.64 values; use PriceToSqrtPrice for human prices.
type CreatePoolParams struct {
	Config    solana.PublicKey
	MintA     solana.PublicKey
	MintB     solana.PublicKey
	Liquidity ag_binary.Uint128
	SqrtPrice ag_binary.Uint128

	// Optional activation point; nil activates immediately.
	ActivationPoint *uint64
}

// CreatePoolResult reports the created pool and its initial position.
type CreatePoolResult struct {
	Pool            solana.PublicKey
	Position        solana.PublicKey
	PositionNftMint solana.PublicKey
	Signature       solana.Signature
}

// CreatePool provisions a pool for a mint pair. Hook prerequisites (extra
// account metas, KYC records for payer and pool authority) are ensured
// before the pool instruction is built so its remaining accounts resolve.
func (s *Service) CreatePool(ctx context.Context, params CreatePoolParams) (*CreatePoolResult, error) {
	// Token A is the larger key; the pool seed and account list agree on this.
	params.MintA, params.MintB = SortMintKeys(params.MintA, params.MintB)
	pool := DerivePoolAddress(s.programID, params.Config, params.MintA, params.MintB)
	log := s.log.With(zap.String("pool", pool.String()))

	programA, programB, err := s.mintTokenPrograms(ctx, params.MintA, params.MintB)
	if err != nil {
		return nil, err
	}

	badgeA, err := s.EnsureTokenBadge(ctx, params.MintA)
	if err != nil {
		return nil, err
	}
	badgeB, err := s.EnsureTokenBadge(ctx, params.MintB)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolver.Resolve(ctx, hook.ResolveContext{
		InputMint:             params.MintA,
		OutputMint:            params.MintB,
		Owner:                 s.wallet.PublicKey,
		CounterpartyAuthority: s.poolAuthority,
	})
	if err != nil {
		return nil, err
	}
	if resolved.HasHook() {
		if resolved.InputHook {
			if err := s.resolver.EnsureExtraAccountMetaList(ctx, s.sender, s.wallet.PrivateKey, params.MintA); err != nil {
				return nil, err
			}
		}
		if resolved.OutputHook {
			if err := s.resolver.EnsureExtraAccountMetaList(ctx, s.sender, s.wallet.PrivateKey, params.MintB); err != nil {
				return nil, err
			}
		}
		if err := s.gate.EnsureKyc(ctx, s.wallet.PrivateKey, s.wallet.PublicKey, s.poolAuthority); err != nil {
			return nil, err
		}
	}

	positionNftMint, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate position nft keypair: %w", err)
	}
	nftMintKey := positionNftMint.PublicKey()

	payerTokenA, ataAIx, err := token2022.CreateATAIdempotentInstruction(s.wallet.PublicKey, s.wallet.PublicKey, params.MintA, programA)
	if err != nil {
		return nil, err
	}
	payerTokenB, ataBIx, err := token2022.CreateATAIdempotentInstruction(s.wallet.PublicKey, s.wallet.PublicKey, params.MintB, programB)
	if err != nil {
		return nil, err
	}

	remaining := []*solana.AccountMeta{
		{PublicKey: badgeA, IsSigner: false, IsWritable: false},
		{PublicKey: badgeB, IsSigner: false, IsWritable: false},
	}
	remaining = append(remaining, resolved.All()...)

	poolIx, err := s.initializePoolInstruction(initializePoolAccounts{
		Creator:            s.wallet.PublicKey,
		PositionNftMint:    nftMintKey,
		PositionNftAccount: DerivePositionNftAccount(s.programID, nftMintKey),
		Payer:              s.wallet.PublicKey,
		Config:             params.Config,
		Pool:               pool,
		Position:           DerivePositionAddress(s.programID, nftMintKey),
		TokenAMint:         params.MintA,
		TokenBMint:         params.MintB,
		TokenAVault:        DeriveTokenVaultAddress(s.programID, params.MintA, pool),
		TokenBVault:        DeriveTokenVaultAddress(s.programID, params.MintB, pool),
		PayerTokenA:        payerTokenA,
		PayerTokenB:        payerTokenB,
		TokenAProgram:      programA,
		TokenBProgram:      programB,
	}, params.Liquidity, params.SqrtPrice, params.ActivationPoint, remaining)
	if err != nil {
		return nil, err
	}

	log.Info("creating pool",
		zap.Bool("input_hook", resolved.InputHook),
		zap.Bool("output_hook", resolved.OutputHook))

	status, err := s.sender.SendAndConfirm(ctx,
		[]solana.Instruction{ataAIx, ataBIx, poolIx},
		[]solana.PrivateKey{s.wallet.PrivateKey, positionNftMint},
		poolOperationUnits,
	)
	if err != nil {
		return nil, errs.Translate(fmt.Errorf("failed to create pool %s: %w", pool, err))
	}
	return &CreatePoolResult{
		Pool:            pool,
		Position:        DerivePositionAddress(s.programID, nftMintKey),
		PositionNftMint: nftMintKey,
		Signature:       status.Signature,
	}, nil
}

// CreatePositionResult reports a freshly opened position.
type CreatePositionResult struct {
	Position        solana.PublicKey
	PositionNftMint solana.PublicKey
	Signature       solana.Signature
}

// CreatePosition opens a position on an existing pool, signed by the wallet
// and a fresh NFT mint keypair.
func (s *Service) CreatePosition(ctx context.Context, pool solana.PublicKey) (*CreatePositionResult, error) {
	positionNftMint, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate position nft keypair: %w", err)
	}
	nftMintKey := positionNftMint.PublicKey()

	ix, err := s.createPositionInstruction(s.wallet.PublicKey, s.wallet.PublicKey, pool, nftMintKey)
	if err != nil {
		return nil, err
	}
	status, err := s.sender.SendAndConfirm(ctx,
		[]solana.Instruction{ix},
		[]solana.PrivateKey{s.wallet.PrivateKey, positionNftMint},
		0,
	)
	if err != nil {
		return nil, errs.Translate(fmt.Errorf("failed to create position on pool %s: %w", pool, err))
	}
	return &CreatePositionResult{
		Position:        DerivePositionAddress(s.programID, nftMintKey),
		PositionNftMint: nftMintKey,
		Signature:       status.Signature,
	}, nil
}

// LiquidityParams drives both add and remove.
type LiquidityParams struct {
	Pool                  solana.PublicKey
	Position              solana.PublicKey
	LiquidityDelta        ag_binary.Uint128
	TokenAAmountThreshold uint64
	TokenBAmountThreshold uint64
}

// AddLiquidity deposits into a position with an 800k compute budget to
// cover hooked vault transfers.
func (s *Service) AddLiquidity(ctx context.Context, params LiquidityParams) (solana.Signature, error) {
	return s.modifyLiquidity(ctx, "add_liquidity", params)
}

// RemoveLiquidity withdraws from a position.
func (s *Service) RemoveLiquidity(ctx context.Context, params LiquidityParams) (solana.Signature, error) {
	return s.modifyLiquidity(ctx, "remove_liquidity", params)
}

func (s *Service) modifyLiquidity(ctx context.Context, name string, params LiquidityParams) (solana.Signature, error) {
	var (
		poolState     *Pool
		positionState *Position
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		poolState, err = FetchPool(gctx, s.client, params.Pool)
		return err
	})
	g.Go(func() error {
		var err error
		positionState, err = FetchPosition(gctx, s.client, params.Position)
		return err
	})
	if err := g.Wait(); err != nil {
		if chain.IsAccountNotFoundError(err) {
			return solana.Signature{}, errs.New(errs.PoolNotFound, fmt.Sprintf("pool not found: %v", err))
		}
		return solana.Signature{}, errs.Translate(err)
	}

	resolved, err := s.resolver.Resolve(ctx, hook.ResolveContext{
		InputMint:             poolState.TokenAMint,
		OutputMint:            poolState.TokenBMint,
		Owner:                 s.wallet.PublicKey,
		CounterpartyAuthority: s.poolAuthority,
	})
	if err != nil {
		return solana.Signature{}, err
	}

	tokenAAccount, err := s.wallet.ATA(poolState.TokenAMint, poolState.TokenAProgram())
	if err != nil {
		return solana.Signature{}, err
	}
	tokenBAccount, err := s.wallet.ATA(poolState.TokenBMint, poolState.TokenBProgram())
	if err != nil {
		return solana.Signature{}, err
	}

	ix, err := s.liquidityInstruction(name, liquidityAccounts{
		Pool:               params.Pool,
		Position:           params.Position,
		TokenAAccount:      tokenAAccount,
		TokenBAccount:      tokenBAccount,
		TokenAVault:        poolState.TokenAVault,
		TokenBVault:        poolState.TokenBVault,
		TokenAMint:         poolState.TokenAMint,
		TokenBMint:         poolState.TokenBMint,
		PositionNftAccount: DerivePositionNftAccount(s.programID, positionState.NftMint),
		Owner:              s.wallet.PublicKey,
		TokenAProgram:      poolState.TokenAProgram(),
		TokenBProgram:      poolState.TokenBProgram(),
	}, liquidityArgs{
		LiquidityDelta:        params.LiquidityDelta,
		TokenAAmountThreshold: params.TokenAAmountThreshold,
		TokenBAmountThreshold: params.TokenBAmountThreshold,
	}, resolved.All())
	if err != nil {
		return solana.Signature{}, err
	}

	status, err := s.sender.SendAndConfirm(ctx, []solana.Instruction{ix}, []solana.PrivateKey{s.wallet.PrivateKey}, poolOperationUnits)
	if err != nil {
		return solana.Signature{}, errs.Translate(fmt.Errorf("%s on pool %s failed: %w", name, params.Pool, err))
	}
	return status.Signature, nil
}

// SwapParams names the trade.
type SwapParams struct {
	Pool             solana.PublicKey
	InputMint        solana.PublicKey
	OutputMint       solana.PublicKey
	AmountIn         uint64
	MinimumAmountOut uint64
}

// Swap trades input for output on a pool, resolving hook remaining accounts
// and sizing the compute budget by hook count.
func (s *Service) Swap(ctx context.Context, params SwapParams) (solana.Signature, error) {
	if params.AmountIn == 0 {
		return solana.Signature{}, errs.New(errs.ZeroAmount, "swap amount is zero")
	}

	poolState, err := FetchPool(ctx, s.client, params.Pool)
	if err != nil {
		if chain.IsAccountNotFoundError(err) {
			return solana.Signature{}, errs.New(errs.PoolNotFound, fmt.Sprintf("pool %s not found", params.Pool))
		}
		return solana.Signature{}, errs.Translate(err)
	}

	compliance, err := s.gate.ValidateSwapCompliance(ctx, s.wallet.PublicKey, params.InputMint, params.OutputMint)
	if err != nil {
		return solana.Signature{}, err
	}
	if !compliance.CanSwap {
		category := errs.KycRequired
		if compliance.RequiredKycLevel >= hook.KycLevelEnhanced {
			category = errs.InsufficientKycLevel
		}
		return solana.Signature{}, errs.New(category, compliance.Reason)
	}

	resolved, err := s.resolver.Resolve(ctx, hook.ResolveContext{
		InputMint:             params.InputMint,
		OutputMint:            params.OutputMint,
		Owner:                 s.wallet.PublicKey,
		CounterpartyAuthority: s.poolAuthority,
	})
	if err != nil {
		return solana.Signature{}, err
	}

	inputProgram, outputProgram := poolState.TokenAProgram(), poolState.TokenBProgram()
	if params.InputMint.Equals(poolState.TokenBMint) {
		inputProgram, outputProgram = poolState.TokenBProgram(), poolState.TokenAProgram()
	}
	inputAccount, err := s.wallet.ATA(params.InputMint, inputProgram)
	if err != nil {
		return solana.Signature{}, err
	}
	outputAccount, err := s.wallet.ATA(params.OutputMint, outputProgram)
	if err != nil {
		return solana.Signature{}, err
	}

	var registry *solana.PublicKey
	if resolved.HasHook() {
		registry = &s.hookRegistry
	}

	ix, err := s.swapInstruction(swapAccounts{
		Pool:               params.Pool,
		InputTokenAccount:  inputAccount,
		OutputTokenAccount: outputAccount,
		TokenAVault:        poolState.TokenAVault,
		TokenBVault:        poolState.TokenBVault,
		TokenAMint:         poolState.TokenAMint,
		TokenBMint:         poolState.TokenBMint,
		Payer:              s.wallet.PublicKey,
		TokenAProgram:      poolState.TokenAProgram(),
		TokenBProgram:      poolState.TokenBProgram(),
		HookRegistry:       registry,
	}, params.AmountIn, params.MinimumAmountOut, resolved.All())
	if err != nil {
		return solana.Signature{}, err
	}

	units := SwapComputeUnits(resolved.InputHook, resolved.OutputHook)
	s.log.Info("submitting swap",
		zap.String("pool", params.Pool.String()),
		zap.Uint64("amount_in", params.AmountIn),
		zap.Uint32("compute_units", units))

	status, err := s.sender.SendAndConfirm(ctx, []solana.Instruction{ix}, []solana.PrivateKey{s.wallet.PrivateKey}, units)
	if err != nil {
		return solana.Signature{}, errs.Translate(fmt.Errorf("swap on pool %s failed: %w", params.Pool, err))
	}
	return status.Signature, nil
}

// mintTokenPrograms fetches both mint owners in parallel.
func (s *Service) mintTokenPrograms(ctx context.Context, mintA, mintB solana.PublicKey) (solana.PublicKey, solana.PublicKey, error) {
	var programA, programB solana.PublicKey
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := s.client.GetAccountInfo(gctx, mintA)
		if err != nil {
			return fmt.Errorf("failed to fetch mint %s: %w", mintA, err)
		}
		programA = info.Owner
		return nil
	})
	g.Go(func() error {
		info, err := s.client.GetAccountInfo(gctx, mintB)
		if err != nil {
			return fmt.Errorf("failed to fetch mint %s: %w", mintB, err)
		}
		programB = info.Owner
		return nil
	})
	if err := g.Wait(); err != nil {
		return programA, programB, err
	}
	return programA, programB, nil
}

// isAlreadyExists recognizes PDA creation races.
func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already in use") ||
		strings.Contains(msg, "already initialized") ||
		strings.Contains(msg, "already been processed")
}
