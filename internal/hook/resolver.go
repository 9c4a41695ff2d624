// internal/hook/resolver.go
package hook

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rwadex/dexclient/internal/chain"
	"github.com/rwadex/dexclient/internal/chain/programs/token2022"
	"github.com/rwadex/dexclient/internal/chain/transaction"
)

// ChainReader is the read surface the resolver needs.
type ChainReader interface {
	GetAccountInfo(ctx context.Context, address solana.PublicKey) (*chain.AccountInfo, error)
	AccountExists(ctx context.Context, address solana.PublicKey) (bool, error)
}

// Resolver answers two questions about a mint: does it carry a transfer
// hook, and which extra accounts must hooked instructions supply.
type Resolver struct {
	client  ChainReader
	program *Program
	log     *zap.Logger
}

func NewResolver(client ChainReader, program *Program, log *zap.Logger) *Resolver {
	return &Resolver{
		client:  client,
		program: program,
		log:     log,
	}
}

// DetectHook reports whether the mint carries a transfer-hook extension and
// the hook program it points at. Mints owned by the classic token program
// never have hooks. A malformed extension region is reported as no hook
// rather than an error so that unhooked flows keep working.
func (r *Resolver) DetectHook(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, bool, error) {
	info, err := r.client.GetAccountInfo(ctx, mint)
	if err != nil {
		if chain.IsAccountNotFoundError(err) {
			return solana.PublicKey{}, false, fmt.Errorf("mint %s does not exist", mint)
		}
		return solana.PublicKey{}, false, fmt.Errorf("failed to fetch mint %s: %w", mint, err)
	}
	if !info.Owner.Equals(token2022.ProgramID) {
		return solana.PublicKey{}, false, nil
	}
	program, found, err := token2022.TransferHookProgram(info.Data)
	if err != nil {
		r.log.Warn("failed to parse mint extensions, treating as unhooked",
			zap.String("mint", mint.String()),
			zap.Error(err))
		return solana.PublicKey{}, false, nil
	}
	return program, found, nil
}

// ResolveContext names the two legs of a transfer-bearing operation. Owner
// is the user-side authority, CounterpartyAuthority the pool-side one.
type ResolveContext struct {
	InputMint             solana.PublicKey
	OutputMint            solana.PublicKey
	Owner                 solana.PublicKey
	CounterpartyAuthority solana.PublicKey
}

// RemainingAccounts is the resolved account set for one operation.
type RemainingAccounts struct {
	Input  []*solana.AccountMeta
	Output []*solana.AccountMeta
	Common []*solana.AccountMeta

	InputHook  bool
	OutputHook bool
}

// HasHook reports whether either side carries a hook.
func (ra *RemainingAccounts) HasHook() bool {
	return ra.InputHook || ra.OutputHook
}

// All flattens the three lists in instruction order.
func (ra *RemainingAccounts) All() []*solana.AccountMeta {
	out := make([]*solana.AccountMeta, 0, len(ra.Input)+len(ra.Output)+len(ra.Common))
	out = append(out, ra.Input...)
	out = append(out, ra.Output...)
	out = append(out, ra.Common...)
	return out
}

// Resolve produces the remaining accounts an operation on the two mints
// must carry. Per hooked side the extra-account-metas PDA is appended; when
// either side is hooked the common list gains the KYC PDAs for both
// authorities and the hook program id, because the hook validates both legs
// of a transfer in one instruction. Resolve never initializes anything.
func (r *Resolver) Resolve(ctx context.Context, rc ResolveContext) (*RemainingAccounts, error) {
	var inputHook, outputHook bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, found, err := r.DetectHook(gctx, rc.InputMint)
		inputHook = found
		return err
	})
	g.Go(func() error {
		_, found, err := r.DetectHook(gctx, rc.OutputMint)
		outputHook = found
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolved := &RemainingAccounts{
		InputHook:  inputHook,
		OutputHook: outputHook,
	}
	if inputHook {
		resolved.Input = append(resolved.Input, &solana.AccountMeta{
			PublicKey: DeriveExtraAccountMetasAddress(r.program.ID, rc.InputMint),
		})
	}
	if outputHook {
		resolved.Output = append(resolved.Output, &solana.AccountMeta{
			PublicKey: DeriveExtraAccountMetasAddress(r.program.ID, rc.OutputMint),
		})
	}
	if inputHook || outputHook {
		resolved.Common = append(resolved.Common,
			&solana.AccountMeta{PublicKey: DeriveUserKycAddress(r.program.ID, rc.Owner)},
			&solana.AccountMeta{PublicKey: DeriveUserKycAddress(r.program.ID, rc.CounterpartyAuthority)},
			&solana.AccountMeta{PublicKey: r.program.ID},
		)
	}
	return resolved, nil
}

// EnsureExtraAccountMetaList creates the mint's extra-account-metas record
// if it does not exist yet. Safe to call concurrently with other actors
// doing the same; losing the race counts as success.
func (r *Resolver) EnsureExtraAccountMetaList(ctx context.Context, sender transaction.Sender, payer solana.PrivateKey, mint solana.PublicKey) error {
	metaList := DeriveExtraAccountMetasAddress(r.program.ID, mint)
	exists, err := r.client.AccountExists(ctx, metaList)
	if err != nil {
		return fmt.Errorf("failed to check extra account metas for mint %s: %w", mint, err)
	}
	if exists {
		return nil
	}

	log := r.log.With(zap.String("mint", mint.String()))
	log.Info("initializing extra account meta list")

	ix, err := r.program.InitializeExtraAccountMetaListInstruction(payer.PublicKey(), mint)
	if err != nil {
		return err
	}
	if _, err := sender.SendAndConfirm(ctx, []solana.Instruction{ix}, []solana.PrivateKey{payer}, 0); err != nil {
		if isAlreadyInitialized(err) {
			log.Info("extra account meta list already initialized by another actor")
			return nil
		}
		return fmt.Errorf("failed to initialize extra account metas for mint %s: %w", mint, err)
	}
	return nil
}

// isAlreadyInitialized recognizes the create-account races that mean the
// target PDA already exists.
func isAlreadyInitialized(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already in use") ||
		strings.Contains(msg, "already initialized") ||
		strings.Contains(msg, "already been processed")
}
