// internal/mint/pipeline.go
package mint

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"github.com/rwadex/dexclient/internal/chain/programs/token2022"
	"github.com/rwadex/dexclient/internal/chain/transaction"
	"github.com/rwadex/dexclient/internal/errs"
	"github.com/rwadex/dexclient/internal/hook"
	"github.com/rwadex/dexclient/internal/wallet"
)

// Step names one transaction of the provisioning saga.
type Step string

const (
	StepCreateAccount   Step = "create_account"
	StepValueExtensions Step = "value_extensions"
	StepInitializeMint  Step = "initialize_mint"
	StepMetadataFields  Step = "metadata_fields"
	StepMintSupply      Step = "mint_supply"
)

// Metadata field updates per transaction, bounded by transaction size.
const maxFieldsPerTransaction = 6

// Compute budget for the extension-heavy transactions.
const mintPipelineUnits uint32 = 400_000

// ChainReader is the read surface the pipeline needs.
type ChainReader interface {
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
}

// Result reports what the pipeline accomplished. CompletedSteps lets
// callers detect partial completion: the saga is not atomic, and a mint
// account created by an early step is permanent ledger residue even when a
// later step fails.
type Result struct {
	Mint           solana.PublicKey
	TokenAccount   solana.PublicKey
	Signature      solana.Signature
	CompletedSteps []Step
}

// Pipeline provisions Token-2022 mints as an ordered, confirmed-per-step
// transaction sequence.
type Pipeline struct {
	client   ChainReader
	sender   transaction.Sender
	wallet   *wallet.Wallet
	resolver *hook.Resolver
	log      *zap.Logger
}

func NewPipeline(client ChainReader, sender transaction.Sender, w *wallet.Wallet, resolver *hook.Resolver, log *zap.Logger) *Pipeline {
	return &Pipeline{
		client:   client,
		sender:   sender,
		wallet:   w,
		resolver: resolver,
		log:      log,
	}
}

// sagaState tracks what each step produced, so compensation knows what can
// be undone.
type sagaState struct {
	mintKey      solana.PrivateKey
	mint         solana.PublicKey
	tokenAccount *solana.PublicKey
	completed    []Step
	lastSig      solana.Signature
}

// compensations maps each step to its undo action. Only the token account
// is closeable; every other artifact is permanent once confirmed, which is
// why most steps have no entry.
func (p *Pipeline) compensations() map[Step]func(ctx context.Context, st *sagaState) {
	return map[Step]func(ctx context.Context, st *sagaState){
		StepMintSupply: p.closeTokenAccount,
	}
}

// closeTokenAccount is best-effort: a close can legitimately fail (nonzero
// balance, already closed) and that must not mask the original error.
func (p *Pipeline) closeTokenAccount(ctx context.Context, st *sagaState) {
	if st.tokenAccount == nil {
		return
	}
	log := p.log.With(zap.String("token_account", st.tokenAccount.String()))
	log.Info("attempting to close token account after pipeline failure")

	ix := token2022.CloseAccountInstruction(*st.tokenAccount, p.wallet.PublicKey, p.wallet.PublicKey)
	if _, err := p.sender.SendAndConfirm(ctx, []solana.Instruction{ix}, []solana.PrivateKey{p.wallet.PrivateKey}, 0); err != nil {
		log.Warn("failed to close token account, leaving as residue", zap.Error(err))
		return
	}
	log.Info("token account closed")
}

// fail runs the compensation for the furthest step reached, then returns
// the translated error alongside the partial result.
func (p *Pipeline) fail(ctx context.Context, st *sagaState, step Step, err error) (*Result, error) {
	if compensate, ok := p.compensations()[step]; ok {
		compensate(ctx, st)
	}
	return &Result{
		Mint:           st.mint,
		Signature:      st.lastSig,
		CompletedSteps: st.completed,
	}, errs.Translate(fmt.Errorf("mint pipeline failed at step %s: %w", step, err))
}

// CreateRwaMint provisions a mint with the requested extension set. Each
// transaction confirms before the next is built; the ordering is forced by
// the ledger: extension layout must be written before base initialization,
// and metadata requires the mint to exist.
func (p *Pipeline) CreateRwaMint(ctx context.Context, params CreateMintParams) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	mintKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate mint keypair: %w", err)
	}
	st := &sagaState{mintKey: mintKey, mint: mintKey.PublicKey()}
	log := p.log.With(zap.String("mint", st.mint.String()))
	log.Info("starting mint provisioning")

	// Step 1: account creation plus the extensions whose layout is fixed at
	// creation time. The mint keypair signs only here.
	if err := p.stepCreateAccount(ctx, st, &params); err != nil {
		return p.fail(ctx, st, StepCreateAccount, err)
	}

	// Step 2: extensions that only write configuration values.
	if params.hasValueExtensions() {
		if err := p.stepValueExtensions(ctx, st, &params); err != nil {
			return p.fail(ctx, st, StepValueExtensions, err)
		}
	}

	// Step 3: base mint fields plus the metadata record.
	if err := p.stepInitializeMint(ctx, st, &params); err != nil {
		return p.fail(ctx, st, StepInitializeMint, err)
	}

	// Step 4: additional metadata fields, batched.
	if params.Metadata != nil && len(params.Metadata.AdditionalFields) > 0 {
		if err := p.stepMetadataFields(ctx, st, &params); err != nil {
			return p.fail(ctx, st, StepMetadataFields, err)
		}
	}

	// Step 5: initial supply to the payer's associated token account.
	if params.Supply > 0 {
		if err := p.stepMintSupply(ctx, st, &params); err != nil {
			return p.fail(ctx, st, StepMintSupply, err)
		}
	}

	// Non-critical bootstrap: hooked mints will need the extra-account-metas
	// record before their first transfer, so seed it now. Failure only warns;
	// the record can be initialized lazily by whoever needs it first.
	if params.TransferHook != nil {
		if err := p.resolver.EnsureExtraAccountMetaList(ctx, p.sender, p.wallet.PrivateKey, st.mint); err != nil {
			log.Warn("failed to bootstrap extra account meta list", zap.Error(err))
		}
	}

	log.Info("mint provisioning complete", zap.Int("steps", len(st.completed)))
	result := &Result{
		Mint:           st.mint,
		Signature:      st.lastSig,
		CompletedSteps: st.completed,
	}
	if st.tokenAccount != nil {
		result.TokenAccount = *st.tokenAccount
	}
	return result, nil
}

func (p *Pipeline) stepCreateAccount(ctx context.Context, st *sagaState, params *CreateMintParams) error {
	space, err := token2022.MintLenForExtensions(params.extensionTypes())
	if err != nil {
		return err
	}
	rent, err := p.client.GetMinimumBalanceForRentExemption(ctx, space)
	if err != nil {
		return fmt.Errorf("failed to fetch rent for mint account: %w", err)
	}

	instructions := []solana.Instruction{
		system.NewCreateAccountInstruction(rent, space, token2022.ProgramID, p.wallet.PublicKey, st.mint).Build(),
	}
	if params.Metadata != nil {
		instructions = append(instructions,
			token2022.InitializeMetadataPointerInstruction(st.mint, p.wallet.PublicKey, st.mint))
	}
	if params.TransferHook != nil {
		instructions = append(instructions,
			token2022.InitializeTransferHookInstruction(st.mint, p.wallet.PublicKey, params.TransferHook.ProgramID))
	}
	if params.GroupMember {
		instructions = append(instructions,
			token2022.InitializeGroupMemberPointerInstruction(st.mint, p.wallet.PublicKey, st.mint))
	}

	status, err := p.sender.SendAndConfirm(ctx, instructions,
		[]solana.PrivateKey{p.wallet.PrivateKey, st.mintKey}, mintPipelineUnits)
	if err != nil {
		return err
	}
	st.lastSig = status.Signature
	st.completed = append(st.completed, StepCreateAccount)
	return nil
}

func (p *Pipeline) stepValueExtensions(ctx context.Context, st *sagaState, params *CreateMintParams) error {
	var instructions []solana.Instruction
	if params.TransferFee != nil {
		instructions = append(instructions, token2022.InitializeTransferFeeConfigInstruction(
			st.mint, &p.wallet.PublicKey, &p.wallet.PublicKey,
			params.TransferFee.BasisPoints, params.TransferFee.MaximumFee))
	}
	if params.InterestBearing != nil {
		instructions = append(instructions, token2022.InitializeInterestBearingMintInstruction(
			st.mint, p.wallet.PublicKey, params.InterestBearing.Rate))
	}

	status, err := p.sender.SendAndConfirm(ctx, instructions,
		[]solana.PrivateKey{p.wallet.PrivateKey}, mintPipelineUnits)
	if err != nil {
		return err
	}
	st.lastSig = status.Signature
	st.completed = append(st.completed, StepValueExtensions)
	return nil
}

func (p *Pipeline) stepInitializeMint(ctx context.Context, st *sagaState, params *CreateMintParams) error {
	var instructions []solana.Instruction

	if params.Metadata != nil {
		// The metadata record grows the account beyond its creation-time
		// size, so top up rent before writing it.
		additional := make(map[string]string, len(params.Metadata.AdditionalFields))
		for _, field := range params.Metadata.AdditionalFields {
			additional[field.Key] = field.Value
		}
		space := token2022.MetadataSpace(params.Metadata.Name, params.Metadata.Symbol, params.Metadata.URI, additional)
		rent, err := p.client.GetMinimumBalanceForRentExemption(ctx, space)
		if err != nil {
			return fmt.Errorf("failed to fetch rent for metadata: %w", err)
		}
		instructions = append(instructions,
			system.NewTransferInstruction(rent, p.wallet.PublicKey, st.mint).Build())
	}

	instructions = append(instructions,
		token2022.InitializeMint2Instruction(st.mint, params.Decimals, p.wallet.PublicKey, params.FreezeAuthority))

	if params.Metadata != nil {
		instructions = append(instructions,
			token2022.InitializeMetadataInstruction(st.mint, p.wallet.PublicKey, p.wallet.PublicKey,
				params.Metadata.Name, params.Metadata.Symbol, params.Metadata.URI))
	}

	status, err := p.sender.SendAndConfirm(ctx, instructions,
		[]solana.PrivateKey{p.wallet.PrivateKey}, mintPipelineUnits)
	if err != nil {
		return err
	}
	st.lastSig = status.Signature
	st.completed = append(st.completed, StepInitializeMint)
	return nil
}

func (p *Pipeline) stepMetadataFields(ctx context.Context, st *sagaState, params *CreateMintParams) error {
	fields := params.Metadata.AdditionalFields
	for start := 0; start < len(fields); start += maxFieldsPerTransaction {
		end := start + maxFieldsPerTransaction
		if end > len(fields) {
			end = len(fields)
		}
		var instructions []solana.Instruction
		for _, field := range fields[start:end] {
			instructions = append(instructions,
				token2022.UpdateMetadataFieldInstruction(st.mint, p.wallet.PublicKey, field.Key, field.Value))
		}
		status, err := p.sender.SendAndConfirm(ctx, instructions,
			[]solana.PrivateKey{p.wallet.PrivateKey}, mintPipelineUnits)
		if err != nil {
			return err
		}
		st.lastSig = status.Signature
	}
	st.completed = append(st.completed, StepMetadataFields)
	return nil
}

func (p *Pipeline) stepMintSupply(ctx context.Context, st *sagaState, params *CreateMintParams) error {
	tokenAccount, createIx, err := token2022.CreateATAIdempotentInstruction(
		p.wallet.PublicKey, p.wallet.PublicKey, st.mint, token2022.ProgramID)
	if err != nil {
		return err
	}
	st.tokenAccount = &tokenAccount

	instructions := []solana.Instruction{
		createIx,
		token2022.MintToInstruction(st.mint, tokenAccount, p.wallet.PublicKey, params.Supply),
	}
	status, err := p.sender.SendAndConfirm(ctx, instructions,
		[]solana.PrivateKey{p.wallet.PrivateKey}, mintPipelineUnits)
	if err != nil {
		return err
	}
	st.lastSig = status.Signature
	st.completed = append(st.completed, StepMintSupply)
	return nil
}
