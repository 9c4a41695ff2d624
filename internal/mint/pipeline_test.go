// internal/mint/pipeline_test.go
package mint

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rwadex/dexclient/internal/chain"
	"github.com/rwadex/dexclient/internal/chain/programs/token2022"
	"github.com/rwadex/dexclient/internal/chain/transaction"
	"github.com/rwadex/dexclient/internal/hook"
	"github.com/rwadex/dexclient/internal/wallet"
)

var testHookProgram = solana.MustPublicKeyFromBase58("99NTyZ796bpvwLLhMmsfwo8J3Wu3rUioUQsHE9CSYQKz")

type fakeChain struct{}

func (fakeChain) GetMinimumBalanceForRentExemption(context.Context, uint64) (uint64, error) {
	return 1_000_000, nil
}

func (fakeChain) GetAccountInfo(context.Context, solana.PublicKey) (*chain.AccountInfo, error) {
	return nil, chain.ErrAccountNotFound
}

func (fakeChain) AccountExists(context.Context, solana.PublicKey) (bool, error) {
	// pretend extra-account-metas records already exist so the hooked-mint
	// bootstrap is a no-op
	return true, nil
}

type fakeSender struct {
	batches [][]solana.Instruction

	// failAt, when matching the 1-based batch number, fails that submission
	failAt int
}

func (f *fakeSender) SendAndConfirm(_ context.Context, instructions []solana.Instruction, _ []solana.PrivateKey, _ uint32) (*transaction.Status, error) {
	f.batches = append(f.batches, instructions)
	if f.failAt == len(f.batches) {
		return nil, errors.New("custom program error: 0x1")
	}
	return &transaction.Status{State: transaction.StateConfirmed}, nil
}

// findInstruction returns the batch index of the first token program
// instruction whose first data byte is tag, or -1.
func findInstruction(batches [][]solana.Instruction, tag byte) int {
	for i, batch := range batches {
		for _, ix := range batch {
			if !ix.ProgramID().Equals(token2022.ProgramID) {
				continue
			}
			data, err := ix.Data()
			if err == nil && len(data) > 0 && data[0] == tag {
				return i
			}
		}
	}
	return -1
}

func newTestPipeline(t *testing.T, sender *fakeSender) *Pipeline {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := wallet.New(key.String())
	require.NoError(t, err)

	program := &hook.Program{ID: testHookProgram}
	resolver := hook.NewResolver(fakeChain{}, program, zap.NewNop())
	return NewPipeline(fakeChain{}, sender, w, resolver, zap.NewNop())
}

func TestCreateRwaMintOrdering(t *testing.T) {
	sender := &fakeSender{}
	pipeline := newTestPipeline(t, sender)

	result, err := pipeline.CreateRwaMint(context.Background(), CreateMintParams{
		Decimals: 6,
		Supply:   1000,
		Metadata: &MetadataParams{Name: "Test Asset", Symbol: "TST", URI: "https://example.com/tst.json"},
		TransferHook: &TransferHookParams{ProgramID: testHookProgram},
	})
	require.NoError(t, err)
	require.False(t, result.Mint.IsZero())
	require.Equal(t,
		[]Step{StepCreateAccount, StepInitializeMint, StepMintSupply},
		result.CompletedSteps)

	metadataPointer := findInstruction(sender.batches, 39)
	transferHook := findInstruction(sender.batches, 36)
	initializeMint := findInstruction(sender.batches, 20)
	mintTo := findInstruction(sender.batches, 7)

	require.NotEqual(t, -1, metadataPointer)
	require.NotEqual(t, -1, transferHook)
	require.NotEqual(t, -1, initializeMint)
	require.NotEqual(t, -1, mintTo)

	// pointer extensions precede base initialization, supply follows it
	require.Less(t, metadataPointer, initializeMint)
	require.Less(t, transferHook, initializeMint)
	require.Greater(t, mintTo, initializeMint)
}

func TestCreateRwaMintValueExtensionsBeforeInitialize(t *testing.T) {
	sender := &fakeSender{}
	pipeline := newTestPipeline(t, sender)

	result, err := pipeline.CreateRwaMint(context.Background(), CreateMintParams{
		Decimals:        6,
		TransferFee:     &TransferFeeParams{BasisPoints: 50, MaximumFee: 1_000_000},
		InterestBearing: &InterestBearingParams{Rate: 250},
	})
	require.NoError(t, err)
	require.Equal(t,
		[]Step{StepCreateAccount, StepValueExtensions, StepInitializeMint},
		result.CompletedSteps)

	transferFee := findInstruction(sender.batches, 26)
	interest := findInstruction(sender.batches, 33)
	initializeMint := findInstruction(sender.batches, 20)
	require.Less(t, transferFee, initializeMint)
	require.Less(t, interest, initializeMint)
}

func TestCreateRwaMintBatchesMetadataFields(t *testing.T) {
	sender := &fakeSender{}
	pipeline := newTestPipeline(t, sender)

	fields := make([]MetadataField, 8)
	for i := range fields {
		fields[i] = MetadataField{Key: string(rune('a' + i)), Value: "v"}
	}
	result, err := pipeline.CreateRwaMint(context.Background(), CreateMintParams{
		Decimals: 0,
		Metadata: &MetadataParams{Name: "N", Symbol: "S", URI: "u", AdditionalFields: fields},
	})
	require.NoError(t, err)
	require.Contains(t, result.CompletedSteps, StepMetadataFields)

	// 8 fields split into batches of 6 and 2, after create + initialize
	require.Len(t, sender.batches, 4)
	require.Len(t, sender.batches[2], 6)
	require.Len(t, sender.batches[3], 2)
}

func TestCreateRwaMintReportsPartialCompletion(t *testing.T) {
	sender := &fakeSender{failAt: 2}
	pipeline := newTestPipeline(t, sender)

	result, err := pipeline.CreateRwaMint(context.Background(), CreateMintParams{
		Decimals: 6,
		Supply:   500,
	})
	require.Error(t, err)
	require.NotNil(t, result)
	require.Equal(t, []Step{StepCreateAccount}, result.CompletedSteps)
}

func TestCreateRwaMintCompensatesTokenAccount(t *testing.T) {
	// batch 1: create account, batch 2: initialize, batch 3: mint supply
	// (fails), batch 4: compensation close
	sender := &fakeSender{failAt: 3}
	pipeline := newTestPipeline(t, sender)

	result, err := pipeline.CreateRwaMint(context.Background(), CreateMintParams{
		Decimals: 6,
		Supply:   500,
	})
	require.Error(t, err)
	require.Equal(t, []Step{StepCreateAccount, StepInitializeMint}, result.CompletedSteps)

	require.Len(t, sender.batches, 4)
	closeBatch := sender.batches[3]
	require.Len(t, closeBatch, 1)
	data, err2 := closeBatch[0].Data()
	require.NoError(t, err2)
	require.Equal(t, byte(9), data[0])
}

func TestCreateMintParamsValidate(t *testing.T) {
	require.Error(t, (&CreateMintParams{Decimals: 12}).Validate())
	require.Error(t, (&CreateMintParams{Metadata: &MetadataParams{Name: "x"}}).Validate())
	require.Error(t, (&CreateMintParams{TransferFee: &TransferFeeParams{BasisPoints: 20_000}}).Validate())
	require.NoError(t, (&CreateMintParams{Decimals: 9}).Validate())
}
