// internal/hook/kyc_test.go
package hook

import (
	"bytes"
	"context"
	"crypto/sha256"
	"testing"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rwadex/dexclient/internal/chain"
	"github.com/rwadex/dexclient/internal/chain/programs/token2022"
	"github.com/rwadex/dexclient/internal/chain/transaction"
)

type fakeSender struct {
	batches [][]solana.Instruction
}

func (f *fakeSender) SendAndConfirm(_ context.Context, instructions []solana.Instruction, _ []solana.PrivateKey, _ uint32) (*transaction.Status, error) {
	f.batches = append(f.batches, instructions)
	return &transaction.Status{State: transaction.StateConfirmed}, nil
}

func encodeKycAccount(t *testing.T, record *UserKyc) []byte {
	t.Helper()
	disc := sha256.Sum256([]byte("account:UserKYC"))
	buf := new(bytes.Buffer)
	buf.Write(disc[:8])
	require.NoError(t, ag_binary.NewBorshEncoder(buf).Encode(record))
	return buf.Bytes()
}

func seedKyc(t *testing.T, fc *fakeChain, wallet solana.PublicKey, level, flags uint8) {
	t.Helper()
	record := &UserKyc{User: wallet, KycLevel: level, Flags: flags}
	copy(record.Country[:], "US")
	fc.accounts[DeriveUserKycAddress(hookProgramID, wallet)] = &chain.AccountInfo{
		Owner: hookProgramID,
		Data:  encodeKycAccount(t, record),
	}
}

func newTestGate(fc *fakeChain, sender transaction.Sender) *Gate {
	program := &Program{ID: hookProgramID}
	resolver := NewResolver(fc, program, zap.NewNop())
	return NewGate(fc, sender, program, resolver, KycDefaults{Country: "US"}, zap.NewNop())
}

func TestDecodeUserKycRoundTrip(t *testing.T) {
	wallet := solana.MustPublicKeyFromBase58("4Nd1mYvN6jXLLNPDD9BtsbYAPm75KzPopYkkxLEfscVu")
	record := &UserKyc{User: wallet, KycLevel: KycLevelEnhanced, RiskScore: 10, Flags: KycFlagPep}
	copy(record.Country[:], "US")
	copy(record.State[:], "CA")
	copy(record.City[:], "San Francisco")

	decoded, err := DecodeUserKyc(encodeKycAccount(t, record))
	require.NoError(t, err)
	require.Equal(t, wallet, decoded.User)
	require.Equal(t, KycLevelEnhanced, decoded.KycLevel)
	require.Equal(t, "US", decoded.CountryCode())
	require.Equal(t, "CA", decoded.StateCode())
	require.Equal(t, "San Francisco", decoded.CityName())
	require.False(t, decoded.IsSanctioned())
	require.False(t, decoded.IsFrozen())
}

func TestDecodeUserKycRejectsWrongDiscriminator(t *testing.T) {
	_, err := DecodeUserKyc(make([]byte, 119))
	require.Error(t, err)
}

func TestGetStatus(t *testing.T) {
	fc := newFakeChain()
	gate := newTestGate(fc, &fakeSender{})
	wallet := solana.MustPublicKeyFromBase58("4Nd1mYvN6jXLLNPDD9BtsbYAPm75KzPopYkkxLEfscVu")

	status, err := gate.GetStatus(context.Background(), wallet)
	require.NoError(t, err)
	require.False(t, status.Exists)
	require.False(t, status.CanTradeRwa)

	seedKyc(t, fc, wallet, KycLevelBasic, 0)
	status, err = gate.GetStatus(context.Background(), wallet)
	require.NoError(t, err)
	require.True(t, status.Exists)
	require.Equal(t, KycLevelBasic, status.Level)
	require.False(t, status.CanTradeRwa)

	seedKyc(t, fc, wallet, KycLevelEnhanced, 0)
	status, err = gate.GetStatus(context.Background(), wallet)
	require.NoError(t, err)
	require.True(t, status.CanTradeRwa)
}

func TestEnsureKycCreatesOnlyMissing(t *testing.T) {
	fc := newFakeChain()
	sender := &fakeSender{}
	gate := newTestGate(fc, sender)

	existing := solana.MustPublicKeyFromBase58("4Nd1mYvN6jXLLNPDD9BtsbYAPm75KzPopYkkxLEfscVu")
	missing := solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	seedKyc(t, fc, existing, KycLevelBasic, 0)

	payer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	require.NoError(t, gate.EnsureKyc(context.Background(), payer, existing, missing))
	require.Len(t, sender.batches, 1)
	require.Len(t, sender.batches[0], 1)
	require.Equal(t, hookProgramID, sender.batches[0][0].ProgramID())
}

func complianceFixture(t *testing.T) (*fakeChain, *Gate, solana.PublicKey, solana.PublicKey, solana.PublicKey) {
	t.Helper()
	fc := newFakeChain()
	gate := newTestGate(fc, &fakeSender{})

	hooked := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	plain := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	fc.accounts[hooked] = &chain.AccountInfo{Owner: token2022.ProgramID, Data: hookedMintData(hookProgramID)}
	fc.accounts[plain] = &chain.AccountInfo{Owner: token2022.ClassicTokenProgramID, Data: plainMintData()}

	user := solana.MustPublicKeyFromBase58("4Nd1mYvN6jXLLNPDD9BtsbYAPm75KzPopYkkxLEfscVu")
	return fc, gate, user, hooked, plain
}

func TestValidateSwapComplianceNoRecord(t *testing.T) {
	_, gate, user, hooked, plain := complianceFixture(t)

	result, err := gate.ValidateSwapCompliance(context.Background(), user, hooked, plain)
	require.NoError(t, err)
	require.False(t, result.CanSwap)
	require.Equal(t, KycLevelBasic, result.RequiredKycLevel)
}

func TestValidateSwapComplianceLevelTooLowForHook(t *testing.T) {
	fc, gate, user, hooked, plain := complianceFixture(t)
	seedKyc(t, fc, user, KycLevelBasic, 0)

	result, err := gate.ValidateSwapCompliance(context.Background(), user, hooked, plain)
	require.NoError(t, err)
	require.False(t, result.CanSwap)
	require.Equal(t, KycLevelEnhanced, result.RequiredKycLevel)
}

func TestValidateSwapComplianceEnhancedPasses(t *testing.T) {
	fc, gate, user, hooked, plain := complianceFixture(t)
	seedKyc(t, fc, user, KycLevelEnhanced, 0)

	result, err := gate.ValidateSwapCompliance(context.Background(), user, hooked, plain)
	require.NoError(t, err)
	require.True(t, result.CanSwap)
}

func TestValidateSwapComplianceUnhookedNeedsNoTier(t *testing.T) {
	fc, gate, user, _, plain := complianceFixture(t)
	seedKyc(t, fc, user, KycLevelBasic, 0)

	result, err := gate.ValidateSwapCompliance(context.Background(), user, plain, plain)
	require.NoError(t, err)
	require.True(t, result.CanSwap)
}

func TestValidateSwapComplianceFlagged(t *testing.T) {
	fc, gate, user, hooked, plain := complianceFixture(t)
	seedKyc(t, fc, user, KycLevelInstitutional, KycFlagSanctions)

	result, err := gate.ValidateSwapCompliance(context.Background(), user, hooked, plain)
	require.NoError(t, err)
	require.False(t, result.CanSwap)
}
