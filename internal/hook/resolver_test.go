// internal/hook/resolver_test.go
package hook

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rwadex/dexclient/internal/chain"
	"github.com/rwadex/dexclient/internal/chain/programs/token2022"
)

var hookProgramID = solana.MustPublicKeyFromBase58("99NTyZ796bpvwLLhMmsfwo8J3Wu3rUioUQsHE9CSYQKz")

type fakeChain struct {
	accounts map[solana.PublicKey]*chain.AccountInfo
}

func newFakeChain() *fakeChain {
	return &fakeChain{accounts: make(map[solana.PublicKey]*chain.AccountInfo)}
}

func (f *fakeChain) GetAccountInfo(_ context.Context, address solana.PublicKey) (*chain.AccountInfo, error) {
	info, ok := f.accounts[address]
	if !ok {
		return nil, chain.ErrAccountNotFound
	}
	return info, nil
}

func (f *fakeChain) AccountExists(_ context.Context, address solana.PublicKey) (bool, error) {
	_, ok := f.accounts[address]
	return ok, nil
}

// hookedMintData builds a Token-2022 mint whose TLV region carries a
// transfer hook pointing at program.
func hookedMintData(program solana.PublicKey) []byte {
	data := make([]byte, 166+4+64)
	binary.LittleEndian.PutUint16(data[166:], uint16(token2022.ExtTransferHook))
	binary.LittleEndian.PutUint16(data[168:], 64)
	copy(data[170+32:], program.Bytes())
	return data
}

func plainMintData() []byte {
	return make([]byte, 82)
}

func newTestResolver(chainReader ChainReader) *Resolver {
	return NewResolver(chainReader, &Program{ID: hookProgramID}, zap.NewNop())
}

func TestDetectHookClassicMint(t *testing.T) {
	fc := newFakeChain()
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	fc.accounts[mint] = &chain.AccountInfo{
		Owner: token2022.ClassicTokenProgramID,
		Data:  plainMintData(),
	}

	_, found, err := newTestResolver(fc).DetectHook(context.Background(), mint)
	require.NoError(t, err)
	require.False(t, found)
}

func TestDetectHookToken2022WithoutHook(t *testing.T) {
	fc := newFakeChain()
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	fc.accounts[mint] = &chain.AccountInfo{
		Owner: token2022.ProgramID,
		Data:  plainMintData(),
	}

	_, found, err := newTestResolver(fc).DetectHook(context.Background(), mint)
	require.NoError(t, err)
	require.False(t, found)
}

func TestDetectHookFindsProgram(t *testing.T) {
	fc := newFakeChain()
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	fc.accounts[mint] = &chain.AccountInfo{
		Owner: token2022.ProgramID,
		Data:  hookedMintData(hookProgramID),
	}

	program, found, err := newTestResolver(fc).DetectHook(context.Background(), mint)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, hookProgramID, program)
}

func TestDetectHookMalformedExtensionsIsNonFatal(t *testing.T) {
	fc := newFakeChain()
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	malformed := make([]byte, 172)
	binary.LittleEndian.PutUint16(malformed[166:], uint16(token2022.ExtTransferHook))
	binary.LittleEndian.PutUint16(malformed[168:], 64) // overruns the buffer
	fc.accounts[mint] = &chain.AccountInfo{Owner: token2022.ProgramID, Data: malformed}

	_, found, err := newTestResolver(fc).DetectHook(context.Background(), mint)
	require.NoError(t, err)
	require.False(t, found)
}

func TestResolveEmptyWhenUnhooked(t *testing.T) {
	fc := newFakeChain()
	mintA := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintB := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	fc.accounts[mintA] = &chain.AccountInfo{Owner: token2022.ClassicTokenProgramID, Data: plainMintData()}
	fc.accounts[mintB] = &chain.AccountInfo{Owner: token2022.ClassicTokenProgramID, Data: plainMintData()}

	owner := solana.MustPublicKeyFromBase58("4Nd1mYvN6jXLLNPDD9BtsbYAPm75KzPopYkkxLEfscVu")
	resolved, err := newTestResolver(fc).Resolve(context.Background(), ResolveContext{
		InputMint:             mintA,
		OutputMint:            mintB,
		Owner:                 owner,
		CounterpartyAuthority: owner,
	})
	require.NoError(t, err)
	require.False(t, resolved.HasHook())
	require.Empty(t, resolved.Input)
	require.Empty(t, resolved.Output)
	require.Empty(t, resolved.Common)
	require.Empty(t, resolved.All())
}

func TestResolveHookedSideCarriesCommonAccounts(t *testing.T) {
	fc := newFakeChain()
	mintA := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintB := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	fc.accounts[mintA] = &chain.AccountInfo{Owner: token2022.ProgramID, Data: hookedMintData(hookProgramID)}
	fc.accounts[mintB] = &chain.AccountInfo{Owner: token2022.ClassicTokenProgramID, Data: plainMintData()}

	owner := solana.MustPublicKeyFromBase58("4Nd1mYvN6jXLLNPDD9BtsbYAPm75KzPopYkkxLEfscVu")
	counterparty := solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

	resolved, err := newTestResolver(fc).Resolve(context.Background(), ResolveContext{
		InputMint:             mintA,
		OutputMint:            mintB,
		Owner:                 owner,
		CounterpartyAuthority: counterparty,
	})
	require.NoError(t, err)
	require.True(t, resolved.InputHook)
	require.False(t, resolved.OutputHook)

	require.Len(t, resolved.Input, 1)
	require.Equal(t, DeriveExtraAccountMetasAddress(hookProgramID, mintA), resolved.Input[0].PublicKey)
	require.Empty(t, resolved.Output)

	require.Len(t, resolved.Common, 3)
	require.Equal(t, DeriveUserKycAddress(hookProgramID, owner), resolved.Common[0].PublicKey)
	require.Equal(t, DeriveUserKycAddress(hookProgramID, counterparty), resolved.Common[1].PublicKey)
	require.Equal(t, hookProgramID, resolved.Common[2].PublicKey)

	require.Len(t, resolved.All(), 4)
}
