// internal/amm/service_test.go
package amm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rwadex/dexclient/internal/chain/programs/computebudget"
	"github.com/rwadex/dexclient/internal/errs"
	"github.com/rwadex/dexclient/internal/wallet"
)

func TestSwapComputeUnitsMonotonic(t *testing.T) {
	none := SwapComputeUnits(false, false)
	one := SwapComputeUnits(true, false)
	other := SwapComputeUnits(false, true)
	both := SwapComputeUnits(true, true)

	require.Equal(t, uint32(300_000), none)
	require.Equal(t, one, other)
	require.Less(t, none, one)
	require.Less(t, one, both)
	require.LessOrEqual(t, both, computebudget.MaxUnits)
}

func TestSwapRejectsZeroAmount(t *testing.T) {
	s := NewService(nil, nil, nil, nil, &wallet.Wallet{}, testProgramID, zap.NewNop())

	_, err := s.Swap(context.Background(), SwapParams{AmountIn: 0})
	require.Error(t, err)
	require.Equal(t, errs.ZeroAmount, errs.CategoryOf(err))
}

func TestAnchorDiscriminatorStable(t *testing.T) {
	// sha256("global:swap")[:8] is fixed by the anchor ABI.
	require.Equal(t,
		[]byte{0xf8, 0xc6, 0x9e, 0x91, 0xe1, 0x75, 0x87, 0xc8},
		anchorDiscriminator("swap"))
}

func TestSwapInstructionOptionalSlots(t *testing.T) {
	s := NewService(nil, nil, nil, nil, &wallet.Wallet{}, testProgramID, zap.NewNop())

	ix, err := s.swapInstruction(swapAccounts{}, 100, 90, nil)
	require.NoError(t, err)

	accounts := ix.Accounts()
	// fixed accounts: authority, pool, 2 token accounts, 2 vaults, 2 mints,
	// payer, 2 token programs, referral, registry, event authority, program
	require.Len(t, accounts, 15)
	// empty optional slots carry the program id
	require.Equal(t, testProgramID, accounts[11].PublicKey)
	require.Equal(t, testProgramID, accounts[12].PublicKey)
}
