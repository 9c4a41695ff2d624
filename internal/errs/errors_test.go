// internal/errs/errors_test.go
package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranslateKnownCodes(t *testing.T) {
	cases := []struct {
		message  string
		category Category
	}{
		{"Transaction simulation failed: custom program error: 0x1770", KycRequired},
		{"custom program error: 0x1774", SlippageExceeded},
		{"Error Code: ExceededSlippage. Error Number: 6004", SlippageExceeded},
		{"slippage tolerance exceeded", SlippageExceeded},
		{"Error Code: UserKycNotFound", KycRequired},
		{"Error Code: UserSanctioned", HookExecutionFailure},
		{"Error Code: InvalidCountryCode", GeographicRestriction},
		{"Error Code: AmountIsZero", ZeroAmount},
		{"insufficient lamports 100, need 200", InsufficientFunds},
		{"Blockhash not found", NetworkError},
		{"dial tcp: connection refused", NetworkError},
		{"Transaction simulation failed", SimulationFailure},
		{"something entirely novel", Unknown},
	}
	for _, tc := range cases {
		err := Translate(errors.New(tc.message))
		require.Equal(t, tc.category, CategoryOf(err), "message %q", tc.message)
	}
}

func TestNamesWinOverCodes(t *testing.T) {
	// a log line carrying both the anchor name and a code classifies by name
	err := Translate(errors.New("Error Code: UserNotKycVerified. custom program error: 0x1774"))
	require.Equal(t, KycRequired, CategoryOf(err))
}

func TestTranslateWithLogs(t *testing.T) {
	logs := []string{
		"Program log: Instruction: Swap",
		"Program log: AnchorError occurred. Error Code: ExceededSlippage.",
	}
	err := TranslateWithLogs(errors.New("transaction failed"), logs)
	require.Equal(t, SlippageExceeded, CategoryOf(err))
}

func TestTranslatedCarriesRemediation(t *testing.T) {
	err := Translate(errors.New("custom program error: 0x1770"))
	require.Contains(t, err.Error(), "KYC")

	var translated *Translated
	require.True(t, errors.As(err, &translated))
	require.NotEmpty(t, translated.Message)
}

func TestTranslateIsIdempotent(t *testing.T) {
	inner := Translate(errors.New("Blockhash not found"))
	outer := Translate(inner)
	require.Equal(t, NetworkError, CategoryOf(outer))
	require.Same(t, inner, outer)
}

func TestTranslateSurvivesWrapping(t *testing.T) {
	inner := New(PoolNotFound, "pool missing")
	wrapped := fmt.Errorf("swap failed: %w", inner)
	require.Equal(t, PoolNotFound, CategoryOf(wrapped))
}

func TestTranslateNil(t *testing.T) {
	require.NoError(t, Translate(nil))
	require.NoError(t, TranslateWithLogs(nil, nil))
}

func TestUnwrap(t *testing.T) {
	sentinel := errors.New("custom program error: 0x1770")
	err := Translate(sentinel)
	require.ErrorIs(t, err, sentinel)
}
