// internal/errs/errors.go
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the closed failure taxonomy surfaced to callers.
type Category string

const (
	NetworkError            Category = "network_error"
	SimulationFailure       Category = "simulation_failure"
	InsufficientFunds       Category = "insufficient_funds"
	SlippageExceeded        Category = "slippage_exceeded"
	PriceRangeViolation     Category = "price_range_violation"
	ZeroAmount              Category = "zero_amount"
	HookExecutionFailure    Category = "hook_execution_failure"
	KycRequired             Category = "kyc_required"
	InsufficientKycLevel    Category = "insufficient_kyc_level"
	GeographicRestriction   Category = "geographic_restriction"
	TradingHoursRestriction Category = "trading_hours_restriction"
	TradeLimitExceeded      Category = "trade_limit_exceeded"
	PoolNotFound            Category = "pool_not_found"
	Unknown                 Category = "unknown"
)

// remediation holds the user-actionable hint per category.
var remediation = map[Category]string{
	NetworkError:            "check RPC connectivity and retry with a fresh blockhash",
	SimulationFailure:       "verify account balances and instruction accounts, then retry",
	InsufficientFunds:       "top up the payer wallet with SOL",
	SlippageExceeded:        "increase the slippage tolerance or reduce the trade size",
	PriceRangeViolation:     "reduce the trade size so the price stays inside the pool bounds",
	ZeroAmount:              "provide a non-zero amount",
	HookExecutionFailure:    "the token's transfer hook rejected the transfer, contact the issuer",
	KycRequired:             "complete KYC verification before trading this token",
	InsufficientKycLevel:    "upgrade KYC to the enhanced tier to trade RWA tokens",
	GeographicRestriction:   "this token is not available in your jurisdiction",
	TradingHoursRestriction: "retry during the token's configured trading hours",
	TradeLimitExceeded:      "wait for the daily or monthly volume window to reset",
	PoolNotFound:            "verify the pool address or create the pool first",
	Unknown:                 "inspect the transaction logs for details",
}

// rule maps substrings of a failure (program error names, hex codes, RPC
// messages) to a category. Rules are evaluated in order: error names first,
// then hex codes, then loose message text.
type rule struct {
	substrings []string
	category   Category
}

var rules = []rule{
	// anchor error names from the hook and AMM programs
	{[]string{"UserKycNotFound", "UserNotKycVerified"}, KycRequired},
	{[]string{"InvalidKycLevel", "UserNotEligible"}, InsufficientKycLevel},
	{[]string{"InvalidCountryCode", "InvalidStateCode", "InvalidCityName"}, GeographicRestriction},
	{[]string{"OutsideTradingHours"}, TradingHoursRestriction},
	{[]string{"DailyVolumeExceeded", "MonthlyVolumeExceeded"}, TradeLimitExceeded},
	{[]string{"UserSanctioned", "UserAccountFrozen", "UnauthorizedHookProgram", "MissingHookRegistry", "InvalidHookSlippageTolerance"}, HookExecutionFailure},
	{[]string{"ExceededSlippage"}, SlippageExceeded},
	{[]string{"PriceRangeViolation", "SqrtPriceOutOfBound"}, PriceRangeViolation},
	{[]string{"AmountIsZero"}, ZeroAmount},
	{[]string{"PoolDisabled"}, PoolNotFound},

	// raw custom program error codes, for when logs carry only the number
	{[]string{"0x1770"}, KycRequired},
	{[]string{"0x1774"}, SlippageExceeded},

	// message text
	{[]string{"slippage tolerance exceeded"}, SlippageExceeded},
	{[]string{"insufficient lamports", "insufficient funds", "Attempt to debit an account"}, InsufficientFunds},
	{[]string{"pool not found"}, PoolNotFound},
	{[]string{"transfer hook"}, HookExecutionFailure},
	{[]string{"zero amount"}, ZeroAmount},
	{[]string{"Blockhash not found", "blockhash expired", "connection refused", "connection reset", "no such host", "timeout", "context deadline exceeded"}, NetworkError},
	{[]string{"Transaction simulation failed", "custom program error"}, SimulationFailure},
}

// Translated is a classified failure with a display-ready message.
type Translated struct {
	Category Category
	Message  string
	Err      error
}

func (t *Translated) Error() string {
	return t.Message
}

func (t *Translated) Unwrap() error {
	return t.Err
}

// New builds a pre-classified error for failures detected client-side,
// before anything reaches the chain.
func New(category Category, msg string) *Translated {
	return &Translated{
		Category: category,
		Message:  fmt.Sprintf("%s: %s (%s)", category, msg, remediation[category]),
		Err:      errors.New(msg),
	}
}

// Translate classifies a raw failure by its message text.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var already *Translated
	if errors.As(err, &already) {
		return err
	}
	return translate(err, err.Error())
}

// TranslateWithLogs classifies using simulation log output when available,
// falling back to the error message.
func TranslateWithLogs(err error, logs []string) error {
	if err == nil {
		return nil
	}
	haystack := err.Error()
	if len(logs) > 0 {
		haystack = strings.Join(logs, "\n") + "\n" + haystack
	}
	return translate(err, haystack)
}

func translate(err error, haystack string) *Translated {
	category := classify(haystack)
	return &Translated{
		Category: category,
		Message:  fmt.Sprintf("%s: %v (%s)", category, err, remediation[category]),
		Err:      err,
	}
}

func classify(haystack string) Category {
	for _, r := range rules {
		for _, sub := range r.substrings {
			if containsFold(haystack, sub) {
				return r.category
			}
		}
	}
	return Unknown
}

// containsFold matches case-insensitively for message text while keeping
// exact matching cheap for the common case.
func containsFold(haystack, needle string) bool {
	if strings.Contains(haystack, needle) {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// CategoryOf extracts the category from a translated error, Unknown for
// anything else.
func CategoryOf(err error) Category {
	var t *Translated
	if errors.As(err, &t) {
		return t.Category
	}
	return Unknown
}
