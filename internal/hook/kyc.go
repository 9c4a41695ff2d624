// internal/hook/kyc.go
package hook

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rwadex/dexclient/internal/chain"
	"github.com/rwadex/dexclient/internal/chain/transaction"
	"github.com/rwadex/dexclient/internal/errs"
)

// KYC tiers.
const (
	KycLevelUnverified    uint8 = 0
	KycLevelBasic         uint8 = 1
	KycLevelEnhanced      uint8 = 2
	KycLevelInstitutional uint8 = 3
)

// Compliance record flags.
const (
	KycFlagSanctions uint8 = 0x01
	KycFlagPep       uint8 = 0x02
	KycFlagFrozen    uint8 = 0x04
	KycFlagExpired   uint8 = 0x08
)

// UserKyc is the decoded compliance record.
type UserKyc struct {
	User           solana.PublicKey
	KycLevel       uint8
	RiskScore      uint8
	LastUpdated    int64
	Flags          uint8
	DailyVolume    uint64
	MonthlyVolume  uint64
	LastResetDay   int64
	LastResetMonth int64
	Country        [2]byte
	State          [2]byte
	City           [32]byte
}

func (k *UserKyc) IsSanctioned() bool { return k.Flags&KycFlagSanctions != 0 }
func (k *UserKyc) IsFrozen() bool     { return k.Flags&KycFlagFrozen != 0 }
func (k *UserKyc) IsExpired() bool    { return k.Flags&KycFlagExpired != 0 }

func (k *UserKyc) CountryCode() string { return trimPadded(k.Country[:]) }
func (k *UserKyc) StateCode() string   { return trimPadded(k.State[:]) }
func (k *UserKyc) CityName() string    { return trimPadded(k.City[:]) }

func trimPadded(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}

// DecodeUserKyc parses a compliance record account.
func DecodeUserKyc(data []byte) (*UserKyc, error) {
	disc := sha256.Sum256([]byte("account:UserKYC"))
	if len(data) < 8 {
		return nil, fmt.Errorf("kyc account data too short: %d bytes", len(data))
	}
	for i := 0; i < 8; i++ {
		if data[i] != disc[i] {
			return nil, fmt.Errorf("account is not a kyc record")
		}
	}
	record := new(UserKyc)
	if err := ag_binary.NewBorshDecoder(data[8:]).Decode(record); err != nil {
		return nil, fmt.Errorf("failed to decode kyc record: %w", err)
	}
	return record, nil
}

// KycStatus is the client-facing view of a wallet's compliance state.
type KycStatus struct {
	Exists      bool
	Level       uint8
	Country     string
	State       string
	City        string
	CanTradeRwa bool
}

// SwapComplianceResult explains whether a swap may proceed and, when not,
// which tier the user must reach.
type SwapComplianceResult struct {
	CanSwap          bool
	Reason           string
	RequiredKycLevel uint8
}

// KycDefaults seed a fresh compliance record.
type KycDefaults struct {
	Country string
	State   string
	City    string
}

// Gate creates and inspects compliance records ahead of hooked operations,
// so failures surface before a transaction is built.
type Gate struct {
	client   ChainReader
	sender   transaction.Sender
	program  *Program
	resolver *Resolver
	defaults KycDefaults
	log      *zap.Logger
}

func NewGate(client ChainReader, sender transaction.Sender, program *Program, resolver *Resolver, defaults KycDefaults, log *zap.Logger) *Gate {
	return &Gate{
		client:   client,
		sender:   sender,
		program:  program,
		resolver: resolver,
		defaults: defaults,
		log:      log,
	}
}

// fetchRecord returns nil without error when no record exists.
func (g *Gate) fetchRecord(ctx context.Context, wallet solana.PublicKey) (*UserKyc, error) {
	address := DeriveUserKycAddress(g.program.ID, wallet)
	info, err := g.client.GetAccountInfo(ctx, address)
	if err != nil {
		if chain.IsAccountNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch kyc record for %s: %w", wallet, err)
	}
	return DecodeUserKyc(info.Data)
}

// EnsureKyc guarantees a compliance record exists for every wallet,
// creating missing ones at the basic tier. Existence checks run in
// parallel; submissions are sequential because blockhash and fee state are
// shared per signer.
func (g *Gate) EnsureKyc(ctx context.Context, payer solana.PrivateKey, wallets ...solana.PublicKey) error {
	missing := make([]bool, len(wallets))

	gr, gctx := errgroup.WithContext(ctx)
	for i, wallet := range wallets {
		i, wallet := i, wallet
		gr.Go(func() error {
			record, err := g.fetchRecord(gctx, wallet)
			if err != nil {
				return err
			}
			missing[i] = record == nil
			return nil
		})
	}
	if err := gr.Wait(); err != nil {
		return err
	}

	for i, wallet := range wallets {
		if !missing[i] {
			continue
		}
		g.log.Info("creating kyc record",
			zap.String("wallet", wallet.String()),
			zap.Uint8("level", KycLevelBasic))

		ix, err := g.program.InitializeUserKycInstruction(
			payer.PublicKey(), wallet, KycLevelBasic,
			g.defaults.Country, g.defaults.State, g.defaults.City,
		)
		if err != nil {
			return err
		}
		if _, err := g.sender.SendAndConfirm(ctx, []solana.Instruction{ix}, []solana.PrivateKey{payer}, 0); err != nil {
			if isAlreadyInitialized(err) {
				continue
			}
			return errs.Translate(fmt.Errorf("failed to create kyc record for %s: %w", wallet, err))
		}
	}
	return nil
}

// UpdateKyc applies a partial update to an existing record.
func (g *Gate) UpdateKyc(ctx context.Context, authority solana.PrivateKey, user solana.PublicKey, params UpdateUserKycParams) (*transaction.Status, error) {
	ix, err := g.program.UpdateUserKycInstruction(authority.PublicKey(), user, params)
	if err != nil {
		return nil, err
	}
	status, err := g.sender.SendAndConfirm(ctx, []solana.Instruction{ix}, []solana.PrivateKey{authority}, 0)
	if err != nil {
		return nil, errs.Translate(fmt.Errorf("failed to update kyc record for %s: %w", user, err))
	}
	return status, nil
}

// GetStatus reports a wallet's compliance state. RWA trading requires the
// enhanced tier.
func (g *Gate) GetStatus(ctx context.Context, wallet solana.PublicKey) (*KycStatus, error) {
	record, err := g.fetchRecord(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &KycStatus{}, nil
	}
	return &KycStatus{
		Exists:      true,
		Level:       record.KycLevel,
		Country:     record.CountryCode(),
		State:       record.StateCode(),
		City:        record.CityName(),
		CanTradeRwa: record.KycLevel >= KycLevelEnhanced,
	}, nil
}

// ValidateSwapCompliance pre-checks the tier requirements a hooked swap
// would enforce on chain, saving a doomed round trip. Jurisdiction, trading
// hours and volume limits are left to the hook program.
func (g *Gate) ValidateSwapCompliance(ctx context.Context, user, inputMint, outputMint solana.PublicKey) (*SwapComplianceResult, error) {
	record, err := g.fetchRecord(ctx, user)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &SwapComplianceResult{
			Reason:           "no KYC record exists for this wallet",
			RequiredKycLevel: KycLevelBasic,
		}, nil
	}
	if record.IsSanctioned() || record.IsFrozen() || record.IsExpired() {
		return &SwapComplianceResult{
			Reason:           "KYC record is flagged and cannot trade",
			RequiredKycLevel: record.KycLevel,
		}, nil
	}

	var inputHook, outputHook bool
	gr, gctx := errgroup.WithContext(ctx)
	gr.Go(func() error {
		_, found, err := g.resolver.DetectHook(gctx, inputMint)
		inputHook = found
		return err
	})
	gr.Go(func() error {
		_, found, err := g.resolver.DetectHook(gctx, outputMint)
		outputHook = found
		return err
	})
	if err := gr.Wait(); err != nil {
		return nil, err
	}

	if (inputHook || outputHook) && record.KycLevel < KycLevelEnhanced {
		return &SwapComplianceResult{
			Reason:           "hooked token requires enhanced KYC",
			RequiredKycLevel: KycLevelEnhanced,
		}, nil
	}
	return &SwapComplianceResult{CanSwap: true}, nil
}
