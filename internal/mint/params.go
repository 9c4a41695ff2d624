// internal/mint/params.go
package mint

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rwadex/dexclient/internal/chain/programs/token2022"
)

// MetadataField is one key/value pair written after the base metadata
// record.
type MetadataField struct {
	Key   string
	Value string
}

// MetadataParams configures the on-mint metadata record.
type MetadataParams struct {
	Name   string
	Symbol string
	URI    string

	// AdditionalFields are written in order, batched across transactions.
	AdditionalFields []MetadataField
}

// TransferFeeParams configures the transfer fee schedule extension.
type TransferFeeParams struct {
	BasisPoints uint16
	MaximumFee  uint64
}

// InterestBearingParams configures the interest-bearing extension. Rate is
// in basis points and may be negative.
type InterestBearingParams struct {
	Rate int16
}

// TransferHookParams pins a transfer hook program on the mint.
type TransferHookParams struct {
	ProgramID solana.PublicKey
}

// CreateMintParams enumerates which extensions the mint carries. Extension
// layout is fixed at account creation, so nothing here can be added later.
type CreateMintParams struct {
	Decimals uint8

	// Supply, when non-zero, is minted to the payer after initialization.
	Supply uint64

	Metadata        *MetadataParams
	TransferHook    *TransferHookParams
	TransferFee     *TransferFeeParams
	InterestBearing *InterestBearingParams

	// GroupMember points the mint at itself as a group member record.
	GroupMember bool

	// FreezeAuthority is optional; nil leaves the mint unfreezable.
	FreezeAuthority *solana.PublicKey
}

// Validate rejects parameter sets that cannot produce a working mint.
func (p *CreateMintParams) Validate() error {
	if p.Decimals > 9 {
		return fmt.Errorf("decimals must be at most 9, got %d", p.Decimals)
	}
	if p.Metadata != nil {
		if p.Metadata.Name == "" || p.Metadata.Symbol == "" {
			return fmt.Errorf("metadata requires a name and symbol")
		}
	}
	if p.TransferFee != nil && p.TransferFee.BasisPoints > 10_000 {
		return fmt.Errorf("transfer fee basis points must be at most 10000, got %d", p.TransferFee.BasisPoints)
	}
	return nil
}

// extensionTypes lists the extensions the mint account must reserve space
// for at creation time.
func (p *CreateMintParams) extensionTypes() []token2022.ExtensionType {
	var types []token2022.ExtensionType
	if p.Metadata != nil {
		types = append(types, token2022.ExtMetadataPointer)
	}
	if p.TransferHook != nil {
		types = append(types, token2022.ExtTransferHook)
	}
	if p.TransferFee != nil {
		types = append(types, token2022.ExtTransferFeeConfig)
	}
	if p.InterestBearing != nil {
		types = append(types, token2022.ExtInterestBearingConfig)
	}
	if p.GroupMember {
		types = append(types, token2022.ExtGroupMemberPointer)
	}
	return types
}

// hasValueExtensions reports whether a post-creation configuration step is
// needed at all.
func (p *CreateMintParams) hasValueExtensions() bool {
	return p.TransferFee != nil || p.InterestBearing != nil
}
