// internal/chain/programs/computebudget/computebudget.go
package computebudget

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

var ProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

const (
	setComputeUnitLimitTag uint8 = 2
	setComputeUnitPriceTag uint8 = 3
)

const (
	// DefaultUnits covers plain token/AMM instructions without hooks.
	DefaultUnits uint32 = 200_000
	// HookedOperationUnits is the generous allowance attached to pool
	// creation and liquidity changes that may run transfer hooks, whose
	// compute cost is unpredictable.
	HookedOperationUnits uint32 = 800_000
	// MaxUnits is the per-transaction ceiling the ledger enforces.
	MaxUnits uint32 = 1_400_000
)

type Config struct {
	Units     uint32
	UnitPrice uint64 // micro-lamports per compute unit
}

func NewDefaultConfig() Config {
	return Config{Units: DefaultUnits}
}

// BuildInstructions encodes the compute budget program calls for the config.
// The limit instruction is always emitted; the price instruction only when a
// priority fee is set.
func BuildInstructions(config Config) ([]solana.Instruction, error) {
	if config.Units == 0 {
		config = NewDefaultConfig()
	}
	if config.Units > MaxUnits {
		config.Units = MaxUnits
	}

	instructions := []solana.Instruction{setComputeUnitLimit(config.Units)}
	if config.UnitPrice > 0 {
		instructions = append(instructions, setComputeUnitPrice(config.UnitPrice))
	}
	return instructions, nil
}

func setComputeUnitLimit(units uint32) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.WriteByte(setComputeUnitLimitTag)
	_ = binary.Write(buf, binary.LittleEndian, units)
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{}, buf.Bytes())
}

func setComputeUnitPrice(microLamports uint64) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.WriteByte(setComputeUnitPriceTag)
	_ = binary.Write(buf, binary.LittleEndian, microLamports)
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{}, buf.Bytes())
}
