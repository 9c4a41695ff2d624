// internal/chain/transaction/builder.go
package transaction

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rwadex/dexclient/internal/chain/programs/computebudget"
)

// BlockhashProvider is the slice of the chain client the builder needs.
type BlockhashProvider interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
}

// Builder assembles one transaction: compute budget first, then the payload
// instructions, signed by every registered signer. The first signer pays fees.
type Builder struct {
	instructions []solana.Instruction
	signers      []solana.PrivateKey
	budget       computebudget.Config
}

func NewBuilder() *Builder {
	return &Builder{budget: computebudget.NewDefaultConfig()}
}

// SetComputeBudget overrides the compute unit limit and priority fee.
func (b *Builder) SetComputeBudget(units uint32, microLamports uint64) *Builder {
	b.budget = computebudget.Config{Units: units, UnitPrice: microLamports}
	return b
}

func (b *Builder) AddInstruction(instruction solana.Instruction) *Builder {
	b.instructions = append(b.instructions, instruction)
	return b
}

func (b *Builder) AddInstructions(instructions ...solana.Instruction) *Builder {
	b.instructions = append(b.instructions, instructions...)
	return b
}

func (b *Builder) AddSigner(signer solana.PrivateKey) *Builder {
	b.signers = append(b.signers, signer)
	return b
}

// Build fetches a fresh blockhash, prepends the compute budget instructions
// and signs.
func (b *Builder) Build(ctx context.Context, client BlockhashProvider) (*solana.Transaction, error) {
	if len(b.signers) == 0 {
		return nil, fmt.Errorf("no signers provided")
	}
	if len(b.instructions) == 0 {
		return nil, ErrInvalidInstruction
	}

	blockhash, err := client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	budgetInstructions, err := computebudget.BuildInstructions(b.budget)
	if err != nil {
		return nil, fmt.Errorf("failed to build compute budget instructions: %w", err)
	}

	instructions := make([]solana.Instruction, 0, len(budgetInstructions)+len(b.instructions))
	instructions = append(instructions, budgetInstructions...)
	instructions = append(instructions, b.instructions...)

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(b.signers[0].PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for _, signer := range b.signers {
			if signer.PublicKey().Equals(key) {
				privateCopy := signer
				return &privateCopy
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return tx, nil
}
