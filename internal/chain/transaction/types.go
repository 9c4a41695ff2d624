// internal/chain/transaction/types.go
package transaction

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
	ErrInvalidBlockhash    = errors.New("invalid blockhash")
	ErrInvalidInstruction  = errors.New("invalid instruction")
)

// State tracks a single transaction through its lifecycle. Failed is
// terminal; nothing in this package retries a failed submission.
type State string

const (
	StateBuilt     State = "built"
	StateSigned    State = "signed"
	StateSubmitted State = "submitted"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
)

type Config struct {
	ConfirmationTime time.Duration
	SkipPreflight    bool
	Commitment       rpc.CommitmentType
	MinConfirmations uint8
	// PriorityFee is attached to every transaction, in micro-lamports per
	// compute unit. Zero disables the price instruction.
	PriorityFee uint64
}

type Status struct {
	Signature     solana.Signature
	State         State
	Confirmations uint64
	Slot          uint64
	Error         string
	Timestamp     time.Time
}
