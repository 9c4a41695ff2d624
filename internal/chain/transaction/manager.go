// internal/chain/transaction/manager.go
package transaction

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// ChainClient is everything the manager needs from the RPC layer.
type ChainClient interface {
	BlockhashProvider
	StatusProvider
	SendTransaction(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (solana.Signature, error)
}

// Sender is the submission surface the pipelines depend on. Every write in
// the system goes through it, one transaction at a time: build, sign, submit,
// await confirmation, and only then return. There is no automatic retry; a
// failed transaction is terminal and surfaces to the caller.
type Sender interface {
	SendAndConfirm(ctx context.Context, instructions []solana.Instruction, signers []solana.PrivateKey, computeUnits uint32) (*Status, error)
}

// Manager implements Sender on top of the chain client.
type Manager struct {
	client  ChainClient
	logger  *zap.Logger
	config  Config
	monitor *Monitor
	metrics *Metrics
}

func NewManager(client ChainClient, logger *zap.Logger, config Config) *Manager {
	return &Manager{
		client:  client,
		logger:  logger.Named("tx-manager"),
		config:  config,
		monitor: NewMonitor(client, logger, config),
		metrics: NewMetrics(),
	}
}

// SendAndConfirm builds, signs and submits one transaction, then blocks until
// it is confirmed or failed.
func (tm *Manager) SendAndConfirm(
	ctx context.Context,
	instructions []solana.Instruction,
	signers []solana.PrivateKey,
	computeUnits uint32,
) (*Status, error) {
	defer tm.metrics.TrackTransaction(time.Now())

	builder := NewBuilder()
	if computeUnits > 0 {
		builder.SetComputeBudget(computeUnits, tm.config.PriorityFee)
	}
	builder.AddInstructions(instructions...)
	for _, signer := range signers {
		builder.AddSigner(signer)
	}

	tx, err := builder.Build(ctx, tm.client)
	if err != nil {
		tm.logger.Error("Failed to build transaction", zap.Error(err))
		return nil, err
	}

	signature, err := tm.client.SendTransaction(ctx, tx, tm.config.SkipPreflight)
	if err != nil {
		tm.metrics.failureCounter.Inc()
		tm.logger.Error("Failed to send transaction", zap.Error(err))
		return nil, err
	}
	tm.logger.Debug("Transaction submitted", zap.String("signature", signature.String()))

	status, err := tm.monitor.AwaitConfirmation(ctx, signature)
	if err != nil {
		tm.metrics.failureCounter.Inc()
		tm.logger.Error("Transaction confirmation failed",
			zap.String("signature", signature.String()),
			zap.Error(err))
		return status, err
	}

	tm.metrics.successCounter.Inc()
	return status, nil
}

// Commitment exposes the preflight commitment the manager submits with.
func (tm *Manager) Commitment() rpc.CommitmentType {
	return tm.config.Commitment
}
