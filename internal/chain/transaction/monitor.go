// internal/chain/transaction/monitor.go
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// StatusProvider is the slice of the chain client the monitor needs.
type StatusProvider interface {
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Monitor polls signature statuses until a transaction confirms or the
// configured deadline passes. The poll interval follows an exponential
// schedule; the submission itself is never re-sent.
type Monitor struct {
	client StatusProvider
	logger *zap.Logger
	config Config
}

func NewMonitor(client StatusProvider, logger *zap.Logger, config Config) *Monitor {
	if config.MinConfirmations == 0 {
		config.MinConfirmations = 1
	}
	if config.ConfirmationTime == 0 {
		config.ConfirmationTime = 60 * time.Second
	}
	return &Monitor{
		client: client,
		logger: logger.Named("tx-monitor"),
		config: config,
	}
}

func (m *Monitor) checkConfirmation(ctx context.Context, signature solana.Signature) (bool, error) {
	response, err := m.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return false, fmt.Errorf("failed to get signature status: %w", err)
	}
	if len(response.Value) == 0 || response.Value[0] == nil {
		return false, nil
	}

	status := response.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction failed on-chain: %v", status.Err)
	}
	if status.Confirmations != nil && *status.Confirmations >= uint64(m.config.MinConfirmations) {
		return true, nil
	}
	return status.ConfirmationStatus == rpc.ConfirmationStatusFinalized ||
		status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed, nil
}

// GetTransactionStatus returns the current confirmation snapshot for a
// signature without waiting.
func (m *Monitor) GetTransactionStatus(ctx context.Context, signature solana.Signature) (*Status, error) {
	response, err := m.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction status: %w", err)
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return &Status{
			Signature: signature,
			State:     StateSubmitted,
			Timestamp: time.Now(),
		}, nil
	}

	status := response.Value[0]
	txStatus := &Status{
		Signature: signature,
		Timestamp: time.Now(),
		Slot:      status.Slot,
	}
	if status.Confirmations != nil {
		txStatus.Confirmations = *status.Confirmations
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized, rpc.ConfirmationStatusConfirmed:
		txStatus.State = StateConfirmed
	default:
		txStatus.State = StateSubmitted
	}
	if status.Err != nil {
		txStatus.Error = fmt.Sprintf("%v", status.Err)
		txStatus.State = StateFailed
	}
	return txStatus, nil
}

// AwaitConfirmation blocks until the transaction confirms, fails on-chain, or
// the deadline passes.
func (m *Monitor) AwaitConfirmation(ctx context.Context, signature solana.Signature) (*Status, error) {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = 400 * time.Millisecond
	schedule.MaxInterval = 2 * time.Second
	schedule.MaxElapsedTime = 0 // overall deadline handled below
	schedule.Reset()

	deadline := time.After(m.config.ConfirmationTime)

	for {
		wait := schedule.NextBackOff()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, ErrConfirmationTimeout
		case <-time.After(wait):
			confirmed, err := m.checkConfirmation(ctx, signature)
			if err != nil {
				status, statusErr := m.GetTransactionStatus(ctx, signature)
				if statusErr == nil && status.State == StateFailed {
					return status, err
				}
				m.logger.Warn("Confirmation check failed",
					zap.String("signature", signature.String()),
					zap.Error(err))
				continue
			}
			if confirmed {
				return m.GetTransactionStatus(ctx, signature)
			}
		}
	}
}
