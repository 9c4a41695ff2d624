// internal/chain/client.go
package chain

import (
	"context"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// ErrAccountNotFound is returned when an account does not exist on the ledger.
var ErrAccountNotFound = errors.New("account not found")

// IsAccountNotFoundError reports whether err means the account is absent,
// regardless of which RPC backend produced it.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// AccountInfo is the slim account view the resolvers need: owner, raw data
// and lamports. It keeps the rest of the codebase off the rpc response types.
type AccountInfo struct {
	Owner    solana.PublicKey
	Data     []byte
	Lamports uint64
}

// Client is a thin adapter over the solana-go RPC client.
type Client struct {
	rpc        *rpc.Client
	logger     *zap.Logger
	commitment rpc.CommitmentType
}

func NewClient(rpcURL string, commitment rpc.CommitmentType, logger *zap.Logger) *Client {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Client{
		rpc:        rpc.New(rpcURL),
		logger:     logger.Named("chain-client"),
		commitment: commitment,
	}
}

// GetRecentBlockhash fetches the latest blockhash at the client commitment.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// GetAccountInfo fetches an account; returns ErrAccountNotFound when the
// account does not exist.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*AccountInfo, error) {
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
	})
	if err != nil {
		if IsAccountNotFoundError(err) {
			return nil, ErrAccountNotFound
		}
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, ErrAccountNotFound
	}
	return &AccountInfo{
		Owner:    result.Value.Owner,
		Data:     result.Value.Data.GetBinary(),
		Lamports: result.Value.Lamports,
	}, nil
}

// AccountExists reports whether the account is present; absence is not an
// error here.
func (c *Client) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	_, err := c.GetAccountInfo(ctx, pubkey)
	if err != nil {
		if IsAccountNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetMinimumBalanceForRentExemption returns the lamports an account of the
// given size needs to be rent exempt.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	return c.rpc.GetMinimumBalanceForRentExemption(ctx, dataSize, c.commitment)
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       skipPreflight,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetSignatureStatuses proxies signature status lookups for the confirmation
// monitor.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return c.rpc.GetSignatureStatuses(ctx, false, signatures...)
}
