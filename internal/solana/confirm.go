package solana

import (
	"context"
	"fmt"
	"time"
)

// DefaultPollInterval is the status polling cadence used by PollingConfirmer.
const DefaultPollInterval = 500 * time.Millisecond

// Confirmer waits until a submitted transaction is confirmed.
type Confirmer interface {
	// Confirm blocks until signature reaches the confirmer's commitment. It returns
	// *TransactionFailedError when the transaction landed with an error and
	// ErrBlockhashExpired once the block height passes lastValidBlockHeight.
	// A zero lastValidBlockHeight disables the expiry check.
	Confirm(ctx context.Context, signature string, lastValidBlockHeight uint64) error
}

// PollingConfirmer confirms by polling getSignatureStatuses.
type PollingConfirmer struct {
	Client     RPCClient
	Commitment Commitment
	Interval   time.Duration
}

// Confirm implements Confirmer.
func (p *PollingConfirmer) Confirm(ctx context.Context, signature string, lastValidBlockHeight uint64) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	commitment := p.Commitment
	if !commitment.Valid() {
		commitment = DefaultCommitment
	}

	for {
		done, err := checkStatus(ctx, p.Client, signature, commitment)
		if done || err != nil {
			return err
		}

		if err := checkExpiry(ctx, p.Client, lastValidBlockHeight); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// checkStatus reports whether signature is done at commitment, either confirmed
// (nil error) or failed on-chain.
func checkStatus(ctx context.Context, client RPCClient, signature string, commitment Commitment) (bool, error) {
	statuses, err := client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return false, fmt.Errorf("get signature status: %w", err)
	}
	if len(statuses) == 0 || statuses[0] == nil {
		return false, nil
	}

	status := statuses[0]
	if status.Err != nil {
		return true, &TransactionFailedError{Signature: signature, Err: status.Err}
	}
	return status.Reached(commitment), nil
}

func checkExpiry(ctx context.Context, client RPCClient, lastValidBlockHeight uint64) error {
	if lastValidBlockHeight == 0 {
		return nil
	}
	height, err := client.GetBlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("get block height: %w", err)
	}
	if height > lastValidBlockHeight {
		return fmt.Errorf("%w: block height %d > %d", ErrBlockhashExpired, height, lastValidBlockHeight)
	}
	return nil
}

// WSConfirmer confirms through a signature subscription and falls back to
// Fallback when the subscription cannot be opened or the connection drops.
type WSConfirmer struct {
	WS         SignatureSubscriber
	Client     RPCClient
	Commitment Commitment
	Fallback   Confirmer
	// ExpiryInterval is how often block height is checked while waiting.
	ExpiryInterval time.Duration
}

// Confirm implements Confirmer.
func (w *WSConfirmer) Confirm(ctx context.Context, signature string, lastValidBlockHeight uint64) error {
	commitment := w.Commitment
	if !commitment.Valid() {
		commitment = DefaultCommitment
	}

	ch, cancel, err := w.WS.SubscribeSignature(ctx, signature, commitment)
	if err != nil {
		return w.fallback(ctx, signature, lastValidBlockHeight, err)
	}
	defer cancel()

	// The transaction may have landed before the subscription was registered.
	done, err := checkStatus(ctx, w.Client, signature, commitment)
	if done || err != nil {
		return err
	}

	interval := w.ExpiryInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return w.fallback(ctx, signature, lastValidBlockHeight, ErrWSClosed)
			}
			if res.Err != nil {
				return &TransactionFailedError{Signature: signature, Err: res.Err}
			}
			return nil
		case <-ticker.C:
			if err := checkExpiry(ctx, w.Client, lastValidBlockHeight); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *WSConfirmer) fallback(ctx context.Context, signature string, lastValidBlockHeight uint64, cause error) error {
	if w.Fallback == nil {
		return fmt.Errorf("signature subscription: %w", cause)
	}
	return w.Fallback.Confirm(ctx, signature, lastValidBlockHeight)
}
