package transfer

import (
	"context"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"sonic-transfer/internal/solana"
	"sonic-transfer/internal/wallet"
)

// Sender submits transfers and waits for their confirmation.
type Sender struct {
	client         solana.RPCClient
	confirmer      solana.Confirmer
	confirmTimeout time.Duration
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithConfirmTimeout bounds how long a single transfer waits for confirmation.
// Zero means wait until the blockhash expires.
func WithConfirmTimeout(d time.Duration) SenderOption {
	return func(s *Sender) {
		s.confirmTimeout = d
	}
}

// NewSender creates a Sender.
func NewSender(client solana.RPCClient, confirmer solana.Confirmer, opts ...SenderOption) *Sender {
	s := &Sender{client: client, confirmer: confirmer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendAndConfirm transfers lamports to the destination and blocks until the
// transaction is confirmed. The signature is returned whenever the transaction
// was accepted by the node, even if confirmation later fails.
func (s *Sender) SendAndConfirm(ctx context.Context, from *wallet.Keypair, to solanago.PublicKey, lamports uint64) (string, error) {
	bh, err := s.client.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := BuildTransfer(from, to, lamports, bh.Blockhash)
	if err != nil {
		return "", err
	}

	wire, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}

	sig, err := s.client.SendTransaction(ctx, wire)
	if err != nil {
		return "", err
	}
	if local := tx.Signatures[0].String(); sig != local {
		return sig, fmt.Errorf("node returned signature %s, expected %s", sig, local)
	}

	confirmCtx := ctx
	if s.confirmTimeout > 0 {
		var cancel context.CancelFunc
		confirmCtx, cancel = context.WithTimeout(ctx, s.confirmTimeout)
		defer cancel()
	}

	if err := s.confirmer.Confirm(confirmCtx, sig, bh.LastValidBlockHeight); err != nil {
		return sig, fmt.Errorf("confirm %s: %w", sig, err)
	}
	return sig, nil
}
