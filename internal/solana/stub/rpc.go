// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"errors"
	"sync"

	"github.com/mr-tron/base58"

	"sonic-transfer/internal/solana"
)

// ErrMalformedTransaction is returned for wire transactions without a signature.
var ErrMalformedTransaction = errors.New("malformed transaction")

// RPCClient implements solana.RPCClient for testing.
// Submitted transactions are confirmed at Commitment on the next status query
// unless SendErr or FailWith is set.
type RPCClient struct {
	mu sync.Mutex

	Balances    map[string]uint64
	Blockhash   solana.Blockhash
	BlockHeight uint64
	Commitment  solana.Commitment

	// SendErr, when set, is returned by SendTransaction.
	SendErr error
	// FailWith, when set, is reported as the on-chain error of every submitted transaction.
	FailWith interface{}

	Sent     [][]byte
	Statuses map[string]*solana.SignatureStatus
	Calls    map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances: make(map[string]uint64),
		Blockhash: solana.Blockhash{
			Blockhash:            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
			LastValidBlockHeight: 1000,
		},
		BlockHeight: 900,
		Commitment:  solana.CommitmentConfirmed,
		Statuses:    make(map[string]*solana.SignatureStatus),
		Calls:       make(map[string]int),
	}
}

func (c *RPCClient) record(method string) {
	c.Calls[method]++
}

// CallCount returns how many times method was invoked.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[method]
}

// GetBalance returns the stored balance for pubkey.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getBalance")
	return c.Balances[pubkey], nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getLatestBlockhash")
	bh := c.Blockhash
	return &bh, nil
}

// GetBlockHeight returns the configured block height.
func (c *RPCClient) GetBlockHeight(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getBlockHeight")
	return c.BlockHeight, nil
}

// SendTransaction stores the wire transaction and returns its first signature.
func (c *RPCClient) SendTransaction(_ context.Context, tx []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("sendTransaction")

	if c.SendErr != nil {
		return "", c.SendErr
	}
	// Wire layout: compact-u16 signature count, then 64-byte signatures.
	if len(tx) < 65 || tx[0] == 0 {
		return "", ErrMalformedTransaction
	}
	sig := base58.Encode(tx[1:65])

	c.Sent = append(c.Sent, tx)
	c.Statuses[sig] = &solana.SignatureStatus{
		Slot:               uint64(len(c.Sent)),
		Err:                c.FailWith,
		ConfirmationStatus: c.Commitment,
	}
	return sig, nil
}

// GetSignatureStatuses returns stored statuses; unknown signatures map to nil.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getSignatureStatuses")

	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if st, ok := c.Statuses[sig]; ok {
			cp := *st
			out[i] = &cp
		}
	}
	return out, nil
}

// SetBalance sets the balance for an address.
func (c *RPCClient) SetBalance(pubkey string, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[pubkey] = lamports
}
