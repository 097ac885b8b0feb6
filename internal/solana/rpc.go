package solana

import "context"

// RPCClient defines the subset of the Solana JSON-RPC HTTP API used to fund transfers.
type RPCClient interface {
	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetLatestBlockhash returns a recent blockhash and the last block height it is valid for.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context) (uint64, error)

	// SendTransaction submits a signed, serialized transaction and returns its signature.
	SendTransaction(ctx context.Context, tx []byte) (string, error)

	// GetSignatureStatuses returns one status per signature; nil entries are unknown signatures.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)
}

// Commitment is the bank state level a request is evaluated against.
type Commitment string

// Commitment levels in increasing order of finality.
const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

func (c Commitment) rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// Valid reports whether c is a known commitment level.
func (c Commitment) Valid() bool {
	return c.rank() > 0
}

// Blockhash is a recent blockhash usable as a transaction lifetime.
type Blockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// SignatureStatus is the cluster's view of a submitted transaction.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64 // nil once rooted
	Err                interface{}
	ConfirmationStatus Commitment
}

// Reached reports whether the status is at least at commitment c.
func (s *SignatureStatus) Reached(c Commitment) bool {
	if s == nil {
		return false
	}
	if s.ConfirmationStatus == "" {
		// Nodes that omit confirmationStatus report nil confirmations for rooted slots.
		return s.Confirmations == nil
	}
	return s.ConfirmationStatus.rank() >= c.rank()
}
