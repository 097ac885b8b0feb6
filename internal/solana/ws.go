package solana

import (
	"context"
	"strings"
)

// SignatureSubscriber delivers a single notification once a signature reaches a commitment.
type SignatureSubscriber interface {
	// SubscribeSignature subscribes to a transaction signature. The returned channel
	// yields at most one result and is closed when the subscription ends or the
	// connection drops. cancel releases the subscription.
	SubscribeSignature(ctx context.Context, signature string, commitment Commitment) (<-chan SignatureResult, func(), error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureResult is the payload of a signatureNotification.
type SignatureResult struct {
	Slot uint64
	Err  interface{}
}

// WSEndpoint maps an HTTP RPC URL to its PubSub URL (http->ws, https->wss).
func WSEndpoint(httpURL string) string {
	switch {
	case strings.HasPrefix(httpURL, "https://"):
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	case strings.HasPrefix(httpURL, "http://"):
		return "ws://" + strings.TrimPrefix(httpURL, "http://")
	default:
		return httpURL
	}
}
