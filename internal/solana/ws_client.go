package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrWSClosed is returned once the PubSub connection is closed or dropped.
var ErrWSClosed = errors.New("websocket connection closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
	}
}

// WSClient implements SignatureSubscriber over a single gorilla/websocket connection.
// It does not reconnect; once the connection drops every open subscription channel is
// closed and callers fall back to polling.
type WSClient struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	broken    atomic.Bool
	requestID atomic.Uint64

	// mu guards pending and subs
	mu      sync.Mutex
	pending map[uint64]*pendingSub
	subs    map[int64]chan SignatureResult

	done chan struct{}
	wg   sync.WaitGroup
}

type pendingSub struct {
	ack    chan subscribeAck
	notify chan SignatureResult
}

type subscribeAck struct {
	id  int64
	err error
}

// NewWSClient connects to a Solana PubSub endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		conn:     conn,
		pending:  make(map[uint64]*pendingSub),
		subs:     make(map[int64]chan SignatureResult),
		done:     make(chan struct{}),
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// SubscribeSignature subscribes to a signature at the given commitment.
func (c *WSClient) SubscribeSignature(ctx context.Context, signature string, commitment Commitment) (<-chan SignatureResult, func(), error) {
	if c.closed.Load() || c.broken.Load() {
		return nil, nil, ErrWSClosed
	}

	reqID := c.requestID.Add(1)
	p := &pendingSub{
		ack:    make(chan subscribeAck, 1),
		notify: make(chan SignatureResult, 1),
	}

	c.mu.Lock()
	c.pending[reqID] = p
	c.mu.Unlock()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]string{"commitment": string(commitment)},
		},
	}
	if err := c.write(req); err != nil {
		c.dropPending(reqID, p)
		return nil, nil, fmt.Errorf("write subscribe: %w", err)
	}

	var subID int64
	select {
	case ack, ok := <-p.ack:
		if !ok {
			return nil, nil, ErrWSClosed
		}
		if ack.err != nil {
			return nil, nil, ack.err
		}
		subID = ack.id
	case <-time.After(c.config.SubscribeTimeout):
		c.dropPending(reqID, p)
		return nil, nil, fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-ctx.Done():
		c.dropPending(reqID, p)
		return nil, nil, ctx.Err()
	case <-c.done:
		return nil, nil, ErrWSClosed
	}

	return p.notify, func() { c.unsubscribe(subID) }, nil
}

// dropPending abandons a subscribe request, releasing the subscription if the
// ack raced with the caller giving up.
func (c *WSClient) dropPending(reqID uint64, p *pendingSub) {
	c.mu.Lock()
	delete(c.pending, reqID)
	c.mu.Unlock()

	select {
	case ack, ok := <-p.ack:
		if ok && ack.err == nil {
			c.unsubscribe(ack.id)
		}
	default:
	}
}

func (c *WSClient) unsubscribe(subID int64) {
	c.mu.Lock()
	ch, ok := c.subs[subID]
	delete(c.subs, subID)
	c.mu.Unlock()

	if !ok {
		return
	}
	close(ch)

	if c.closed.Load() || c.broken.Load() {
		return
	}
	_ = c.write(wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "signatureUnsubscribe",
		Params:  []interface{}{subID},
	})
}

func (c *WSClient) write(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.writeMu.Unlock()

	c.wg.Wait()
	return err
}

// readLoop dispatches responses and notifications until the connection fails.
func (c *WSClient) readLoop() {
	defer c.wg.Done()
	defer c.failAll()

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.broken.Store(true)
			return
		}
		c.handleMessage(message)
	}
}

// failAll closes every pending and active subscription channel.
func (c *WSClient) failAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, p := range c.pending {
		close(p.ack)
		delete(c.pending, id)
	}
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

// handleMessage processes incoming WebSocket message.
func (c *WSClient) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	if msg.ID != nil {
		c.handleResponse(*msg.ID, &msg)
		return
	}

	if msg.Method == "signatureNotification" && msg.Params != nil {
		c.handleSignatureNotification(msg.Params)
	}
}

// handleResponse completes a pending subscribe request. The notify channel is
// registered before the ack is delivered so an immediate notification is not lost.
func (c *WSClient) handleResponse(id uint64, msg *wsMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[id]
	if !ok {
		return
	}
	delete(c.pending, id)

	if msg.Error != nil {
		p.ack <- subscribeAck{err: msg.Error}
		return
	}

	var subID int64
	if err := json.Unmarshal(msg.Result, &subID); err != nil {
		p.ack <- subscribeAck{err: fmt.Errorf("decode subscription id: %w", err)}
		return
	}

	c.subs[subID] = p.notify
	p.ack <- subscribeAck{id: subID}
}

func (c *WSClient) handleSignatureNotification(params *wsNotificationParams) {
	var value struct {
		Err interface{} `json:"err"`
	}
	// receivedSignature notifications carry a bare string value.
	if err := json.Unmarshal(params.Result.Value, &value); err != nil {
		return
	}

	c.mu.Lock()
	ch, ok := c.subs[params.Subscription]
	delete(c.subs, params.Subscription)
	c.mu.Unlock()

	if !ok {
		return
	}

	var slot uint64
	if params.Result.Context != nil {
		slot = params.Result.Context.Slot
	}
	ch <- SignatureResult{Slot: slot, Err: value.Err}
	close(ch)
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			// A failed ping surfaces as a read error in readLoop.
			_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsMessage struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      *uint64               `json:"id"`
	Result  json.RawMessage       `json:"result"`
	Error   *RPCError             `json:"error"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext      `json:"context"`
	Value   json.RawMessage `json:"value"`
}

type wsContext struct {
	Slot uint64 `json:"slot"`
}
