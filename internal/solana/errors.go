package solana

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrBlockhashExpired is returned when the cluster passes the transaction's
// last valid block height without confirming it.
var ErrBlockhashExpired = errors.New("blockhash expired before confirmation")

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// SendTransactionError is a rejected sendTransaction, usually a failed preflight
// simulation. Logs holds the simulation's program logs when the node returned them.
type SendTransactionError struct {
	Message string
	Logs    []string
	Err     *RPCError
}

func (e *SendTransactionError) Error() string {
	return "send transaction: " + e.Message
}

func (e *SendTransactionError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// TransactionFailedError reports a transaction that landed with an on-chain error.
type TransactionFailedError struct {
	Signature string
	Err       interface{}
}

func (e *TransactionFailedError) Error() string {
	raw, err := json.Marshal(e.Err)
	if err != nil {
		return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
	}
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, raw)
}

// simulationData is the data payload of a preflight failure (code -32002).
type simulationData struct {
	Err  interface{} `json:"err"`
	Logs []string    `json:"logs"`
}

func newSendTransactionError(rpcErr *RPCError) *SendTransactionError {
	sendErr := &SendTransactionError{
		Message: strings.TrimSpace(rpcErr.Message),
		Err:     rpcErr,
	}
	if len(rpcErr.Data) > 0 {
		var data simulationData
		if err := json.Unmarshal(rpcErr.Data, &data); err == nil {
			sendErr.Logs = data.Logs
		}
	}
	return sendErr
}
