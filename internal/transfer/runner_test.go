package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sonic-transfer/internal/solana/stub"
	"sonic-transfer/internal/wallet"
)

type fixedSampler float64

func (f fixedSampler) Sample() float64 { return float64(f) }

// fakeSender fails the transfers whose 1-based index is in failOn.
type fakeSender struct {
	calls  int
	failOn map[int]error
	sent   []uint64
	cancel context.CancelFunc
	stopAt int
}

func (f *fakeSender) SendAndConfirm(_ context.Context, _ *wallet.Keypair, _ solanago.PublicKey, lamports uint64) (string, error) {
	f.calls++
	if f.cancel != nil && f.calls == f.stopAt {
		f.cancel()
	}
	if err, ok := f.failOn[f.calls]; ok {
		return "", err
	}
	f.sent = append(f.sent, lamports)
	return fmt.Sprintf("sig%d", f.calls), nil
}

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) StartingBalance(l uint64) { r.events = append(r.events, fmt.Sprintf("start:%d", l)) }
func (r *recordingReporter) Confirmed(sig string) { r.events = append(r.events, "confirmed:"+sig) }
func (r *recordingReporter) Sent(float64, string) { r.events = append(r.events, "sent") }
func (r *recordingReporter) UpdatedBalance(l uint64) { r.events = append(r.events, fmt.Sprintf("balance:%d", l)) }
func (r *recordingReporter) InsufficientFunds(l uint64) { r.events = append(r.events, fmt.Sprintf("insufficient:%d", l)) }
func (r *recordingReporter) Failed(string, error) { r.events = append(r.events, "failed") }
func (r *recordingReporter) Finished(*Summary) { r.events = append(r.events, "finished") }

type recordingRecorder struct {
	attempted, succeeded int
	reasons              []string
	balance              uint64
}

func (r *recordingRecorder) TransferAttempted() { r.attempted++ }
func (r *recordingRecorder) TransferSucceeded(uint64, time.Duration) { r.succeeded++ }
func (r *recordingRecorder) TransferFailed(reason string) { r.reasons = append(r.reasons, reason) }
func (r *recordingRecorder) SetBalance(l uint64) { r.balance = l }

func newSenderKey(t *testing.T) *wallet.Keypair {
	t.Helper()
	kp, err := wallet.NewRandomKeypair()
	require.NoError(t, err)
	return kp
}

func TestRunner_CapsAtMaxTransfers(t *testing.T) {
	from := newSenderKey(t)
	client := stub.NewRPCClient()
	client.SetBalance(from.Address(), 1_000*LamportsPerSOL)

	sender := &fakeSender{}
	r := NewRunner(from, client, sender, Config{Sampler: fixedSampler(0.5)})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxTransfers, sender.calls)
	assert.Equal(t, DefaultMaxTransfers, summary.Attempted)
	assert.Equal(t, DefaultMaxTransfers, summary.Succeeded)
	assert.Equal(t, StopCapReached, summary.Stop)
	assert.Equal(t, uint64(50*LamportsPerSOL), summary.LamportsSent)
	assert.Equal(t, uint64(950*LamportsPerSOL), summary.FinalBalance)
}

func TestRunner_StopsOnInsufficientFunds(t *testing.T) {
	from := newSenderKey(t)
	client := stub.NewRPCClient()
	client.SetBalance(from.Address(), 1_250_000_000) // 1.25 SOL

	sender := &fakeSender{}
	reporter := &recordingReporter{}
	r := NewRunner(from, client, sender, Config{Sampler: fixedSampler(0.5)}, WithReporter(reporter))

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	// 1.25 -> 0.75 -> 0.25, then 0.25 < 0.5 halts without a third attempt.
	assert.Equal(t, 2, sender.calls)
	assert.Equal(t, StopInsufficientFunds, summary.Stop)
	assert.Equal(t, uint64(250_000_000), summary.FinalBalance)
	assert.Equal(t, []string{
		"start:1250000000",
		"confirmed:sig1", "sent", "balance:750000000",
		"confirmed:sig2", "sent", "balance:250000000",
		"insufficient:250000000",
		"finished",
	}, reporter.events)
}

func TestRunner_InsufficientFromStart(t *testing.T) {
	from := newSenderKey(t)
	client := stub.NewRPCClient()
	client.SetBalance(from.Address(), 100)

	sender := &fakeSender{}
	r := NewRunner(from, client, sender, DefaultConfig())

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sender.calls)
	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, StopInsufficientFunds, summary.Stop)
}

func TestRunner_FailureDoesNotStopLoop(t *testing.T) {
	from := newSenderKey(t)
	client := stub.NewRPCClient()
	client.SetBalance(from.Address(), 10*LamportsPerSOL)

	sender := &fakeSender{failOn: map[int]error{
		1: errors.New("node unhealthy"),
		3: errors.New("blockhash not found"),
	}}
	reporter := &recordingReporter{}
	recorder := &recordingRecorder{}
	r := NewRunner(from, client, sender,
		Config{MaxTransfers: 5, Sampler: fixedSampler(0.5)},
		WithReporter(reporter),
		WithRecorder(recorder),
	)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, sender.calls)
	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)

	// Failed transfers leave the tracked balance untouched.
	assert.Equal(t, uint64(10*LamportsPerSOL-3*500_000_000), summary.FinalBalance)
	assert.Equal(t, summary.FinalBalance, recorder.balance)
	assert.Equal(t, 5, recorder.attempted)
	assert.Equal(t, 3, recorder.succeeded)
	assert.Equal(t, []string{"rpc", "rpc"}, recorder.reasons)
	assert.Equal(t, "failed", reporter.events[1])
}

func TestRunner_BalanceReadOnce(t *testing.T) {
	from := newSenderKey(t)
	client := stub.NewRPCClient()
	client.SetBalance(from.Address(), 10*LamportsPerSOL)

	r := NewRunner(from, client, &fakeSender{}, Config{MaxTransfers: 4, Sampler: fixedSampler(0.5)})

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, client.CallCount("getBalance"))
}

func TestRunner_AmountsWithinRange(t *testing.T) {
	from := newSenderKey(t)
	client := stub.NewRPCClient()
	client.SetBalance(from.Address(), 10*LamportsPerSOL)

	sender := &fakeSender{}
	r := NewRunner(from, client, sender, DefaultConfig())

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sender.sent, DefaultMaxTransfers)

	for _, l := range sender.sent {
		assert.GreaterOrEqual(t, l, uint64(900_000-1))
		assert.Less(t, l, uint64(1_000_000))
	}
}

func TestRunner_FreshDestinationEachIteration(t *testing.T) {
	from := newSenderKey(t)
	client := stub.NewRPCClient()
	client.SetBalance(from.Address(), 10*LamportsPerSOL)

	seen := make(map[string]bool)
	gen := func() (*wallet.Keypair, error) {
		kp, err := wallet.NewRandomKeypair()
		if err == nil {
			seen[kp.Address()] = true
		}
		return kp, err
	}

	r := NewRunner(from, client, &fakeSender{}, Config{MaxTransfers: 10, Sampler: fixedSampler(0.001), NewKey: gen})
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, seen, 10)
}

func TestRunner_KeyGenerationFailure(t *testing.T) {
	from := newSenderKey(t)
	client := stub.NewRPCClient()
	client.SetBalance(from.Address(), 10*LamportsPerSOL)

	calls := 0
	gen := func() (*wallet.Keypair, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("entropy exhausted")
		}
		return wallet.NewRandomKeypair()
	}

	sender := &fakeSender{}
	r := NewRunner(from, client, sender, Config{MaxTransfers: 3, Sampler: fixedSampler(0.5), NewKey: gen})
	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sender.calls)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Succeeded)
}

func TestRunner_Canceled(t *testing.T) {
	from := newSenderKey(t)
	client := stub.NewRPCClient()
	client.SetBalance(from.Address(), 10*LamportsPerSOL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{cancel: cancel, stopAt: 2}
	r := NewRunner(from, client, sender, Config{Sampler: fixedSampler(0.5)})

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sender.calls)
	assert.Equal(t, StopCanceled, summary.Stop)
}

type failingBalances struct{}

func (failingBalances) GetBalance(context.Context, string) (uint64, error) {
	return 0, errors.New("connection refused")
}

func TestRunner_StartingBalanceError(t *testing.T) {
	sender := &fakeSender{}
	r := NewRunner(newSenderKey(t), failingBalances{}, sender, DefaultConfig())

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, sender.calls)
}

func TestRunner_Logger(t *testing.T) {
	from := newSenderKey(t)
	client := stub.NewRPCClient()
	client.SetBalance(from.Address(), LamportsPerSOL)

	var buf bytes.Buffer
	sender := &fakeSender{failOn: map[int]error{1: errors.New("boom")}}
	r := NewRunner(from, client, sender, Config{MaxTransfers: 1, Sampler: fixedSampler(0.5)}, WithLogger(log.New(&buf, "", 0)))

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "boom")
}
